package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ibtikar/ibtikar-backend/internal/authprovider"
	"github.com/ibtikar/ibtikar-backend/internal/config"
	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
	"github.com/ibtikar/ibtikar-backend/internal/refresh"
	"github.com/ibtikar/ibtikar-backend/internal/session"
	"github.com/ibtikar/ibtikar-backend/internal/tokens"
	"github.com/ibtikar/ibtikar-backend/pkg/logger"
	"github.com/ibtikar/ibtikar-backend/pkg/metrics"
)

// RegisterRequest creates both the credential account and the profile record.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName" binding:"required"`
	Role        string `json:"role" binding:"required"` // "creator" | "company"
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg        *config.Config
	gw         gateway.Gateway
	provider   *authprovider.Local
	refreshSvc *refresh.Service
	blacklist  *refresh.Blacklist
}

func NewAuthHandler(cfg *config.Config, gw gateway.Gateway, p *authprovider.Local, r *refresh.Service, b *refresh.Blacklist) *AuthHandler {
	return &AuthHandler{cfg: cfg, gw: gw, provider: p, refreshSvc: r, blacklist: b}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/register", h.SignUp)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

// SignUp creates a credential account and provisions the profile record. When
// the account lands but the profile write fails the account is kept; the user
// can sign in and will be treated as profile-missing until a repair.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := identity.Role(req.Role)
	if role != identity.RoleCreator && role != identity.RoleCompany {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported role"})
		return
	}

	p, err := h.provider.CreateAccount(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("register", "failure").Inc()
		status := http.StatusBadRequest
		if !authprovider.IsAuthError(err) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	profile := identity.NewProfileDocument(req.Email, req.DisplayName, role)
	if err := session.ProvisionProfile(c.Request.Context(), h.gw, p.ID, profile); err != nil {
		metrics.AuthEvents.WithLabelValues("register", "failure").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile provisioning failed"})
		return
	}
	metrics.AuthEvents.WithLabelValues("register", "success").Inc()

	ident := identity.FromDocument(p.ID, profile)
	h.respondWithTokens(c, http.StatusCreated, ident)
}

// Login verifies credentials and returns access + refresh tokens.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.provider.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("login", "failure").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}
	doc, err := h.gw.Get(c.Request.Context(), identity.Collection, p.ID)
	if err != nil {
		logger.Errorf("profile fetch for principal %s failed: %v", p.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile lookup failed"})
		return
	}
	if doc == nil {
		logger.Warnf("integrity: principal %s has no profile record", p.ID)
		metrics.AuthEvents.WithLabelValues("login", "failure").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "profile missing"})
		return
	}
	metrics.AuthEvents.WithLabelValues("login", "success").Inc()
	h.respondWithTokens(c, http.StatusOK, identity.FromDocument(p.ID, doc))
}

func (h *AuthHandler) respondWithTokens(c *gin.Context, status int, ident *identity.Identity) {
	rft, err := h.refreshSvc.Issue(c.Request.Context(), ident.ID, h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		logger.Errorf("failed to create refresh session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, ident, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(status, gin.H{
		"accessToken":  access,
		"refreshToken": rft,
		"user":         ident,
		"expiresIn":    int(h.cfg.JWT.AccessTokenTTL.Seconds()),
	})
}

// Refresh accepts a refresh token and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.refreshSvc.Validate(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	doc, err := h.gw.Get(c.Request.Context(), identity.Collection, sess.UserID)
	if err != nil || doc == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile lookup failed"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, identity.FromDocument(sess.UserID, doc), h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "expiresIn": int(h.cfg.JWT.AccessTokenTTL.Seconds())})
}

// Logout revokes the refresh token and blacklists the presented access token
// for the remainder of its lifetime.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if auth := c.GetHeader("Authorization"); auth != "" {
		var at string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &at); n == 1 {
			if exp, err := parseExpFromJWT(at); err == nil {
				if ttl := time.Until(exp); ttl > 0 {
					if err := h.blacklist.Add(c.Request.Context(), at, ttl); err != nil {
						c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
						return
					}
				}
			}
		}
	}

	if err := h.refreshSvc.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
		return
	}
	metrics.AuthEvents.WithLabelValues("logout", "success").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// parseExpFromJWT decodes the payload and returns the exp claim. Payload-only
// parsing, no signature verification; good enough for computing a blacklist TTL.
func parseExpFromJWT(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid token")
	}
	b, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, err
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(b, &claims); err != nil {
		return time.Time{}, err
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	return time.Unix(int64(exp), 0), nil
}
