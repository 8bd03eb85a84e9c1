package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/guard"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
	"github.com/ibtikar/ibtikar-backend/pkg/logger"
)

const identityKey = "identity"

// RequireIdentity runs after AuthMiddleware and resolves the caller's
// profile record into an Identity. A verified token whose profile record is
// gone is the integrity case the session layer warns about: the caller is
// treated as anonymous, pointed at the login entry point, never given a
// fabricated profile.
func RequireIdentity(gw gateway.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, ok := Subject(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "login": guard.LoginPath})
			return
		}
		doc, err := gw.Get(c.Request.Context(), identity.Collection, sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profile lookup failed"})
			return
		}
		if doc == nil {
			logger.Warnf("integrity: principal %s has no profile record", sub)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "profile missing", "login": guard.LoginPath})
			return
		}
		c.Set(identityKey, identity.FromDocument(sub, doc))
		c.Next()
	}
}

// Identity returns the Identity resolved by RequireIdentity.
func Identity(c *gin.Context) (*identity.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	ident, ok := v.(*identity.Identity)
	return ident, ok
}
