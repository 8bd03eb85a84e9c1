package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
	"github.com/ibtikar/ibtikar-backend/pkg/middleware"
)

// MeHandler serves the caller's own profile.
type MeHandler struct {
	gw gateway.Gateway
}

func NewMeHandler(gw gateway.Gateway) *MeHandler { return &MeHandler{gw: gw} }

func (h *MeHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
	rg.PUT("/me/profile", h.UpdateProfile)
}

func (h *MeHandler) Me(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	c.JSON(http.StatusOK, ident)
}

// UpdateProfile merges the submitted fields into the profile record. Role and
// email are silently dropped; submitting profile fields marks the profile
// complete.
func (h *MeHandler) UpdateProfile(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var partial gateway.Document
	if err := c.ShouldBindJSON(&partial); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := identity.ProfilePatch(partial)
	if len(patch) == 0 {
		c.JSON(http.StatusOK, ident)
		return
	}
	if err := h.gw.Put(c.Request.Context(), identity.Collection, ident.ID, patch, true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile update failed"})
		return
	}
	doc, err := h.gw.Get(c.Request.Context(), identity.Collection, ident.ID)
	if err != nil || doc == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile lookup failed"})
		return
	}
	c.JSON(http.StatusOK, identity.FromDocument(ident.ID, doc))
}
