package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ibtikar/ibtikar-backend/internal/payments"
	"github.com/ibtikar/ibtikar-backend/pkg/middleware"
)

// PaymentsHandler serves payment listings and settlement.
type PaymentsHandler struct {
	payments *payments.Service
}

func NewPaymentsHandler(p *payments.Service) *PaymentsHandler {
	return &PaymentsHandler{payments: p}
}

func (h *PaymentsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/payments", h.List)
	rg.POST("/payments", h.Create)
	rg.POST("/payments/:id/complete", h.Complete)
}

func (h *PaymentsHandler) List(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	list, err := h.payments.ListFor(c.Request.Context(), ident)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *PaymentsHandler) Create(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req struct {
		ProjectID string  `json:"projectId" binding:"required"`
		CreatorID string  `json:"creatorId" binding:"required"`
		Amount    float64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.payments.Create(c.Request.Context(), ident, req.ProjectID, req.CreatorID, req.Amount)
	if err != nil {
		c.JSON(paymentErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PaymentsHandler) Complete(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	tx, err := h.payments.Complete(c.Request.Context(), ident, c.Param("id"))
	if err != nil {
		c.JSON(paymentErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tx)
}

func paymentErrStatus(err error) int {
	switch {
	case errors.Is(err, payments.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, payments.ErrNotCompany), errors.Is(err, payments.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, payments.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, payments.ErrAlreadyCompleted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
