package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ibtikar/ibtikar-backend/internal/applications"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
	"github.com/ibtikar/ibtikar-backend/internal/projects"
	"github.com/ibtikar/ibtikar-backend/pkg/middleware"
)

// ProjectsHandler serves the listings marketplace: browse, post, advance
// status, and the application flow hanging off a listing.
type ProjectsHandler struct {
	projects     *projects.Service
	applications *applications.Service
}

func NewProjectsHandler(p *projects.Service, a *applications.Service) *ProjectsHandler {
	return &ProjectsHandler{projects: p, applications: a}
}

func (h *ProjectsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/projects", h.List)
	rg.POST("/projects", h.Create)
	rg.GET("/projects/:id", h.Get)
	rg.PATCH("/projects/:id/status", h.UpdateStatus)
	rg.GET("/projects/:id/applications", h.ListApplications)
	rg.POST("/projects/:id/applications", h.Apply)
	rg.GET("/applications", h.MyApplications)
}

func (h *ProjectsHandler) List(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var (
		list []*projects.Project
		err  error
	)
	switch c.Query("scope") {
	case "mine":
		list, err = h.projects.ListByCompany(c.Request.Context(), ident.ID)
	case "assigned":
		list, err = h.projects.ListByCreator(c.Request.Context(), ident.ID)
	default:
		list, err = h.projects.List(c.Request.Context(), projects.Status(c.Query("status")))
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ProjectsHandler) Create(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var in projects.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.projects.Create(c.Request.Context(), ident, in)
	if err != nil {
		c.JSON(projectErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProjectsHandler) Get(c *gin.Context) {
	p, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(projectErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProjectsHandler) UpdateStatus(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req struct {
		Status    string `json:"status" binding:"required"`
		CreatorID string `json:"creatorId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.projects.UpdateStatus(c.Request.Context(), ident, c.Param("id"), projects.Status(req.Status), req.CreatorID)
	if err != nil {
		c.JSON(projectErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProjectsHandler) Apply(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.applications.Apply(c.Request.Context(), ident, c.Param("id"), req.Text)
	if err != nil {
		c.JSON(applicationErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, a)
}

// ListApplications returns a listing's applications to its owning company.
func (h *ProjectsHandler) ListApplications(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	list, err := h.applications.ListForProject(c.Request.Context(), ident, c.Param("id"))
	if err != nil {
		c.JSON(applicationErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// MyApplications returns the caller's side of the application flow:
// applications they filed (creator) or applications against their listings
// (company).
func (h *ProjectsHandler) MyApplications(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var (
		list []*applications.Application
		err  error
	)
	if ident.Role == identity.RoleCompany {
		list, err = h.applications.ListForCompany(c.Request.Context(), ident)
	} else {
		list, err = h.applications.ListForCreator(c.Request.Context(), ident)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func projectErrStatus(err error) int {
	switch {
	case errors.Is(err, projects.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, projects.ErrNotCompany), errors.Is(err, projects.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, projects.ErrBadTransition), errors.Is(err, projects.ErrCreatorRequired),
		errors.Is(err, projects.ErrInvalidBudget):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func applicationErrStatus(err error) int {
	switch {
	case errors.Is(err, projects.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, applications.ErrNotCreator), errors.Is(err, applications.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, applications.ErrProjectClosed), errors.Is(err, applications.ErrAlreadyApplied):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
