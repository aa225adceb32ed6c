package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shortlist/internal/models"
	"shortlist/internal/services"
)

// CatalogHandler serves a user's priorities and rating criteria.
type CatalogHandler struct {
	catalog *services.CatalogService
}

func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) ListPriorities(c *gin.Context) {
	items, err := h.catalog.ListPriorities(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *CatalogHandler) CreatePriority(c *gin.Context) {
	var in struct {
		Name   string `json:"name"`
		Weight int    `json:"weight"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.catalog.CreatePriority(c.Request.Context(), currentUser(c), in.Name, in.Weight)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *CatalogHandler) DeletePriority(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeletePriority(c.Request.Context(), currentUser(c), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) ListCriteria(c *gin.Context) {
	items, err := h.catalog.ListRatingCriteria(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// CreateCriterion takes {name, category}; points follow from the category.
func (h *CatalogHandler) CreateCriterion(c *gin.Context) {
	var in struct {
		Name     string          `json:"name"`
		Category models.Category `json:"category"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	rc, err := h.catalog.CreateRatingCriterion(c.Request.Context(), currentUser(c), in.Name, in.Category)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rc)
}

func (h *CatalogHandler) DeleteCriterion(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteRatingCriterion(c.Request.Context(), currentUser(c), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
