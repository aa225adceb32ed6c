package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shortlist/internal/apierr"
	"shortlist/internal/models"
	"shortlist/internal/services"
)

// AdminHandler exposes the power-user tools: conflict checks and manual
// score recomputes.
type AdminHandler struct {
	conflicts *services.ConflictDetector
}

func NewAdminHandler(conflicts *services.ConflictDetector) *AdminHandler {
	return &AdminHandler{conflicts: conflicts}
}

func (h *AdminHandler) checkPower(c *gin.Context) *models.User {
	user := currentUser(c)
	if !user.IsPower() {
		RespondError(c, apierr.Forbidden(errors.New("only power users can manage score conflicts")))
		return nil
	}
	return user
}

// CheckConflict handles GET /api/properties/:id/conflict.
func (h *AdminHandler) CheckConflict(c *gin.Context) {
	if h.checkPower(c) == nil {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	report, err := h.conflicts.Check(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ResolveConflict handles POST /api/properties/:id/conflict/resolve.
func (h *AdminHandler) ResolveConflict(c *gin.Context) {
	if h.checkPower(c) == nil {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	score, err := h.conflicts.Resolve(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"combined_score": score,
		"state":          h.conflicts.State(id),
	})
}
