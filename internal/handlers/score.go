package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ScoreCalculator recomputes a property's combined score from its id string.
type ScoreCalculator interface {
	Calculate(ctx context.Context, propertyID string) (float64, error)
}

type ScoreHandler struct {
	calc ScoreCalculator
}

func NewScoreHandler(calc ScoreCalculator) *ScoreHandler {
	return &ScoreHandler{calc: calc}
}

// Calculate handles POST /api/calculate-score {"property_id": "..."}.
func (h *ScoreHandler) Calculate(c *gin.Context) {
	var in struct {
		PropertyID string `json:"property_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	score, err := h.calc.Calculate(c.Request.Context(), in.PropertyID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"combined_score": score})
}

// Preflight answers OPTIONS when the CORS middleware let it through.
func (h *ScoreHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
