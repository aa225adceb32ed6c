package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shortlist/internal/models"
	"shortlist/internal/services"
)

type FeedbackHandler struct {
	feedback *services.FeedbackService
}

func NewFeedbackHandler(feedback *services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// Vote handles PUT /api/properties/:id/feedback {"vote": "up"|"down", "notes": "..."}.
// Voting again replaces the caller's earlier vote and notes.
func (h *FeedbackHandler) Vote(c *gin.Context) {
	propertyID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Vote  models.Vote `json:"vote"`
		Notes string      `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	fb, err := h.feedback.UpsertFeedback(c.Request.Context(), currentUser(c), propertyID, in.Vote, in.Notes)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fb)
}

// Rate handles PUT /api/properties/:id/ratings/:ratingId {"score": 0-100}.
func (h *FeedbackHandler) Rate(c *gin.Context) {
	propertyID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	ratingID, ok := paramUUID(c, "ratingId")
	if !ok {
		return
	}
	var in struct {
		Score *float64 `json:"score"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Score == nil {
		badRequest(c, "score is required")
		return
	}
	row, err := h.feedback.UpsertRating(c.Request.Context(), currentUser(c), propertyID, ratingID, *in.Score)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}
