package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shortlist/internal/apierr"
	"shortlist/internal/middleware"
	"shortlist/internal/models"
)

// RespondError writes err as {"error": msg} with the status it carries.
// Internal failures get a generic message; the detail goes to the request log.
func RespondError(c *gin.Context, err error) {
	status := apierr.StatusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "internal server error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// badRequest is RespondError for malformed input.
func badRequest(c *gin.Context, msg string) {
	RespondError(c, apierr.Validation(errors.New(msg)))
}

// paramUUID parses the named path parameter, answering 400 when it is not a uuid.
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// currentUser is the authenticated user. Routes behind AuthRequired always have one.
func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}
