package handlers

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shortlist/internal/apierr"
	"shortlist/internal/middleware"
	"shortlist/internal/services"
)

type SessionEvent string

const (
	SignedIn  SessionEvent = "signed_in"
	SignedOut SessionEvent = "signed_out"
)

// SessionChangeFunc is told about every sign-in and sign-out.
type SessionChangeFunc func(ctx context.Context, userID uuid.UUID, event SessionEvent)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthHandler struct {
	users    *services.UserService
	onChange SessionChangeFunc
}

func NewAuthHandler(users *services.UserService, onChange SessionChangeFunc) *AuthHandler {
	if onChange == nil {
		onChange = func(context.Context, uuid.UUID, SessionEvent) {}
	}
	return &AuthHandler{users: users, onChange: onChange}
}

// Signup registers an account and signs it in.
func (h *AuthHandler) Signup(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	user, err := h.users.Signup(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.startSession(c, user.ID); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	user, err := h.users.Authenticate(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.startSession(c, user.ID); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	user := currentUser(c)
	session.Clear()
	if err := session.Save(); err != nil {
		RespondError(c, apierr.Upstream(err))
		return
	}
	if user != nil {
		h.onChange(c.Request.Context(), user.ID, SignedOut)
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (h *AuthHandler) startSession(c *gin.Context, userID uuid.UUID) error {
	session := sessions.Default(c)
	session.Set(middleware.SessionUserID, userID.String())
	if err := session.Save(); err != nil {
		return apierr.Upstream(err)
	}
	h.onChange(c.Request.Context(), userID, SignedIn)
	return nil
}
