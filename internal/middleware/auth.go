package middleware

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shortlist/internal/models"
)

const (
	CheckUserKey  = "user"
	SessionUserID = "user_id"
)

// UserLoader resolves the session's user id to a user.
type UserLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// LoadUser retrieves the user from the session and sets it on the context.
// A stale or malformed session id is cleared.
func LoadUser(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		raw, ok := session.Get(SessionUserID).(string)
		if !ok || raw == "" {
			c.Next()
			return
		}

		id, err := uuid.Parse(raw)
		if err == nil {
			var user *models.User
			if user, err = users.Get(c.Request.Context(), id); err == nil {
				c.Set(CheckUserKey, user)
				c.Next()
				return
			}
		}

		session.Delete(SessionUserID)
		_ = session.Save()
		c.Next()
	}
}

// CurrentUser returns the user set by LoadUser, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CheckUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// AuthRequired ensures a user is logged in.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireRole lets through only users holding one of roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}
