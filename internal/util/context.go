package util

import (
	"github.com/campuslink/backend/internal/models"
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware.
const (
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"
)

// GetUserFromContext extracts the authenticated user from the Gin context.
// When absent it responds 401 and returns false.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUserKey)
	user, ok := value.(*models.User)
	if !exists || !ok || user == nil {
		RespondUnauthorized(c)
		return nil, false
	}
	return user, true
}

// GetUserIDFromContext is GetUserFromContext for handlers that only need
// the caller's ID.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(ContextUserIDKey)
	if userID == "" {
		RespondUnauthorized(c)
		return "", false
	}
	return userID, true
}
