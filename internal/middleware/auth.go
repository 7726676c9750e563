package middleware

import (
	"strings"

	"github.com/campuslink/backend/internal/auth"
	"github.com/campuslink/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// Auth requires a valid bearer token and stores the caller under the
// "user" and "user_id" context keys.
func Auth(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == "" || token == header {
			util.RespondUnauthorized(c, "missing bearer token")
			return
		}

		user, err := verifier.ValidateToken(c.Request.Context(), token)
		if err != nil {
			util.RespondError(c, err)
			return
		}

		c.Set(util.ContextUserKey, user)
		c.Set(util.ContextUserIDKey, user.ID)
		c.Next()
	}
}
