package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	HeaderUserID     = "X-User-Id"
	contextUserIDKey = "user_id"
)

// RequireUser takes the learner id forwarded by the gateway. Requests
// without one are rejected.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

func userIDFrom(c *gin.Context) string {
	return c.GetString(contextUserIDKey)
}
