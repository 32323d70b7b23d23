package middleware

import (
	"net/http"
	"strings"

	"noizlabs/internal/logger"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// TokenParser validates an access token and returns its user id.
type TokenParser interface {
	Parse(token string) (int64, error)
}

// JWT requires "Authorization: Bearer <token>" and stores the user id
// under "user_id".
func JWT(p TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "reason": "unauthorized"})
			return
		}

		userID, err := p.Parse(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "reason": "unauthorized"})
			return
		}

		c.Set(userIDKey, userID)
		ctx := logger.Enrich(c.Request.Context(), "user_id", userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// UserID returns the id set by JWT.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
