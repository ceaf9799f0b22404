package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// callerCtxKey is the Gin context key used to store the authenticated caller's user id.
const callerCtxKey = "caller_id"

// APIKeyMiddleware maps X-API-Key → ticket-service user id for the internal
// endpoints. With no keys configured the endpoints are open and no caller is set.
func APIKeyMiddleware(keys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Next()
			return
		}
		apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		userID, ok := keys[apiKey]
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(callerCtxKey, userID)
		c.Next()
	}
}

// CallerID returns the authenticated caller's user id, or "" when the request
// was not authenticated by key.
func CallerID(c *gin.Context) string {
	v, _ := c.Get(callerCtxKey)
	s, _ := v.(string)
	return s
}
