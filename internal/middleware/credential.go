package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omerdahan/angle-studio/internal/credential"
)

// RequireCredential gates the routes that would spend remote API calls.
// Without an active credential those calls can only fail, so we reject them
// up front with 409 instead of letting the request reach the remote client.
// The credential itself never leaves the server.
func RequireCredential(store *credential.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := store.Resolve(); !ok {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "API credential required",
			})
			return
		}
		c.Next()
	}
}
