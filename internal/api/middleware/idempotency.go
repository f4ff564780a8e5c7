package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader     = "Idempotency-Key"
	idempotencyKeyContext = "idempotency_key"
	maxIdempotencyKeyLen  = 255
)

// IdempotencyMiddleware reads the Idempotency-Key header. The submit
// handler stores and replays results keyed by it. It must run after
// OptionalAuthMiddleware.
func IdempotencyMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			logger.Debug("Rejected oversized idempotency key", zap.Int("length", len(key)))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "idempotency key too long"})
			return
		}

		// Guests have no account to scope the key by, so their address is used
		if _, ok := GetPrincipalFromContext(c); !ok {
			key = c.ClientIP() + "|" + key
		}
		c.Set(idempotencyKeyContext, key)
		c.Next()
	}
}

// GetIdempotencyKey returns the key sent with the request, if any.
// Keys from anonymous callers are prefixed with the client address.
func GetIdempotencyKey(c *gin.Context) string {
	return c.GetString(idempotencyKeyContext)
}
