package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/service"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

const principalKey = "principal"

// Authenticator resolves a bearer token to the calling user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*service.Principal, error)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// AuthMiddleware rejects requests without a valid session
func AuthMiddleware(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			var unauth *errors.ErrUnauthorized
			if stderrors.As(err, &unauth) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauth.Error()})
				return
			}
			logger.Error("Failed to authenticate request", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches the caller when a valid token is sent and
// lets anonymous requests through. An invalid token is still rejected.
func OptionalAuthMiddleware(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	required := AuthMiddleware(auth, logger)
	return func(c *gin.Context) {
		if bearerToken(c) == "" {
			c.Next()
			return
		}
		required(c)
	}
}

// AdminMiddleware allows only members of the admins list. It must run after AuthMiddleware.
func AdminMiddleware(admins service.AdminChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUserFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		isAdmin, err := admins.IsAdmin(c.Request.Context(), user.ID)
		if err != nil {
			logger.Error("Failed to check admin membership", zap.Error(err), zap.String("user_id", user.ID.String()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// GetPrincipalFromContext returns the authenticated caller
func GetPrincipalFromContext(c *gin.Context) (*service.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	principal, ok := v.(*service.Principal)
	return principal, ok
}

// GetUserFromContext returns the authenticated user
func GetUserFromContext(c *gin.Context) (*domain.User, bool) {
	principal, ok := GetPrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, false
	}
	return principal.User, true
}
