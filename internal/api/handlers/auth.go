package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/api/middleware"
	"github.com/popupmarket/proxybuy/internal/service"
)

const defaultOAuthProvider = "google"

// AuthService is the session workflow behind the auth routes
type AuthService interface {
	SignUp(ctx context.Context, req service.SignUpRequest) (*service.Session, error)
	SignIn(ctx context.Context, req service.SignInRequest) (*service.Session, error)
	Session(ctx context.Context, p *service.Principal) (*service.SessionInfo, error)
	SignOut(ctx context.Context, p *service.Principal) error
	OAuthStart(ctx context.Context, provider string) (string, error)
	OAuthCallback(ctx context.Context, provider, state, code string) (*service.Session, error)
}

// HandleSignUp handles POST /v1/auth/sign-up
func HandleSignUp(authService AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.SignUpRequest
		if !bindJSON(c, &req) {
			return
		}

		session, err := authService.SignUp(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err, "Failed to sign up")
			return
		}
		c.JSON(http.StatusCreated, newSessionResponse(session))
	}
}

// HandleSignIn handles POST /v1/auth/sign-in
func HandleSignIn(authService AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.SignInRequest
		if !bindJSON(c, &req) {
			return
		}

		session, err := authService.SignIn(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err, "Failed to sign in")
			return
		}
		c.JSON(http.StatusOK, newSessionResponse(session))
	}
}

// HandleSignOut handles POST /v1/auth/sign-out
func HandleSignOut(authService AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.GetPrincipalFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if err := authService.SignOut(c.Request.Context(), principal); err != nil {
			respondError(c, logger, err, "Failed to sign out")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandleSession handles GET /v1/auth/session
func HandleSession(authService AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.GetPrincipalFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		info, err := authService.Session(c.Request.Context(), principal)
		if err != nil {
			respondError(c, logger, err, "Failed to load session")
			return
		}

		user := newUserResponse(info.User)
		user.IsAdmin = &info.IsAdmin
		c.JSON(http.StatusOK, gin.H{
			"user":       user,
			"expires_at": formatTime(principal.Claims.ExpiresAt.Time),
		})
	}
}

// HandleOAuthStart handles GET /v1/auth/oauth/:provider and redirects to the provider
func HandleOAuthStart(authService AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		url, err := authService.OAuthStart(c.Request.Context(), c.Param("provider"))
		if err != nil {
			respondError(c, logger, err, "Failed to start oauth sign-in")
			return
		}
		c.Redirect(http.StatusFound, url)
	}
}

// HandleOAuthCallback handles GET /v1/auth/callback
func HandleOAuthCallback(authService AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if errParam := c.Query("error"); errParam != "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "sign-in was cancelled", "details": errParam})
			return
		}

		provider := c.DefaultQuery("provider", defaultOAuthProvider)
		session, err := authService.OAuthCallback(c.Request.Context(), provider, c.Query("state"), c.Query("code"))
		if err != nil {
			respondError(c, logger, err, "Failed to complete oauth sign-in")
			return
		}
		c.JSON(http.StatusOK, newSessionResponse(session))
	}
}
