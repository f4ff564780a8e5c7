package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/auth"
	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/oauth"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

const (
	minPasswordLength = 8
	providerPassword  = "password"
)

// SessionRevoker tracks signed-out session ids until their tokens expire
type SessionRevoker interface {
	Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// StateStore keeps the PKCE verifier of a pending OAuth login
type StateStore interface {
	Save(ctx context.Context, state, verifier string) error
	Take(ctx context.Context, state string) (string, error)
}

// IdentityProvider is an external OAuth sign-in provider
type IdentityProvider interface {
	Name() string
	NewVerifier() string
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth.UserInfo, error)
}

// Principal is the authenticated caller of a request
type Principal struct {
	User   *domain.User
	Claims *auth.Claims
}

// SessionInfo is the current user with the admin flag
type SessionInfo struct {
	User    *domain.User
	IsAdmin bool
}

type authService struct {
	repos     *repository.Repositories
	tokens    *auth.TokenManager
	sessions  SessionRevoker
	states    StateStore
	admins    AdminChecker
	providers map[string]IdentityProvider
	logger    *zap.Logger
}

// NewAuthService creates the session service. Providers may be empty when
// OAuth sign-in is not configured.
func NewAuthService(
	repos *repository.Repositories,
	tokens *auth.TokenManager,
	sessions SessionRevoker,
	states StateStore,
	admins AdminChecker,
	logger *zap.Logger,
	providers ...IdentityProvider,
) *authService {
	byName := make(map[string]IdentityProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &authService{
		repos:     repos,
		tokens:    tokens,
		sessions:  sessions,
		states:    states,
		admins:    admins,
		providers: byName,
		logger:    logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a password account and signs it in
func (s *authService) SignUp(ctx context.Context, req SignUpRequest) (*Session, error) {
	email := normalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.Validation("email", "a valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, errors.Validation("password", "password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: &hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Provider:     providerPassword,
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User signed up", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// SignIn checks a password and returns a new session
func (s *authService) SignIn(ctx context.Context, req SignInRequest) (*Session, error) {
	invalid := &errors.ErrUnauthorized{Message: "invalid email or password"}

	user, err := s.repos.User.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, invalid
		}
		return nil, err
	}
	if user.PasswordHash == nil || !auth.CheckPassword(*user.PasswordHash, req.Password) {
		return nil, invalid
	}
	return s.issue(user)
}

func (s *authService) issue(user *domain.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error("Failed to issue session token", zap.Error(err))
		return nil, err
	}
	return &Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        user,
	}, nil
}

// Authenticate resolves a bearer token to its user. Revoked or expired
// tokens and deleted users are rejected.
func (s *authService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, &errors.ErrUnauthorized{Message: "invalid or expired session"}
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("Failed to check session revocation", zap.Error(err))
		return nil, err
	}
	if revoked {
		return nil, &errors.ErrUnauthorized{Message: "session was signed out"}
	}

	userID, _ := claims.Subject()
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, &errors.ErrUnauthorized{Message: "invalid or expired session"}
		}
		return nil, err
	}
	return &Principal{User: user, Claims: claims}, nil
}

// Session returns the signed-in user and whether they administer the site
func (s *authService) Session(ctx context.Context, p *Principal) (*SessionInfo, error) {
	isAdmin, err := s.admins.IsAdmin(ctx, p.User.ID)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{User: p.User, IsAdmin: isAdmin}, nil
}

// SignOut revokes the caller's session until its token would expire
func (s *authService) SignOut(ctx context.Context, p *Principal) error {
	if err := s.sessions.Revoke(ctx, p.Claims.ID, p.Claims.ExpiresAt.Time); err != nil {
		s.logger.Error("Failed to revoke session", zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) provider(name string) (IdentityProvider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, errors.NotFound("oauth provider", name)
	}
	return p, nil
}

// OAuthStart returns the provider authorization URL. The PKCE verifier is
// kept server side under a fresh state value.
func (s *authService) OAuthStart(ctx context.Context, providerName string) (string, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return "", err
	}

	state := uuid.NewString()
	verifier := p.NewVerifier()
	if err := s.states.Save(ctx, providerName+":"+state, verifier); err != nil {
		s.logger.Error("Failed to store oauth state", zap.Error(err))
		return "", err
	}
	return p.AuthCodeURL(state, verifier), nil
}

// OAuthCallback exchanges the authorization code, links or creates the
// user by email and returns a session
func (s *authService) OAuthCallback(ctx context.Context, providerName, state, code string) (*Session, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}
	if state == "" || code == "" {
		return nil, errors.Validation("code", "state and code are required")
	}

	verifier, err := s.states.Take(ctx, providerName+":"+state)
	if err != nil {
		s.logger.Warn("OAuth callback with unknown state", zap.Error(err))
		return nil, &errors.ErrUnauthorized{Message: "sign-in expired, please try again"}
	}

	info, err := p.Exchange(ctx, code, verifier)
	if err != nil {
		s.logger.Error("Failed to exchange authorization code", zap.String("provider", providerName), zap.Error(err))
		return nil, &errors.ErrUnauthorized{Message: "sign-in with provider failed"}
	}
	email := normalizeEmail(info.Email)
	if email == "" || !info.EmailVerified {
		return nil, &errors.ErrUnauthorized{Message: "provider account has no verified email"}
	}

	user, err := s.repos.User.GetByEmail(ctx, email)
	switch {
	case err == nil:
		changed := false
		if user.DisplayName == "" && info.Name != "" {
			user.DisplayName = info.Name
			changed = true
		}
		if user.AvatarURL == nil && info.Picture != "" {
			picture := info.Picture
			user.AvatarURL = &picture
			changed = true
		}
		if changed {
			if err := s.repos.User.Update(ctx, user); err != nil {
				return nil, err
			}
		}
	case errors.IsNotFound(err):
		user = &domain.User{
			Email:       email,
			DisplayName: info.Name,
			Provider:    p.Name(),
		}
		if info.Picture != "" {
			picture := info.Picture
			user.AvatarURL = &picture
		}
		if err := s.repos.User.Create(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("User signed up with provider", zap.String("user_id", user.ID.String()), zap.String("provider", p.Name()))
	default:
		return nil, err
	}

	return s.issue(user)
}
