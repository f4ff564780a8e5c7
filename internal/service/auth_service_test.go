package service

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popupmarket/proxybuy/internal/auth"
	"github.com/popupmarket/proxybuy/internal/oauth"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

type memoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (r *memoryRevoker) Revoke(_ context.Context, id string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revoked == nil {
		r.revoked = map[string]time.Time{}
	}
	r.revoked[id] = expiresAt
	return nil
}

func (r *memoryRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[id]
	return ok, nil
}

type memoryStates struct {
	mu     sync.Mutex
	states map[string]string
}

func (s *memoryStates) Save(_ context.Context, state, verifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states == nil {
		s.states = map[string]string{}
	}
	s.states[state] = verifier
	return nil
}

func (s *memoryStates) Take(_ context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.states[state]
	if !ok {
		return "", stderrors.New("unknown state")
	}
	delete(s.states, state)
	return v, nil
}

type stubProvider struct {
	info         *oauth.UserInfo
	lastVerifier string
}

func (p *stubProvider) Name() string        { return "google" }
func (p *stubProvider) NewVerifier() string { return "verifier-123" }
func (p *stubProvider) AuthCodeURL(state, _ string) string {
	return "https://accounts.example.com/auth?state=" + state
}
func (p *stubProvider) Exchange(_ context.Context, _, verifier string) (*oauth.UserInfo, error) {
	p.lastVerifier = verifier
	return p.info, nil
}

func newAuthService(f *fixture, provider *stubProvider) *authService {
	return NewAuthService(
		f.repos,
		auth.NewTokenManager("test-secret", time.Hour),
		&memoryRevoker{},
		&memoryStates{},
		f.repos.Admin,
		f.logger,
		provider,
	)
}

func TestAuth_SignUpSignInSignOut(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f, &stubProvider{})
	ctx := context.Background()

	session, err := svc.SignUp(ctx, SignUpRequest{Email: " New@Example.com ", Password: "hunter22!"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", session.TokenType)
	assert.Equal(t, "new@example.com", session.User.Email)

	_, err = svc.SignUp(ctx, SignUpRequest{Email: "new@example.com", Password: "another-pass"})
	var conflict *errors.ErrConflict
	assert.True(t, stderrors.As(err, &conflict))

	_, err = svc.SignIn(ctx, SignInRequest{Email: "new@example.com", Password: "wrong-pass"})
	var unauth *errors.ErrUnauthorized
	require.True(t, stderrors.As(err, &unauth))
	assert.Equal(t, "invalid email or password", unauth.Message)

	session, err = svc.SignIn(ctx, SignInRequest{Email: "NEW@example.com", Password: "hunter22!"})
	require.NoError(t, err)

	principal, err := svc.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, principal.User.ID)

	info, err := svc.Session(ctx, principal)
	require.NoError(t, err)
	assert.False(t, info.IsAdmin)

	require.NoError(t, svc.SignOut(ctx, principal))
	_, err = svc.Authenticate(ctx, session.AccessToken)
	assert.True(t, stderrors.As(err, &unauth))
}

func TestAuth_ShortPasswordRejected(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f, &stubProvider{})

	_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "a@b.c", Password: "short"})
	var verr *errors.ErrValidation
	require.True(t, stderrors.As(err, &verr))
	assert.Equal(t, "password", verr.Field)
}

func TestAuth_SessionReportsAdmin(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f, &stubProvider{})
	ctx := context.Background()
	require.NoError(t, f.repos.Admin.Add(ctx, f.seller.ID))

	info, err := svc.Session(ctx, &Principal{User: f.seller})
	require.NoError(t, err)
	assert.True(t, info.IsAdmin)
}

func TestAuth_OAuthFlow(t *testing.T) {
	f := newFixture(t)
	provider := &stubProvider{info: &oauth.UserInfo{
		Subject:       "g-1",
		Email:         "buyer@example.com",
		EmailVerified: true,
		Name:          "Buyer Kim",
		Picture:       "https://img.example.com/me.png",
	}}
	svc := newAuthService(f, provider)
	ctx := context.Background()

	authURL, err := svc.OAuthStart(ctx, "google")
	require.NoError(t, err)
	require.Contains(t, authURL, "state=")
	state := authURL[len("https://accounts.example.com/auth?state="):]

	session, err := svc.OAuthCallback(ctx, "google", state, "code-xyz")
	require.NoError(t, err)
	assert.Equal(t, "verifier-123", provider.lastVerifier)
	assert.Equal(t, f.buyer.ID, session.User.ID)
	require.NotNil(t, session.User.AvatarURL)

	// states are single use
	_, err = svc.OAuthCallback(ctx, "google", state, "code-xyz")
	var unauth *errors.ErrUnauthorized
	assert.True(t, stderrors.As(err, &unauth))

	_, err = svc.OAuthStart(ctx, "github")
	assert.True(t, errors.IsNotFound(err))
}

func TestAuth_OAuthCreatesUser(t *testing.T) {
	f := newFixture(t)
	provider := &stubProvider{info: &oauth.UserInfo{Email: "fresh@example.com", EmailVerified: true, Name: "Fresh"}}
	svc := newAuthService(f, provider)
	ctx := context.Background()

	authURL, err := svc.OAuthStart(ctx, "google")
	require.NoError(t, err)
	state := authURL[len("https://accounts.example.com/auth?state="):]

	session, err := svc.OAuthCallback(ctx, "google", state, "code")
	require.NoError(t, err)
	assert.Equal(t, "google", session.User.Provider)

	stored, err := f.repos.User.GetByEmail(ctx, "fresh@example.com")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, stored.ID)
	assert.Nil(t, stored.PasswordHash)
}
