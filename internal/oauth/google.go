// Package oauth implements redirect-based sign-in with an external identity provider.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/popupmarket/proxybuy/internal/config"
)

const googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// UserInfo is the identity returned by the provider after a code exchange
type UserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Provider is the Google OAuth client
type Provider struct {
	config      *oauth2.Config
	userinfoURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewGoogleProvider creates a Google OAuth client from configuration
func NewGoogleProvider(cfg config.OAuthConfig, logger *zap.Logger) *Provider {
	return newProvider(&oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Endpoint:     endpoints.Google,
		Scopes:       []string{"openid", "email", "profile"},
	}, googleUserinfoURL, logger)
}

func newProvider(cfg *oauth2.Config, userinfoURL string, logger *zap.Logger) *Provider {
	return &Provider{
		config:      cfg,
		userinfoURL: userinfoURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// Name is the provider key used in routes and stored on users
func (p *Provider) Name() string {
	return "google"
}

// NewVerifier returns a fresh PKCE code verifier
func (p *Provider) NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL builds the consent URL for state with the S256 challenge of verifier
func (p *Provider) AuthCodeURL(state, verifier string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades the authorization code for a token and fetches the user's identity
func (p *Provider) Exchange(ctx context.Context, code, verifier string) (*UserInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		p.logger.Warn("OAuth code exchange failed", zap.Error(err))
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	return p.fetchUserInfo(ctx, token)
}

func (p *Provider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	info.Email = strings.ToLower(strings.TrimSpace(info.Email))
	if info.Subject == "" || info.Email == "" {
		return nil, fmt.Errorf("userinfo response is missing subject or email")
	}

	return &info, nil
}
