package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const oauthStatePrefix = "oauth:state:"

// ErrUnknownState is returned when a callback state was never issued or already used
var ErrUnknownState = errors.New("unknown or expired oauth state")

// OAuthStateStore keeps the PKCE verifier of a pending login keyed by its state
type OAuthStateStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewOAuthStateStore(client *redis.Client, ttl time.Duration) *OAuthStateStore {
	return &OAuthStateStore{redis: client, ttl: ttl}
}

func (s *OAuthStateStore) Save(ctx context.Context, state, verifier string) error {
	return s.redis.Set(ctx, oauthStatePrefix+state, verifier, s.ttl).Err()
}

// Take returns the verifier and deletes it, so every state is usable once
func (s *OAuthStateStore) Take(ctx context.Context, state string) (string, error) {
	verifier, err := s.redis.GetDel(ctx, oauthStatePrefix+state).Result()
	if err == redis.Nil {
		return "", ErrUnknownState
	}
	if err != nil {
		return "", err
	}
	return verifier, nil
}
