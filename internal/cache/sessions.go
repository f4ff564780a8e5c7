package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "session:revoked:"

// SessionStore remembers revoked session ids until their token would expire anyway
type SessionStore struct {
	redis *redis.Client
	now   func() time.Time
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{redis: client, now: time.Now}
}

// Revoke marks the session id as signed out until expiresAt
func (s *SessionStore) Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, revokedPrefix+sessionID, "1", ttl).Err()
}

// IsRevoked reports whether the session was signed out
func (s *SessionStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.redis.Exists(ctx, revokedPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
