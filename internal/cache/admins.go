package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/repository"
)

const adminPrefix = "admin:member:"

// AdminCache answers admin membership checks from redis, falling back to the
// admins table on a miss or when redis is unavailable.
type AdminCache struct {
	redis  *redis.Client
	admins repository.AdminRepository
	ttl    time.Duration
	logger *zap.Logger
}

func NewAdminCache(client *redis.Client, admins repository.AdminRepository, ttl time.Duration, logger *zap.Logger) *AdminCache {
	return &AdminCache{
		redis:  client,
		admins: admins,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *AdminCache) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	key := adminPrefix + userID.String()

	cached, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		return cached == "1", nil
	case err != redis.Nil:
		c.logger.Warn("Admin cache read failed", zap.Error(err))
	}

	isAdmin, err := c.admins.IsAdmin(ctx, userID)
	if err != nil {
		return false, err
	}

	val := "0"
	if isAdmin {
		val = "1"
	}
	if err := c.redis.Set(ctx, key, val, c.ttl).Err(); err != nil {
		c.logger.Warn("Admin cache write failed", zap.Error(err))
	}
	return isAdmin, nil
}

// Forget drops the cached answer for a user, used after granting membership
func (c *AdminCache) Forget(ctx context.Context, userID uuid.UUID) error {
	return c.redis.Del(ctx, adminPrefix+userID.String()).Err()
}
