package service

import (
	"context"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/messaging"
	"github.com/popupmarket/proxybuy/internal/metrics"
)

// ObjectStore stores uploaded files and returns their public address
type ObjectStore interface {
	Put(ctx context.Context, bucket, objectPath string, r io.Reader) error
	PublicURL(bucket, objectPath string) string
}

// AdminChecker answers whether a user belongs to the administrators list
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// publish sends a domain event after a commit. Failures are logged and counted, never returned.
func publish(ctx context.Context, publisher messaging.Publisher, logger *zap.Logger, routingKey string, data interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, routingKey, messaging.NewEvent(routingKey, data)); err != nil {
		metrics.PublishFailures.Inc()
		logger.Warn("Failed to publish event", zap.String("routing_key", routingKey), zap.Error(err))
	}
}
