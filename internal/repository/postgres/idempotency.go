package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

type idempotencyKeyRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewIdempotencyKeyRepository creates a new idempotency key repository
func NewIdempotencyKeyRepository(db DBTX, logger *zap.Logger) *idempotencyKeyRepository {
	return &idempotencyKeyRepository{db: db, logger: logger}
}

func (r *idempotencyKeyRepository) Get(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	query := `
		SELECT key, user_id, request_id, room_id, request_hash, created_at
		FROM idempotency_keys
		WHERE key = $1
	`

	var ik domain.IdempotencyKey
	var userID uuid.NullUUID

	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&ik.Key,
		&userID,
		&ik.RequestID,
		&ik.RoomID,
		&ik.RequestHash,
		&ik.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "idempotency key", ID: key}
	}
	if err != nil {
		r.logger.Error("Failed to get idempotency key", zap.Error(err))
		return nil, err
	}

	ik.UserID = nullUUIDPtr(userID)
	return &ik, nil
}

func (r *idempotencyKeyRepository) Create(ctx context.Context, ik *domain.IdempotencyKey) error {
	query := `
		INSERT INTO idempotency_keys (key, user_id, request_id, room_id, request_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if ik.CreatedAt.IsZero() {
		ik.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		ik.Key,
		ik.UserID,
		ik.RequestID,
		ik.RoomID,
		ik.RequestHash,
		ik.CreatedAt,
	)
	if isUniqueViolation(err) {
		return &errors.ErrConflict{Resource: "idempotency key", Message: "key already used"}
	}
	if err != nil {
		r.logger.Error("Failed to create idempotency key", zap.Error(err))
		return err
	}
	return nil
}
