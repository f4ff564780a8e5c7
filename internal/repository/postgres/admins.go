package postgres

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type adminRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewAdminRepository creates a new admin membership repository
func NewAdminRepository(db DBTX, logger *zap.Logger) *adminRepository {
	return &adminRepository{db: db, logger: logger}
}

func (r *adminRepository) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM admins WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check admin membership", zap.Error(err))
		return false, err
	}
	return exists, nil
}

func (r *adminRepository) Add(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID,
	)
	if err != nil {
		r.logger.Error("Failed to add admin", zap.Error(err))
		return err
	}
	return nil
}
