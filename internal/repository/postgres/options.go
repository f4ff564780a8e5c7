package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

type optionRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewOptionRepository creates a new product option repository
func NewOptionRepository(db DBTX, logger *zap.Logger) *optionRepository {
	return &optionRepository{db: db, logger: logger}
}

const optionColumns = `id, product_id, name, price_delta, price_override, image_url, status, sort_order, created_at`

func scanOption(row interface{ Scan(...interface{}) error }) (*domain.ProductOption, error) {
	var option domain.ProductOption
	var priceOverride sql.NullInt64
	var imageURL sql.NullString

	err := row.Scan(
		&option.ID,
		&option.ProductID,
		&option.Name,
		&option.PriceDelta,
		&priceOverride,
		&imageURL,
		&option.Status,
		&option.SortOrder,
		&option.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	option.PriceOverride = nullInt64Ptr(priceOverride)
	option.ImageURL = nullStringPtr(imageURL)
	return &option, nil
}

func (r *optionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.ProductOption, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query product options", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var options []*domain.ProductOption
	for rows.Next() {
		option, err := scanOption(rows)
		if err != nil {
			r.logger.Error("Failed to scan product option", zap.Error(err))
			return nil, err
		}
		options = append(options, option)
	}
	return options, rows.Err()
}

func (r *optionRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.ProductOption, error) {
	return r.list(ctx,
		`SELECT `+optionColumns+` FROM product_options WHERE product_id = $1 ORDER BY sort_order ASC, created_at ASC`,
		productID,
	)
}

// ListByProducts groups options by product, each group in display order
func (r *optionRepository) ListByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]*domain.ProductOption, error) {
	out := make(map[uuid.UUID][]*domain.ProductOption, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	options, err := r.list(ctx,
		`SELECT `+optionColumns+` FROM product_options WHERE product_id = ANY($1::uuid[]) ORDER BY sort_order ASC, created_at ASC`,
		pq.Array(uuidStrings(productIDs)),
	)
	if err != nil {
		return nil, err
	}
	for _, o := range options {
		out[o.ProductID] = append(out[o.ProductID], o)
	}
	return out, nil
}

func (r *optionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProductOption, error) {
	query := `SELECT ` + optionColumns + ` FROM product_options WHERE id = $1`

	option, err := scanOption(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "option", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get product option by ID", zap.Error(err))
		return nil, err
	}
	return option, nil
}

func (r *optionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.ProductOption, error) {
	out := make(map[uuid.UUID]*domain.ProductOption, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	options, err := r.list(ctx,
		`SELECT `+optionColumns+` FROM product_options WHERE id = ANY($1::uuid[])`,
		pq.Array(uuidStrings(ids)),
	)
	if err != nil {
		return nil, err
	}
	for _, o := range options {
		out[o.ID] = o
	}
	return out, nil
}

func (r *optionRepository) Create(ctx context.Context, option *domain.ProductOption) error {
	query := `
		INSERT INTO product_options (id, product_id, name, price_delta, price_override, image_url, status, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if option.ID == uuid.Nil {
		option.ID = uuid.New()
	}
	if option.CreatedAt.IsZero() {
		option.CreatedAt = time.Now()
	}
	if option.Status == "" {
		option.Status = domain.ProductStatusOnSale
	}

	_, err := r.db.ExecContext(ctx, query,
		option.ID,
		option.ProductID,
		option.Name,
		option.PriceDelta,
		option.PriceOverride,
		option.ImageURL,
		option.Status,
		option.SortOrder,
		option.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create product option", zap.Error(err))
		return err
	}
	return nil
}

func (r *optionRepository) Update(ctx context.Context, option *domain.ProductOption) error {
	query := `
		UPDATE product_options
		SET name = $2, price_delta = $3, price_override = $4, image_url = $5, status = $6, sort_order = $7
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		option.ID,
		option.Name,
		option.PriceDelta,
		option.PriceOverride,
		option.ImageURL,
		option.Status,
		option.SortOrder,
	)
	if err != nil {
		r.logger.Error("Failed to update product option", zap.Error(err))
		return err
	}
	return requireAffected(res, "option", option.ID)
}

func (r *optionRepository) UpdateSortOrder(ctx context.Context, id uuid.UUID, sortOrder int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE product_options SET sort_order = $2 WHERE id = $1`, id, sortOrder,
	)
	if err != nil {
		r.logger.Error("Failed to update option sort order", zap.Error(err))
		return err
	}
	return requireAffected(res, "option", id)
}

func (r *optionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM product_options WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return &errors.ErrConflict{Resource: "option", Message: "option is referenced by requests"}
	}
	if err != nil {
		r.logger.Error("Failed to delete product option", zap.Error(err))
		return err
	}
	return requireAffected(res, "option", id)
}
