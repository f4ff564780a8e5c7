package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

type productRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db DBTX, logger *zap.Logger) *productRepository {
	return &productRepository{db: db, logger: logger}
}

const productColumns = `id, event_id, name, price, image_url, status, created_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*domain.Product, error) {
	var product domain.Product
	var imageURL sql.NullString

	err := row.Scan(
		&product.ID,
		&product.EventID,
		&product.Name,
		&product.Price,
		&imageURL,
		&product.Status,
		&product.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	product.ImageURL = nullStringPtr(imageURL)
	return &product, nil
}

func (r *productRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			r.logger.Error("Failed to scan product", zap.Error(err))
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *productRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*domain.Product, error) {
	return r.list(ctx,
		`SELECT `+productColumns+` FROM products WHERE event_id = $1 ORDER BY created_at ASC`,
		eventID,
	)
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get product by ID", zap.Error(err))
		return nil, err
	}
	return product, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	out := make(map[uuid.UUID]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	products, err := r.list(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1::uuid[])`,
		pq.Array(uuidStrings(ids)),
	)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// SearchByName matches products whose name contains query, case-insensitively
func (r *productRepository) SearchByName(ctx context.Context, query string, limit, offset int) ([]*domain.Product, error) {
	pattern := "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query) + "%"
	return r.list(ctx,
		`SELECT `+productColumns+` FROM products WHERE name ILIKE $1 ORDER BY name ASC, id ASC LIMIT $2 OFFSET $3`,
		pattern, limit, offset,
	)
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, event_id, name, price, image_url, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now()
	}
	if product.Status == "" {
		product.Status = domain.ProductStatusOnSale
	}

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.EventID,
		product.Name,
		product.Price,
		product.ImageURL,
		product.Status,
		product.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create product", zap.Error(err))
		return err
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, price = $3, image_url = $4, status = $5
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Price,
		product.ImageURL,
		product.Status,
	)
	if err != nil {
		r.logger.Error("Failed to update product", zap.Error(err))
		return err
	}
	return requireAffected(res, "product", product.ID)
}

// Delete removes the product. Options go with it via ON DELETE CASCADE.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return &errors.ErrConflict{Resource: "product", Message: "product is referenced by requests"}
	}
	if err != nil {
		r.logger.Error("Failed to delete product", zap.Error(err))
		return err
	}
	return requireAffected(res, "product", id)
}
