package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

type proxyRequestRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewProxyRequestRepository creates a new proxy request repository
func NewProxyRequestRepository(db DBTX, logger *zap.Logger) *proxyRequestRepository {
	return &proxyRequestRepository{db: db, logger: logger}
}

const requestColumns = `id, event_id, agent_id, buyer_user_id, status, customer_name, phone, delivery_method, address, total_amount, created_at, updated_at`

func scanRequest(row interface{ Scan(...interface{}) error }) (*domain.ProxyRequest, error) {
	var req domain.ProxyRequest
	var buyerID uuid.NullUUID
	var address sql.NullString

	err := row.Scan(
		&req.ID,
		&req.EventID,
		&req.AgentID,
		&buyerID,
		&req.Status,
		&req.CustomerName,
		&req.Phone,
		&req.DeliveryMethod,
		&address,
		&req.TotalAmount,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.BuyerUserID = nullUUIDPtr(buyerID)
	req.Address = nullStringPtr(address)
	return &req, nil
}

func (r *proxyRequestRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.ProxyRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query proxy requests", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var reqs []*domain.ProxyRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			r.logger.Error("Failed to scan proxy request", zap.Error(err))
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (r *proxyRequestRepository) Create(ctx context.Context, req *domain.ProxyRequest) error {
	query := `
		INSERT INTO proxy_requests (id, event_id, agent_id, buyer_user_id, status, customer_name, phone,
			delivery_method, address, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	now := time.Now()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = domain.RequestStatusPending
	}

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.EventID,
		req.AgentID,
		req.BuyerUserID,
		req.Status,
		req.CustomerName,
		req.Phone,
		req.DeliveryMethod,
		req.Address,
		req.TotalAmount,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create proxy request", zap.Error(err))
		return err
	}
	return nil
}

func (r *proxyRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProxyRequest, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM proxy_requests WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "request", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get proxy request by ID", zap.Error(err))
		return nil, err
	}
	return req, nil
}

func (r *proxyRequestRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.ProxyRequest, error) {
	return r.list(ctx,
		`SELECT `+requestColumns+` FROM proxy_requests WHERE buyer_user_id = $1 ORDER BY created_at DESC`,
		buyerID,
	)
}

func (r *proxyRequestRepository) ListByAgents(ctx context.Context, agentIDs []uuid.UUID) ([]*domain.ProxyRequest, error) {
	if len(agentIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx,
		`SELECT `+requestColumns+` FROM proxy_requests WHERE agent_id = ANY($1::uuid[]) ORDER BY created_at DESC`,
		pq.Array(uuidStrings(agentIDs)),
	)
}

func (r *proxyRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RequestStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE proxy_requests SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now(),
	)
	if err != nil {
		r.logger.Error("Failed to update proxy request status", zap.Error(err))
		return err
	}
	return requireAffected(res, "request", id)
}

type proxyRequestItemRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewProxyRequestItemRepository creates a new request line item repository
func NewProxyRequestItemRepository(db DBTX, logger *zap.Logger) *proxyRequestItemRepository {
	return &proxyRequestItemRepository{db: db, logger: logger}
}

func (r *proxyRequestItemRepository) CreateBatch(ctx context.Context, items []*domain.ProxyRequestItem) error {
	query := `
		INSERT INTO proxy_request_items (id, request_id, product_id, option_id, qty, price_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now()
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}

		_, err := r.db.ExecContext(ctx, query,
			item.ID,
			item.RequestID,
			item.ProductID,
			item.OptionID,
			item.Quantity,
			item.PriceSnapshot,
			item.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create proxy request item", zap.Error(err))
			return err
		}
	}
	return nil
}

func (r *proxyRequestItemRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) ([]*domain.ProxyRequestItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, product_id, option_id, qty, price_snapshot, created_at
		FROM proxy_request_items
		WHERE request_id = $1
		ORDER BY created_at ASC, id ASC`, requestID,
	)
	if err != nil {
		r.logger.Error("Failed to get proxy request items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []*domain.ProxyRequestItem
	for rows.Next() {
		var item domain.ProxyRequestItem
		var optionID uuid.NullUUID
		if err := rows.Scan(
			&item.ID,
			&item.RequestID,
			&item.ProductID,
			&optionID,
			&item.Quantity,
			&item.PriceSnapshot,
			&item.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan proxy request item", zap.Error(err))
			return nil, err
		}
		item.OptionID = nullUUIDPtr(optionID)
		items = append(items, &item)
	}
	return items, rows.Err()
}

type requestEventRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewRequestEventRepository creates a new request audit event repository
func NewRequestEventRepository(db DBTX, logger *zap.Logger) *requestEventRepository {
	return &requestEventRepository{db: db, logger: logger}
}

func (r *requestEventRepository) Create(ctx context.Context, event *domain.RequestEvent) error {
	query := `
		INSERT INTO request_events (id, request_id, event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	data, err := json.Marshal(event.EventData)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.RequestID,
		event.EventType,
		data,
		event.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create request event", zap.Error(err))
		return err
	}
	return nil
}

func (r *requestEventRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*domain.RequestEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, event_type, event_data, created_at
		FROM request_events
		WHERE request_id = $1
		ORDER BY created_at ASC`, requestID,
	)
	if err != nil {
		r.logger.Error("Failed to list request events", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var events []*domain.RequestEvent
	for rows.Next() {
		var event domain.RequestEvent
		var data []byte
		if err := rows.Scan(&event.ID, &event.RequestID, &event.EventType, &data, &event.CreatedAt); err != nil {
			r.logger.Error("Failed to scan request event", zap.Error(err))
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &event.EventData); err != nil {
				return nil, err
			}
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}
