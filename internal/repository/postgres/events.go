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

type eventRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewEventRepository creates a new event repository
func NewEventRepository(db DBTX, logger *zap.Logger) *eventRepository {
	return &eventRepository{db: db, logger: logger}
}

const eventColumns = `id, title, group_name, address, open_date, close_date, open_time, close_time, banner_url, created_at, updated_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (*domain.Event, error) {
	var event domain.Event
	var openDate, closeDate sql.NullTime
	var bannerURL sql.NullString

	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.GroupName,
		&event.Address,
		&openDate,
		&closeDate,
		&event.OpenTime,
		&event.CloseTime,
		&bannerURL,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.OpenDate = nullTimePtr(openDate)
	event.CloseDate = nullTimePtr(closeDate)
	event.BannerURL = nullStringPtr(bannerURL)
	return &event, nil
}

// List returns every event ordered by open date, undated events last
func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY open_date ASC NULLS LAST, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list events", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			r.logger.Error("Failed to scan event", zap.Error(err))
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *eventRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "event", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get event by ID", zap.Error(err))
		return nil, err
	}
	return event, nil
}

func (r *eventRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Event, error) {
	out := make(map[uuid.UUID]*domain.Event, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ANY($1::uuid[])`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		r.logger.Error("Failed to get events by IDs", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			r.logger.Error("Failed to scan event", zap.Error(err))
			return nil, err
		}
		out[event.ID] = event
	}
	return out, rows.Err()
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (id, title, group_name, address, open_date, close_date, open_time, close_time, banner_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	now := time.Now()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.GroupName,
		event.Address,
		event.OpenDate,
		event.CloseDate,
		event.OpenTime,
		event.CloseTime,
		event.BannerURL,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create event", zap.Error(err))
		return err
	}
	return nil
}

func (r *eventRepository) Update(ctx context.Context, event *domain.Event) error {
	query := `
		UPDATE events
		SET title = $2, group_name = $3, address = $4, open_date = $5, close_date = $6,
		    open_time = $7, close_time = $8, banner_url = $9, updated_at = $10
		WHERE id = $1
	`

	event.UpdatedAt = time.Now()

	res, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.GroupName,
		event.Address,
		event.OpenDate,
		event.CloseDate,
		event.OpenTime,
		event.CloseTime,
		event.BannerURL,
		event.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update event", zap.Error(err))
		return err
	}
	return requireAffected(res, "event", event.ID)
}

func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return &errors.ErrConflict{Resource: "event", Message: "event still has requests"}
	}
	if err != nil {
		r.logger.Error("Failed to delete event", zap.Error(err))
		return err
	}
	return requireAffected(res, "event", id)
}
