package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/config"
	"github.com/popupmarket/proxybuy/internal/repository"
	apperrors "github.com/popupmarket/proxybuy/pkg/errors"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// NewConnection opens and pings a Postgres connection pool
func NewConnection(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NewRepositories wires every Postgres repository onto db
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	repos := bind(db, logger)
	repos.Tx = &transactor{db: db, logger: logger}
	return repos
}

func bind(q DBTX, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		User:           NewUserRepository(q, logger),
		Admin:          NewAdminRepository(q, logger),
		Event:          NewEventRepository(q, logger),
		Product:        NewProductRepository(q, logger),
		Option:         NewOptionRepository(q, logger),
		Agent:          NewAgentRepository(q, logger),
		Request:        NewProxyRequestRepository(q, logger),
		RequestItem:    NewProxyRequestItemRepository(q, logger),
		RequestEvent:   NewRequestEventRepository(q, logger),
		ChatRoom:       NewChatRoomRepository(q, logger),
		ChatMessage:    NewChatMessageRepository(q, logger),
		AgentForm:      NewAgentFormRepository(q, logger),
		AgentTerm:      NewAgentTermRepository(q, logger),
		IdempotencyKey: NewIdempotencyKeyRepository(q, logger),
	}
}

type transactor struct {
	db     *sql.DB
	logger *zap.Logger
}

func (t *transactor) WithinTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		t.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}

	repos := bind(tx, t.logger)
	// nested WithinTx calls join the outer transaction
	repos.Tx = joinedTx{repos: repos}

	if err := fn(repos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			t.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		t.logger.Error("Failed to commit transaction", zap.Error(err))
		return err
	}
	return nil
}

type joinedTx struct {
	repos *repository.Repositories
}

func (j joinedTx) WithinTx(_ context.Context, fn func(repos *repository.Repositories) error) error {
	return fn(j.repos)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == "23503"
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func nullUUIDPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func nullStringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func nullInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullTimePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

// requireAffected turns a zero-row write into ErrNotFound
func requireAffected(res sql.Result, resource string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &apperrors.ErrNotFound{Resource: resource, ID: id.String()}
	}
	return nil
}
