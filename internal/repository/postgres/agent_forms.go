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

type agentFormRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewAgentFormRepository creates a new agent event form repository
func NewAgentFormRepository(db DBTX, logger *zap.Logger) *agentFormRepository {
	return &agentFormRepository{db: db, logger: logger}
}

func (r *agentFormRepository) GetByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*domain.AgentEventForm, error) {
	query := `
		SELECT id, event_id, agent_user_id, cert_url, cert_waived, delivery_methods, delivery_eta, has_perk, memo, created_at
		FROM agent_event_forms
		WHERE event_id = $1 AND agent_user_id = $2
	`

	var form domain.AgentEventForm
	var certURL, deliveryETA, memo sql.NullString
	var methods []string

	err := r.db.QueryRowContext(ctx, query, eventID, userID).Scan(
		&form.ID,
		&form.EventID,
		&form.AgentUserID,
		&certURL,
		&form.CertWaived,
		pq.Array(&methods),
		&deliveryETA,
		&form.HasPerk,
		&memo,
		&form.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "agent form", ID: eventID.String() + "/" + userID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get agent form", zap.Error(err))
		return nil, err
	}

	form.CertURL = nullStringPtr(certURL)
	form.DeliveryETA = deliveryETA.String
	form.Memo = nullStringPtr(memo)
	form.DeliveryMethods = make([]domain.DeliveryMethod, 0, len(methods))
	for _, m := range methods {
		form.DeliveryMethods = append(form.DeliveryMethods, domain.DeliveryMethod(m))
	}
	return &form, nil
}

func (r *agentFormRepository) Create(ctx context.Context, form *domain.AgentEventForm) error {
	query := `
		INSERT INTO agent_event_forms (id, event_id, agent_user_id, cert_url, cert_waived, delivery_methods,
			delivery_eta, has_perk, memo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if form.ID == uuid.Nil {
		form.ID = uuid.New()
	}
	if form.CreatedAt.IsZero() {
		form.CreatedAt = time.Now()
	}

	methods := make([]string, len(form.DeliveryMethods))
	for i, m := range form.DeliveryMethods {
		methods[i] = string(m)
	}

	_, err := r.db.ExecContext(ctx, query,
		form.ID,
		form.EventID,
		form.AgentUserID,
		form.CertURL,
		form.CertWaived,
		pq.Array(methods),
		form.DeliveryETA,
		form.HasPerk,
		form.Memo,
		form.CreatedAt,
	)
	if isUniqueViolation(err) {
		return &errors.ErrConflict{Resource: "agent form", Message: "form already exists for this event"}
	}
	if err != nil {
		r.logger.Error("Failed to create agent form", zap.Error(err))
		return err
	}
	return nil
}

func (r *agentFormRepository) DeleteByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM agent_event_forms WHERE event_id = $1 AND agent_user_id = $2`, eventID, userID,
	)
	if err != nil {
		r.logger.Error("Failed to delete agent form", zap.Error(err))
		return err
	}
	return nil
}

type agentTermRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewAgentTermRepository creates a new agent product term repository
func NewAgentTermRepository(db DBTX, logger *zap.Logger) *agentTermRepository {
	return &agentTermRepository{db: db, logger: logger}
}

func (r *agentTermRepository) ListByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) ([]*domain.AgentProductTerm, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, agent_user_id, product_id, option_id, headcount, fee, created_at
		FROM agent_product_terms
		WHERE event_id = $1 AND agent_user_id = $2
		ORDER BY created_at ASC, id ASC`, eventID, userID,
	)
	if err != nil {
		r.logger.Error("Failed to list agent terms", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var terms []*domain.AgentProductTerm
	for rows.Next() {
		var term domain.AgentProductTerm
		var optionID uuid.NullUUID
		if err := rows.Scan(
			&term.ID,
			&term.EventID,
			&term.AgentUserID,
			&term.ProductID,
			&optionID,
			&term.Headcount,
			&term.Fee,
			&term.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan agent term", zap.Error(err))
			return nil, err
		}
		term.OptionID = nullUUIDPtr(optionID)
		terms = append(terms, &term)
	}
	return terms, rows.Err()
}

func (r *agentTermRepository) CreateBatch(ctx context.Context, terms []*domain.AgentProductTerm) error {
	query := `
		INSERT INTO agent_product_terms (id, event_id, agent_user_id, product_id, option_id, headcount, fee, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now()
	for _, term := range terms {
		if term.ID == uuid.Nil {
			term.ID = uuid.New()
		}
		if term.CreatedAt.IsZero() {
			term.CreatedAt = now
		}

		_, err := r.db.ExecContext(ctx, query,
			term.ID,
			term.EventID,
			term.AgentUserID,
			term.ProductID,
			term.OptionID,
			term.Headcount,
			term.Fee,
			term.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create agent term", zap.Error(err))
			return err
		}
	}
	return nil
}

func (r *agentTermRepository) DeleteByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM agent_product_terms WHERE event_id = $1 AND agent_user_id = $2`, eventID, userID,
	)
	if err != nil {
		r.logger.Error("Failed to delete agent terms", zap.Error(err))
		return err
	}
	return nil
}
