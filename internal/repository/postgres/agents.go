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

type agentRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewAgentRepository creates a new agent repository
func NewAgentRepository(db DBTX, logger *zap.Logger) *agentRepository {
	return &agentRepository{db: db, logger: logger}
}

const agentColumns = `id, event_id, agent_user_id, display_name, avatar_url, handled_cnt, is_active, created_at, updated_at`

func scanAgent(row interface{ Scan(...interface{}) error }) (*domain.Agent, error) {
	var agent domain.Agent
	var userID uuid.NullUUID
	var avatarURL sql.NullString

	err := row.Scan(
		&agent.ID,
		&agent.EventID,
		&userID,
		&agent.DisplayName,
		&avatarURL,
		&agent.HandledCount,
		&agent.IsActive,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	agent.UserID = nullUUIDPtr(userID)
	agent.AvatarURL = nullStringPtr(avatarURL)
	return &agent, nil
}

func (r *agentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Agent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query agents", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var agents []*domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			r.logger.Error("Failed to scan agent", zap.Error(err))
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// ListByEvent orders agents by handled count, most experienced first
func (r *agentRepository) ListByEvent(ctx context.Context, eventID uuid.UUID, activeOnly bool) ([]*domain.Agent, error) {
	return r.list(ctx, `
		SELECT `+agentColumns+` FROM agents
		WHERE event_id = $1 AND ($2 = false OR is_active = true)
		ORDER BY handled_cnt DESC, created_at ASC`,
		eventID, activeOnly,
	)
}

func (r *agentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Agent, error) {
	return r.list(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE agent_user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
}

func (r *agentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	agent, err := scanAgent(r.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "agent", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get agent by ID", zap.Error(err))
		return nil, err
	}
	return agent, nil
}

func (r *agentRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Agent, error) {
	out := make(map[uuid.UUID]*domain.Agent, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	agents, err := r.list(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = ANY($1::uuid[])`,
		pq.Array(uuidStrings(ids)),
	)
	if err != nil {
		return nil, err
	}
	for _, a := range agents {
		out[a.ID] = a
	}
	return out, nil
}

func (r *agentRepository) GetByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*domain.Agent, error) {
	agent, err := scanAgent(r.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE event_id = $1 AND agent_user_id = $2`,
		eventID, userID,
	))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "agent", ID: eventID.String() + "/" + userID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get agent by event and user", zap.Error(err))
		return nil, err
	}
	return agent, nil
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	query := `
		INSERT INTO agents (id, event_id, agent_user_id, display_name, avatar_url, handled_cnt, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	now := time.Now()
	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = now
	}
	agent.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		agent.ID,
		agent.EventID,
		agent.UserID,
		agent.DisplayName,
		agent.AvatarURL,
		agent.HandledCount,
		agent.IsActive,
		agent.CreatedAt,
		agent.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return &errors.ErrConflict{Resource: "agent", Message: "user is already an agent for this event"}
	}
	if err != nil {
		r.logger.Error("Failed to create agent", zap.Error(err))
		return err
	}
	return nil
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	query := `
		UPDATE agents
		SET agent_user_id = $2, display_name = $3, avatar_url = $4, handled_cnt = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`

	agent.UpdatedAt = time.Now()

	res, err := r.db.ExecContext(ctx, query,
		agent.ID,
		agent.UserID,
		agent.DisplayName,
		agent.AvatarURL,
		agent.HandledCount,
		agent.IsActive,
		agent.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return &errors.ErrConflict{Resource: "agent", Message: "user is already an agent for this event"}
	}
	if err != nil {
		r.logger.Error("Failed to update agent", zap.Error(err))
		return err
	}
	return requireAffected(res, "agent", agent.ID)
}

func (r *agentRepository) IncrementHandled(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE agents SET handled_cnt = handled_cnt + 1, updated_at = now() WHERE id = $1`, id,
	)
	if err != nil {
		r.logger.Error("Failed to increment handled count", zap.Error(err))
		return err
	}
	return requireAffected(res, "agent", id)
}

func (r *agentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return &errors.ErrConflict{Resource: "agent", Message: "agent still has requests"}
	}
	if err != nil {
		r.logger.Error("Failed to delete agent", zap.Error(err))
		return err
	}
	return requireAffected(res, "agent", id)
}
