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

type chatRoomRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewChatRoomRepository creates a new chat room repository
func NewChatRoomRepository(db DBTX, logger *zap.Logger) *chatRoomRepository {
	return &chatRoomRepository{db: db, logger: logger}
}

const roomColumns = `id, request_id, event_id, agent_id, buyer_user_id, agent_user_id, created_at`

func scanRoom(row interface{ Scan(...interface{}) error }) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	var buyerID, agentUserID uuid.NullUUID

	err := row.Scan(
		&room.ID,
		&room.RequestID,
		&room.EventID,
		&room.AgentID,
		&buyerID,
		&agentUserID,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	room.BuyerUserID = nullUUIDPtr(buyerID)
	room.AgentUserID = nullUUIDPtr(agentUserID)
	return &room, nil
}

// Upsert inserts the room keyed by request id. When a room already exists for
// the request the stored row wins and is scanned back into room.
func (r *chatRoomRepository) Upsert(ctx context.Context, room *domain.ChatRoom) error {
	query := `
		INSERT INTO chat_rooms (id, request_id, event_id, agent_id, buyer_user_id, agent_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (request_id) DO UPDATE SET request_id = EXCLUDED.request_id
		RETURNING ` + roomColumns

	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}

	stored, err := scanRoom(r.db.QueryRowContext(ctx, query,
		room.ID,
		room.RequestID,
		room.EventID,
		room.AgentID,
		room.BuyerUserID,
		room.AgentUserID,
		room.CreatedAt,
	))
	if err != nil {
		r.logger.Error("Failed to upsert chat room", zap.Error(err))
		return err
	}

	*room = *stored
	return nil
}

func (r *chatRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ChatRoom, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM chat_rooms WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "room", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get chat room by ID", zap.Error(err))
		return nil, err
	}
	return room, nil
}

func (r *chatRoomRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*domain.ChatRoom, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM chat_rooms WHERE request_id = $1`, requestID,
	))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "room", ID: requestID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get chat room by request ID", zap.Error(err))
		return nil, err
	}
	return room, nil
}

// ListByParticipant returns rooms where the user is the buyer or the agent owner, newest first
func (r *chatRoomRepository) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*domain.ChatRoom, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+roomColumns+` FROM chat_rooms
		WHERE buyer_user_id = $1 OR agent_user_id = $1
		ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		r.logger.Error("Failed to list chat rooms", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var rooms []*domain.ChatRoom
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			r.logger.Error("Failed to scan chat room", zap.Error(err))
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

type chatMessageRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewChatMessageRepository creates a new chat message repository
func NewChatMessageRepository(db DBTX, logger *zap.Logger) *chatMessageRepository {
	return &chatMessageRepository{db: db, logger: logger}
}

func (r *chatMessageRepository) Create(ctx context.Context, msg *domain.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, room_id, sender_uid, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		msg.ID,
		msg.RoomID,
		msg.SenderUserID,
		msg.Text,
		msg.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create chat message", zap.Error(err))
		return err
	}
	return nil
}

func (r *chatMessageRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, room_id, sender_uid, text, created_at
		FROM chat_messages
		WHERE room_id = $1
		ORDER BY created_at ASC, id ASC`, roomID,
	)
	if err != nil {
		r.logger.Error("Failed to list chat messages", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var msgs []*domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		var senderID uuid.NullUUID
		if err := rows.Scan(&msg.ID, &msg.RoomID, &senderID, &msg.Text, &msg.CreatedAt); err != nil {
			r.logger.Error("Failed to scan chat message", zap.Error(err))
			return nil, err
		}
		msg.SenderUserID = nullUUIDPtr(senderID)
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}
