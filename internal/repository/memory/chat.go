package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

type chatRoomRepository struct{ s *Store }

func (r *chatRoomRepository) Upsert(_ context.Context, room *domain.ChatRoom) error {
	unlock, err := r.s.begin("ChatRoom.Upsert")
	defer unlock()
	if err != nil {
		return err
	}
	for _, existing := range r.s.data.rooms {
		if existing.RequestID == room.RequestID {
			*room = existing
			return nil
		}
	}
	if _, ok := r.s.data.requests[room.RequestID]; !ok {
		return &errors.ErrNotFound{Resource: "request", ID: room.RequestID.String()}
	}
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = r.s.now()
	}
	r.s.data.rooms[room.ID] = *room
	return nil
}

func (r *chatRoomRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.ChatRoom, error) {
	unlock, err := r.s.begin("ChatRoom.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	room, ok := r.s.data.rooms[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "room", ID: id.String()}
	}
	return &room, nil
}

func (r *chatRoomRepository) GetByRequestID(_ context.Context, requestID uuid.UUID) (*domain.ChatRoom, error) {
	unlock, err := r.s.begin("ChatRoom.GetByRequestID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	for _, room := range r.s.data.rooms {
		if room.RequestID == requestID {
			return &room, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "room", ID: requestID.String()}
}

func (r *chatRoomRepository) ListByParticipant(_ context.Context, userID uuid.UUID) ([]*domain.ChatRoom, error) {
	unlock, err := r.s.begin("ChatRoom.ListByParticipant")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*domain.ChatRoom
	for _, room := range r.s.data.rooms {
		if room.HasParticipant(userID) {
			room := room
			out = append(out, &room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type chatMessageRepository struct{ s *Store }

func (r *chatMessageRepository) Create(_ context.Context, msg *domain.ChatMessage) error {
	unlock, err := r.s.begin("ChatMessage.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.rooms[msg.RoomID]; !ok {
		return &errors.ErrNotFound{Resource: "room", ID: msg.RoomID.String()}
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.s.now()
	}
	r.s.data.messages[msg.ID] = *msg
	return nil
}

func (r *chatMessageRepository) ListByRoom(_ context.Context, roomID uuid.UUID) ([]*domain.ChatMessage, error) {
	unlock, err := r.s.begin("ChatMessage.ListByRoom")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*domain.ChatMessage
	for _, m := range r.s.data.messages {
		if m.RoomID == roomID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
