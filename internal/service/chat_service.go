package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/messaging"
	"github.com/popupmarket/proxybuy/internal/metrics"
	"github.com/popupmarket/proxybuy/internal/pricing"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

// CustomerLabel is what an agent sees as the counterpart of a room
const CustomerLabel = "customer"

// RoomSummary is a chat room joined with its event and agent
type RoomSummary struct {
	Room          *domain.ChatRoom
	Event         *domain.Event
	Agent         *domain.Agent
	Counterpart   string
	ViewerIsAgent bool
}

// SummaryLine is one item of a request breakdown
type SummaryLine struct {
	Label         string `json:"label"`
	ProductName   string `json:"product_name"`
	OptionName    string `json:"option_name,omitempty"`
	Quantity      int    `json:"quantity"`
	PriceSnapshot int64  `json:"price_snapshot"`
	LineTotal     int64  `json:"line_total"`
}

// OrderSummary is the read-only breakdown of the request behind a room
type OrderSummary struct {
	RequestID      uuid.UUID             `json:"request_id"`
	Status         domain.RequestStatus  `json:"status"`
	CustomerName   string                `json:"customer_name"`
	Phone          string                `json:"phone"`
	Address        *string               `json:"address,omitempty"`
	DeliveryMethod domain.DeliveryMethod `json:"delivery_method"`
	DeliveryLabel  string                `json:"delivery_label"`
	Lines          []SummaryLine         `json:"lines"`
	Subtotal       int64                 `json:"subtotal"`
	ShippingFee    int64                 `json:"shipping_fee"`
	TotalAmount    int64                 `json:"total_amount"`
}

type chatService struct {
	repos     *repository.Repositories
	publisher messaging.Publisher
	logger    *zap.Logger
}

// NewChatService creates the service behind chat rooms and messages
func NewChatService(repos *repository.Repositories, publisher messaging.Publisher, logger *zap.Logger) *chatService {
	return &chatService{
		repos:     repos,
		publisher: publisher,
		logger:    logger,
	}
}

// ListRooms returns the rooms the user takes part in, newest first
func (s *chatService) ListRooms(ctx context.Context, userID uuid.UUID) ([]*RoomSummary, error) {
	rooms, err := s.repos.ChatRoom.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	eventIDs := make([]uuid.UUID, 0, len(rooms))
	agentIDs := make([]uuid.UUID, 0, len(rooms))
	for _, r := range rooms {
		eventIDs = append(eventIDs, r.EventID)
		agentIDs = append(agentIDs, r.AgentID)
	}
	events, err := s.repos.Event.GetByIDs(ctx, eventIDs)
	if err != nil {
		return nil, err
	}
	agents, err := s.repos.Agent.GetByIDs(ctx, agentIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		sum := &RoomSummary{
			Room:  r,
			Event: events[r.EventID],
			Agent: agents[r.AgentID],
		}
		sum.ViewerIsAgent = r.AgentUserID != nil && *r.AgentUserID == userID
		switch {
		case sum.ViewerIsAgent:
			sum.Counterpart = CustomerLabel
		case sum.Agent != nil:
			sum.Counterpart = sum.Agent.DisplayName
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *chatService) participantRoom(ctx context.Context, roomID, userID uuid.UUID) (*domain.ChatRoom, error) {
	room, err := s.repos.ChatRoom.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, &errors.ErrForbidden{Message: "not a participant of this room"}
	}
	return room, nil
}

// ListMessages returns the room's messages oldest first
func (s *chatService) ListMessages(ctx context.Context, roomID, userID uuid.UUID) ([]*domain.ChatMessage, error) {
	if _, err := s.participantRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}
	return s.repos.ChatMessage.ListByRoom(ctx, roomID)
}

// SendMessage stores a message from a participant
func (s *chatService) SendMessage(ctx context.Context, roomID, userID uuid.UUID, req SendMessageRequest) (*domain.ChatMessage, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, errors.Validation("text", "message cannot be empty")
	}
	if _, err := s.participantRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}

	sender := userID
	msg := &domain.ChatMessage{
		RoomID:       roomID,
		SenderUserID: &sender,
		Text:         text,
	}
	if err := s.repos.ChatMessage.Create(ctx, msg); err != nil {
		s.logger.Error("Failed to send message", zap.Error(err), zap.String("room_id", roomID.String()))
		return nil, err
	}

	metrics.MessagesSent.Inc()
	publish(ctx, s.publisher, s.logger, messaging.MessageCreated, messagePayload(msg))
	return msg, nil
}

// Summary builds the order breakdown of the request behind a room
func (s *chatService) Summary(ctx context.Context, roomID, userID uuid.UUID) (*OrderSummary, error) {
	room, err := s.participantRoom(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}

	req, err := s.repos.Request.GetByID(ctx, room.RequestID)
	if err != nil {
		return nil, err
	}
	items, err := s.repos.RequestItem.GetByRequestID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(items))
	var optionIDs []uuid.UUID
	for _, it := range items {
		productIDs = append(productIDs, it.ProductID)
		if it.OptionID != nil {
			optionIDs = append(optionIDs, *it.OptionID)
		}
	}
	products, err := s.repos.Product.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	options, err := s.repos.Option.GetByIDs(ctx, optionIDs)
	if err != nil {
		return nil, err
	}

	return BuildSummary(req, items, products, options), nil
}

// BuildSummary prices a stored request from its snapshots. Products or
// options deleted since submission show up without a name.
func BuildSummary(
	req *domain.ProxyRequest,
	items []*domain.ProxyRequestItem,
	products map[uuid.UUID]*domain.Product,
	options map[uuid.UUID]*domain.ProductOption,
) *OrderSummary {
	sum := &OrderSummary{
		RequestID:      req.ID,
		Status:         req.Status,
		CustomerName:   req.CustomerName,
		Phone:          req.Phone,
		DeliveryMethod: req.DeliveryMethod,
		DeliveryLabel:  req.DeliveryMethod.Label(),
		ShippingFee:    req.DeliveryMethod.ShippingFee(),
		TotalAmount:    req.TotalAmount,
		Lines:          make([]SummaryLine, 0, len(items)),
	}
	if req.DeliveryMethod.RequiresAddress() {
		sum.Address = req.Address
	}

	for _, it := range items {
		line := SummaryLine{
			Quantity:      it.Quantity,
			PriceSnapshot: it.PriceSnapshot,
			LineTotal:     it.PriceSnapshot * int64(it.Quantity),
		}
		if p, ok := products[it.ProductID]; ok {
			line.ProductName = p.Name
		}
		if it.OptionID != nil {
			if o, ok := options[*it.OptionID]; ok {
				line.OptionName = o.Name
			}
		}
		line.Label = pricing.LineLabel(line.ProductName, line.OptionName)
		sum.Subtotal += line.LineTotal
		sum.Lines = append(sum.Lines, line)
	}
	return sum
}
