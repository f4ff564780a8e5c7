package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
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

type delegateService struct {
	repos     *repository.Repositories
	selection *selectionResolver
	publisher messaging.Publisher
	logger    *zap.Logger
}

// NewDelegateService creates the service behind the order placement workflow
func NewDelegateService(repos *repository.Repositories, publisher messaging.Publisher, logger *zap.Logger) *delegateService {
	return &delegateService{
		repos:     repos,
		selection: newSelectionResolver(repos, logger),
		publisher: publisher,
		logger:    logger,
	}
}

// Quote prices a selection for an event without writing anything
func (s *delegateService) Quote(ctx context.Context, eventID uuid.UUID, req QuoteRequest) (*pricing.Quote, error) {
	if _, err := s.repos.Event.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	items, err := s.selection.Resolve(ctx, eventID, req.Items)
	if err != nil {
		return nil, err
	}
	return pricing.NewQuote(items, req.DeliveryMethod)
}

func validateSubmit(req *SubmitRequest) error {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)

	if len(req.Items) == 0 {
		return errors.Validation("items", "select at least one product")
	}
	if req.CustomerName == "" {
		return errors.Validation("customer_name", "customer name is required")
	}
	if req.Phone == "" {
		return errors.Validation("phone", "phone is required")
	}
	if !req.DeliveryMethod.IsValid() {
		return errors.Validation("delivery_method", "unknown delivery method")
	}
	if req.DeliveryMethod.RequiresAddress() && req.Address == "" {
		return errors.Validation("address", "address is required for delivery")
	}
	if req.AgentID == uuid.Nil {
		return errors.Validation("agent_id", "agent is required")
	}
	return nil
}

// requestHash fingerprints a submission so a reused idempotency key with a
// different body can be told apart from a retry
func requestHash(eventID uuid.UUID, buyerID *uuid.UUID, req SubmitRequest) string {
	payload := struct {
		EventID uuid.UUID     `json:"event_id"`
		BuyerID *uuid.UUID    `json:"buyer_id"`
		Request SubmitRequest `json:"request"`
	}{eventID, buyerID, req}

	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// scopeIdempotencyKey namespaces a client key by buyer so two callers
// reusing the same key never see each other's result
func scopeIdempotencyKey(buyerID *uuid.UUID, key string) string {
	if buyerID == nil {
		return "guest:" + key
	}
	return "user:" + buyerID.String() + ":" + key
}

// Submit validates the order, then creates the request, its chat room, the
// line items, the summary message and an audit event in one transaction.
func (s *delegateService) Submit(
	ctx context.Context,
	eventID uuid.UUID,
	buyerID *uuid.UUID,
	idempotencyKey string,
	req SubmitRequest,
) (*SubmitResult, error) {
	if err := validateSubmit(&req); err != nil {
		return nil, err
	}

	hash := requestHash(eventID, buyerID, req)
	if idempotencyKey != "" {
		idempotencyKey = scopeIdempotencyKey(buyerID, idempotencyKey)
		if result, err := s.replay(ctx, idempotencyKey, hash); result != nil || err != nil {
			return result, err
		}
	}

	if _, err := s.repos.Event.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	// Resolve the agent and its owning user
	agent, err := s.repos.Agent.GetByID(ctx, req.AgentID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.Validation("agent_id", "agent not found")
		}
		return nil, err
	}
	if agent.EventID != eventID {
		return nil, errors.Validation("agent_id", "agent does not work this event")
	}
	if !agent.IsActive {
		return nil, errors.Validation("agent_id", "agent is not accepting requests")
	}

	items, err := s.selection.Resolve(ctx, eventID, req.Items)
	if err != nil {
		return nil, err
	}
	quote, err := pricing.NewQuote(items, req.DeliveryMethod)
	if err != nil {
		return nil, err
	}

	request := &domain.ProxyRequest{
		EventID:        eventID,
		AgentID:        agent.ID,
		BuyerUserID:    buyerID,
		Status:         domain.RequestStatusPending,
		CustomerName:   req.CustomerName,
		Phone:          req.Phone,
		DeliveryMethod: req.DeliveryMethod,
		TotalAmount:    quote.Total,
	}
	if req.DeliveryMethod.RequiresAddress() {
		address := req.Address
		request.Address = &address
	}

	room := &domain.ChatRoom{
		EventID:     eventID,
		AgentID:     agent.ID,
		BuyerUserID: buyerID,
		AgentUserID: agent.UserID,
	}

	summary := &domain.ChatMessage{
		SenderUserID: buyerID,
		Text: pricing.SummaryText(pricing.Customer{
			Name:    req.CustomerName,
			Phone:   req.Phone,
			Address: req.Address,
		}, quote),
	}

	err = s.repos.Tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		if err := tx.Request.Create(ctx, request); err != nil {
			return err
		}

		room.RequestID = request.ID
		if err := tx.ChatRoom.Upsert(ctx, room); err != nil {
			return err
		}

		lines := make([]*domain.ProxyRequestItem, 0, len(quote.Lines))
		for _, line := range quote.Lines {
			item := &domain.ProxyRequestItem{
				RequestID:     request.ID,
				ProductID:     line.Product.ID,
				Quantity:      line.Quantity,
				PriceSnapshot: line.UnitPrice,
			}
			if line.Option != nil {
				optionID := line.Option.ID
				item.OptionID = &optionID
			}
			lines = append(lines, item)
		}
		if err := tx.RequestItem.CreateBatch(ctx, lines); err != nil {
			return err
		}

		summary.RoomID = room.ID
		if err := tx.ChatMessage.Create(ctx, summary); err != nil {
			return err
		}

		// Log request creation event
		if err := tx.RequestEvent.Create(ctx, &domain.RequestEvent{
			RequestID: request.ID,
			EventType: "request_created",
			EventData: map[string]interface{}{
				"agent_id":        agent.ID.String(),
				"status":          string(request.Status),
				"delivery_method": string(request.DeliveryMethod),
				"subtotal":        quote.Subtotal,
				"shipping_fee":    quote.ShippingFee,
				"total_amount":    quote.Total,
			},
		}); err != nil {
			return err
		}

		if idempotencyKey != "" {
			return tx.IdempotencyKey.Create(ctx, &domain.IdempotencyKey{
				Key:         idempotencyKey,
				UserID:      buyerID,
				RequestID:   request.ID,
				RoomID:      room.ID,
				RequestHash: hash,
			})
		}
		return nil
	})
	if err != nil {
		var conflict *errors.ErrConflict
		if idempotencyKey != "" && stderrors.As(err, &conflict) {
			// a concurrent submission with the same key won the race
			if result, replayErr := s.replay(ctx, idempotencyKey, hash); result != nil || replayErr != nil {
				return result, replayErr
			}
		}
		s.logger.Error("Failed to submit proxy request", zap.Error(err))
		return nil, err
	}

	metrics.RequestsSubmitted.Inc()
	metrics.MessagesSent.Inc()

	s.logger.Info("Proxy request submitted",
		zap.String("request_id", request.ID.String()),
		zap.String("room_id", room.ID.String()),
		zap.Int64("total_amount", request.TotalAmount),
	)

	publish(ctx, s.publisher, s.logger, messaging.RequestCreated, map[string]interface{}{
		"request_id":   request.ID,
		"event_id":     eventID,
		"agent_id":     agent.ID,
		"room_id":      room.ID,
		"total_amount": request.TotalAmount,
	})
	publish(ctx, s.publisher, s.logger, messaging.MessageCreated, messagePayload(summary))

	return &SubmitResult{
		RequestID:   request.ID,
		RoomID:      room.ID,
		TotalAmount: request.TotalAmount,
	}, nil
}

// replay returns the stored result for a known idempotency key, nil when the key is new
func (s *delegateService) replay(ctx context.Context, key, hash string) (*SubmitResult, error) {
	existing, err := s.repos.IdempotencyKey.Get(ctx, key)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if existing.RequestHash != hash {
		return nil, &errors.ErrConflict{Resource: "idempotency key", Message: "key was used with a different request"}
	}

	req, err := s.repos.Request.GetByID(ctx, existing.RequestID)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{
		RequestID:   existing.RequestID,
		RoomID:      existing.RoomID,
		TotalAmount: req.TotalAmount,
		Replayed:    true,
	}, nil
}

func messagePayload(msg *domain.ChatMessage) map[string]interface{} {
	return map[string]interface{}{
		"message_id": msg.ID,
		"room_id":    msg.RoomID,
		"sender_uid": msg.SenderUserID,
		"created_at": msg.CreatedAt,
	}
}
