package service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/messaging"
	"github.com/popupmarket/proxybuy/internal/metrics"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

// RequestSummary is a request joined with its event and agent for list views
type RequestSummary struct {
	Request *domain.ProxyRequest
	Event   *domain.Event
	Agent   *domain.Agent
}

// SellerRequests groups requests addressed to the caller's agents
type SellerRequests struct {
	Pending  []*RequestSummary
	Accepted []*RequestSummary
	Other    []*RequestSummary
}

// RequestDetail is a request with its items and audit trail
type RequestDetail struct {
	Request *domain.ProxyRequest
	Items   []*domain.ProxyRequestItem
	Events  []*domain.RequestEvent
	Room    *domain.ChatRoom
}

type requestService struct {
	repos     *repository.Repositories
	publisher messaging.Publisher
	logger    *zap.Logger
}

// NewRequestService creates the service behind my page and agent actions
func NewRequestService(repos *repository.Repositories, publisher messaging.Publisher, logger *zap.Logger) *requestService {
	return &requestService{
		repos:     repos,
		publisher: publisher,
		logger:    logger,
	}
}

// Accept moves a pending request to accepted
func (s *requestService) Accept(ctx context.Context, requestID, userID uuid.UUID) (*domain.ProxyRequest, error) {
	return s.transition(ctx, requestID, userID, domain.RequestStatusAccepted)
}

// Reject moves a pending request to rejected
func (s *requestService) Reject(ctx context.Context, requestID, userID uuid.UUID) (*domain.ProxyRequest, error) {
	return s.transition(ctx, requestID, userID, domain.RequestStatusRejected)
}

// Complete closes an accepted request and credits the agent
func (s *requestService) Complete(ctx context.Context, requestID, userID uuid.UUID) (*domain.ProxyRequest, error) {
	return s.transition(ctx, requestID, userID, domain.RequestStatusCompleted)
}

func (s *requestService) transition(ctx context.Context, requestID, userID uuid.UUID, to domain.RequestStatus) (*domain.ProxyRequest, error) {
	var req *domain.ProxyRequest
	var from domain.RequestStatus

	err := s.repos.Tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		var err error
		req, err = tx.Request.GetByID(ctx, requestID)
		if err != nil {
			return err
		}

		agent, err := tx.Agent.GetByID(ctx, req.AgentID)
		if err != nil {
			return err
		}
		if agent.UserID == nil || *agent.UserID != userID {
			return &errors.ErrForbidden{Message: "only the agent can update this request"}
		}

		from = req.Status
		if !from.CanTransitionTo(to) {
			return &errors.ErrInvalidStateTransition{From: from, To: to}
		}

		if err := tx.Request.UpdateStatus(ctx, req.ID, to); err != nil {
			return err
		}
		if to == domain.RequestStatusCompleted {
			if err := tx.Agent.IncrementHandled(ctx, agent.ID); err != nil {
				return err
			}
		}

		return tx.RequestEvent.Create(ctx, &domain.RequestEvent{
			RequestID: req.ID,
			EventType: "status_change",
			EventData: map[string]interface{}{
				"from":       string(from),
				"to":         string(to),
				"changed_by": userID.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	req.Status = to
	metrics.RequestTransitions.WithLabelValues(string(to)).Inc()

	s.logger.Info("Request status changed",
		zap.String("request_id", req.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	publish(ctx, s.publisher, s.logger, messaging.RequestStatusChanged, map[string]interface{}{
		"request_id": req.ID,
		"agent_id":   req.AgentID,
		"from":       from,
		"to":         to,
	})

	return req, nil
}

// EnsureRoom returns the chat room of a request, creating it on first use
func (s *requestService) EnsureRoom(ctx context.Context, requestID, userID uuid.UUID) (*domain.ChatRoom, error) {
	req, err := s.repos.Request.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	agent, err := s.repos.Agent.GetByID(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}

	room := &domain.ChatRoom{
		RequestID:   req.ID,
		EventID:     req.EventID,
		AgentID:     req.AgentID,
		BuyerUserID: req.BuyerUserID,
		AgentUserID: agent.UserID,
	}
	if !room.HasParticipant(userID) {
		return nil, &errors.ErrForbidden{Message: "not a participant of this request"}
	}

	if err := s.repos.ChatRoom.Upsert(ctx, room); err != nil {
		s.logger.Error("Failed to ensure chat room", zap.Error(err), zap.String("request_id", requestID.String()))
		return nil, err
	}
	return room, nil
}

// GetRequest returns a request with items and audit trail for a participant
func (s *requestService) GetRequest(ctx context.Context, requestID, userID uuid.UUID) (*RequestDetail, error) {
	req, err := s.repos.Request.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	agent, err := s.repos.Agent.GetByID(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	isBuyer := req.BuyerUserID != nil && *req.BuyerUserID == userID
	isAgent := agent.UserID != nil && *agent.UserID == userID
	if !isBuyer && !isAgent {
		return nil, &errors.ErrForbidden{Message: "not a participant of this request"}
	}

	items, err := s.repos.RequestItem.GetByRequestID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	events, err := s.repos.RequestEvent.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	detail := &RequestDetail{Request: req, Items: items, Events: events}
	room, err := s.repos.ChatRoom.GetByRequestID(ctx, req.ID)
	if err == nil {
		detail.Room = room
	} else if !errors.IsNotFound(err) {
		return nil, err
	}
	return detail, nil
}

// BuyerRequests lists the caller's own requests, newest first
func (s *requestService) BuyerRequests(ctx context.Context, userID uuid.UUID) ([]*RequestSummary, error) {
	reqs, err := s.repos.Request.ListByBuyer(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, reqs)
}

// SellerRequests lists requests addressed to any agent owned by the caller
func (s *requestService) SellerRequests(ctx context.Context, userID uuid.UUID) (*SellerRequests, error) {
	agents, err := s.repos.Agent.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &SellerRequests{
		Pending:  []*RequestSummary{},
		Accepted: []*RequestSummary{},
		Other:    []*RequestSummary{},
	}
	if len(agents) == 0 {
		return out, nil
	}

	agentIDs := make([]uuid.UUID, 0, len(agents))
	for _, a := range agents {
		agentIDs = append(agentIDs, a.ID)
	}
	reqs, err := s.repos.Request.ListByAgents(ctx, agentIDs)
	if err != nil {
		return nil, err
	}
	summaries, err := s.summarize(ctx, reqs)
	if err != nil {
		return nil, err
	}

	for _, sum := range summaries {
		switch {
		case sum.Request.Status.IsPending():
			out.Pending = append(out.Pending, sum)
		case sum.Request.Status.IsAccepted():
			out.Accepted = append(out.Accepted, sum)
		default:
			out.Other = append(out.Other, sum)
		}
	}
	return out, nil
}

func (s *requestService) summarize(ctx context.Context, reqs []*domain.ProxyRequest) ([]*RequestSummary, error) {
	eventIDs := make([]uuid.UUID, 0, len(reqs))
	agentIDs := make([]uuid.UUID, 0, len(reqs))
	for _, r := range reqs {
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

	out := make([]*RequestSummary, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, &RequestSummary{
			Request: r,
			Event:   events[r.EventID],
			Agent:   agents[r.AgentID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Request.CreatedAt.After(out[j].Request.CreatedAt)
	})
	return out, nil
}
