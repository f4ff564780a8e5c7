package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

type requestRepository struct{ s *Store }

func newestFirst(reqs []*domain.ProxyRequest) {
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
}

func (r *requestRepository) Create(_ context.Context, req *domain.ProxyRequest) error {
	unlock, err := r.s.begin("Request.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.agents[req.AgentID]; !ok {
		return &errors.ErrNotFound{Resource: "agent", ID: req.AgentID.String()}
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := r.s.now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = domain.RequestStatusPending
	}
	r.s.data.requests[req.ID] = *req
	return nil
}

func (r *requestRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.ProxyRequest, error) {
	unlock, err := r.s.begin("Request.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	req, ok := r.s.data.requests[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "request", ID: id.String()}
	}
	return &req, nil
}

func (r *requestRepository) ListByBuyer(_ context.Context, buyerID uuid.UUID) ([]*domain.ProxyRequest, error) {
	unlock, err := r.s.begin("Request.ListByBuyer")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*domain.ProxyRequest
	for _, req := range r.s.data.requests {
		if req.BuyerUserID != nil && *req.BuyerUserID == buyerID {
			req := req
			out = append(out, &req)
		}
	}
	newestFirst(out)
	return out, nil
}

func (r *requestRepository) ListByAgents(_ context.Context, agentIDs []uuid.UUID) ([]*domain.ProxyRequest, error) {
	unlock, err := r.s.begin("Request.ListByAgents")
	defer unlock()
	if err != nil {
		return nil, err
	}
	wanted := make(map[uuid.UUID]bool, len(agentIDs))
	for _, id := range agentIDs {
		wanted[id] = true
	}
	var out []*domain.ProxyRequest
	for _, req := range r.s.data.requests {
		if wanted[req.AgentID] {
			req := req
			out = append(out, &req)
		}
	}
	newestFirst(out)
	return out, nil
}

func (r *requestRepository) UpdateStatus(_ context.Context, id uuid.UUID, status domain.RequestStatus) error {
	unlock, err := r.s.begin("Request.UpdateStatus")
	defer unlock()
	if err != nil {
		return err
	}
	req, ok := r.s.data.requests[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "request", ID: id.String()}
	}
	req.Status = status
	req.UpdatedAt = r.s.now()
	r.s.data.requests[id] = req
	return nil
}

type requestItemRepository struct{ s *Store }

func (r *requestItemRepository) CreateBatch(_ context.Context, items []*domain.ProxyRequestItem) error {
	unlock, err := r.s.begin("RequestItem.CreateBatch")
	defer unlock()
	if err != nil {
		return err
	}
	for _, item := range items {
		if _, ok := r.s.data.requests[item.RequestID]; !ok {
			return &errors.ErrNotFound{Resource: "request", ID: item.RequestID.String()}
		}
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = r.s.now()
		}
		r.s.data.items[item.ID] = *item
	}
	return nil
}

func (r *requestItemRepository) GetByRequestID(_ context.Context, requestID uuid.UUID) ([]*domain.ProxyRequestItem, error) {
	unlock, err := r.s.begin("RequestItem.GetByRequestID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*domain.ProxyRequestItem
	for _, item := range r.s.data.items {
		if item.RequestID == requestID {
			item := item
			out = append(out, &item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type requestEventRepository struct{ s *Store }

func (r *requestEventRepository) Create(_ context.Context, event *domain.RequestEvent) error {
	unlock, err := r.s.begin("RequestEvent.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.s.now()
	}
	r.s.data.reqEvents[event.ID] = *event
	return nil
}

func (r *requestEventRepository) ListByRequest(_ context.Context, requestID uuid.UUID) ([]*domain.RequestEvent, error) {
	unlock, err := r.s.begin("RequestEvent.ListByRequest")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*domain.RequestEvent
	for _, e := range r.s.data.reqEvents {
		if e.RequestID == requestID {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type idempotencyKeyRepository struct{ s *Store }

func (r *idempotencyKeyRepository) Get(_ context.Context, key string) (*domain.IdempotencyKey, error) {
	unlock, err := r.s.begin("IdempotencyKey.Get")
	defer unlock()
	if err != nil {
		return nil, err
	}
	ik, ok := r.s.data.idem[key]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "idempotency key", ID: key}
	}
	return &ik, nil
}

func (r *idempotencyKeyRepository) Create(_ context.Context, ik *domain.IdempotencyKey) error {
	unlock, err := r.s.begin("IdempotencyKey.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.idem[ik.Key]; ok {
		return &errors.ErrConflict{Resource: "idempotency key", Message: "key already used"}
	}
	if ik.CreatedAt.IsZero() {
		ik.CreatedAt = r.s.now()
	}
	r.s.data.idem[ik.Key] = *ik
	return nil
}
