package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

type agentRepository struct{ s *Store }

func (r *agentRepository) ListByEvent(_ context.Context, eventID uuid.UUID, activeOnly bool) ([]*domain.Agent, error) {
	unlock, err := r.s.begin("Agent.ListByEvent")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*domain.Agent
	for _, a := range r.s.data.agents {
		if a.EventID != eventID || (activeOnly && !a.IsActive) {
			continue
		}
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HandledCount != out[j].HandledCount {
			return out[i].HandledCount > out[j].HandledCount
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *agentRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Agent, error) {
	unlock, err := r.s.begin("Agent.ListByUser")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*domain.Agent
	for _, a := range r.s.data.agents {
		if a.UserID != nil && *a.UserID == userID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *agentRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Agent, error) {
	unlock, err := r.s.begin("Agent.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	a, ok := r.s.data.agents[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "agent", ID: id.String()}
	}
	return &a, nil
}

func (r *agentRepository) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Agent, error) {
	unlock, err := r.s.begin("Agent.GetByIDs")
	defer unlock()
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*domain.Agent, len(ids))
	for _, id := range ids {
		if a, ok := r.s.data.agents[id]; ok {
			out[id] = &a
		}
	}
	return out, nil
}

func (r *agentRepository) GetByEventAndUser(_ context.Context, eventID, userID uuid.UUID) (*domain.Agent, error) {
	unlock, err := r.s.begin("Agent.GetByEventAndUser")
	defer unlock()
	if err != nil {
		return nil, err
	}
	if a := r.s.agentByEventAndUserLocked(eventID, userID); a != nil {
		return a, nil
	}
	return nil, &errors.ErrNotFound{Resource: "agent", ID: eventID.String() + "/" + userID.String()}
}

func (s *Store) agentByEventAndUserLocked(eventID, userID uuid.UUID) *domain.Agent {
	for _, a := range s.data.agents {
		if a.EventID == eventID && a.UserID != nil && *a.UserID == userID {
			return &a
		}
	}
	return nil
}

func (r *agentRepository) Create(_ context.Context, agent *domain.Agent) error {
	unlock, err := r.s.begin("Agent.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.events[agent.EventID]; !ok {
		return &errors.ErrNotFound{Resource: "event", ID: agent.EventID.String()}
	}
	if agent.UserID != nil && r.s.agentByEventAndUserLocked(agent.EventID, *agent.UserID) != nil {
		return &errors.ErrConflict{Resource: "agent", Message: "user is already an agent for this event"}
	}
	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}
	now := r.s.now()
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = now
	}
	agent.UpdatedAt = now
	r.s.data.agents[agent.ID] = *agent
	return nil
}

func (r *agentRepository) Update(_ context.Context, agent *domain.Agent) error {
	unlock, err := r.s.begin("Agent.Update")
	defer unlock()
	if err != nil {
		return err
	}
	stored, ok := r.s.data.agents[agent.ID]
	if !ok {
		return &errors.ErrNotFound{Resource: "agent", ID: agent.ID.String()}
	}
	if agent.UserID != nil {
		if other := r.s.agentByEventAndUserLocked(stored.EventID, *agent.UserID); other != nil && other.ID != agent.ID {
			return &errors.ErrConflict{Resource: "agent", Message: "user is already an agent for this event"}
		}
	}
	agent.EventID = stored.EventID
	agent.CreatedAt = stored.CreatedAt
	agent.UpdatedAt = r.s.now()
	r.s.data.agents[agent.ID] = *agent
	return nil
}

func (r *agentRepository) IncrementHandled(_ context.Context, id uuid.UUID) error {
	unlock, err := r.s.begin("Agent.IncrementHandled")
	defer unlock()
	if err != nil {
		return err
	}
	a, ok := r.s.data.agents[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "agent", ID: id.String()}
	}
	a.HandledCount++
	a.UpdatedAt = r.s.now()
	r.s.data.agents[id] = a
	return nil
}

func (r *agentRepository) Delete(_ context.Context, id uuid.UUID) error {
	unlock, err := r.s.begin("Agent.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.agents[id]; !ok {
		return &errors.ErrNotFound{Resource: "agent", ID: id.String()}
	}
	delete(r.s.data.agents, id)
	return nil
}

type agentFormRepository struct{ s *Store }

func (r *agentFormRepository) GetByEventAndUser(_ context.Context, eventID, userID uuid.UUID) (*domain.AgentEventForm, error) {
	unlock, err := r.s.begin("AgentForm.GetByEventAndUser")
	defer unlock()
	if err != nil {
		return nil, err
	}
	for _, f := range r.s.data.forms {
		if f.EventID == eventID && f.AgentUserID == userID {
			f.DeliveryMethods = append([]domain.DeliveryMethod(nil), f.DeliveryMethods...)
			return &f, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "agent form", ID: eventID.String() + "/" + userID.String()}
}

func (r *agentFormRepository) Create(_ context.Context, form *domain.AgentEventForm) error {
	unlock, err := r.s.begin("AgentForm.Create")
	defer unlock()
	if err != nil {
		return err
	}
	for _, f := range r.s.data.forms {
		if f.EventID == form.EventID && f.AgentUserID == form.AgentUserID {
			return &errors.ErrConflict{Resource: "agent form", Message: "form already exists for this event"}
		}
	}
	if form.ID == uuid.Nil {
		form.ID = uuid.New()
	}
	if form.CreatedAt.IsZero() {
		form.CreatedAt = r.s.now()
	}
	stored := *form
	stored.DeliveryMethods = append([]domain.DeliveryMethod(nil), form.DeliveryMethods...)
	r.s.data.forms[form.ID] = stored
	return nil
}

func (r *agentFormRepository) DeleteByEventAndUser(_ context.Context, eventID, userID uuid.UUID) error {
	unlock, err := r.s.begin("AgentForm.DeleteByEventAndUser")
	defer unlock()
	if err != nil {
		return err
	}
	for id, f := range r.s.data.forms {
		if f.EventID == eventID && f.AgentUserID == userID {
			delete(r.s.data.forms, id)
		}
	}
	return nil
}

type agentTermRepository struct{ s *Store }

func (r *agentTermRepository) ListByEventAndUser(_ context.Context, eventID, userID uuid.UUID) ([]*domain.AgentProductTerm, error) {
	unlock, err := r.s.begin("AgentTerm.ListByEventAndUser")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*domain.AgentProductTerm
	for _, t := range r.s.data.terms {
		if t.EventID == eventID && t.AgentUserID == userID {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *agentTermRepository) CreateBatch(_ context.Context, terms []*domain.AgentProductTerm) error {
	unlock, err := r.s.begin("AgentTerm.CreateBatch")
	defer unlock()
	if err != nil {
		return err
	}
	for _, t := range terms {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = r.s.now()
		}
		r.s.data.terms[t.ID] = *t
	}
	return nil
}

func (r *agentTermRepository) DeleteByEventAndUser(_ context.Context, eventID, userID uuid.UUID) error {
	unlock, err := r.s.begin("AgentTerm.DeleteByEventAndUser")
	defer unlock()
	if err != nil {
		return err
	}
	for id, t := range r.s.data.terms {
		if t.EventID == eventID && t.AgentUserID == userID {
			delete(r.s.data.terms, id)
		}
	}
	return nil
}
