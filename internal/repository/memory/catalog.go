package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

type eventRepository struct{ s *Store }

func (r *eventRepository) List(_ context.Context) ([]*domain.Event, error) {
	unlock, err := r.s.begin("Event.List")
	defer unlock()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Event, 0, len(r.s.data.events))
	for _, e := range r.s.data.events {
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.OpenDate == nil && b.OpenDate == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.OpenDate == nil:
			return false
		case b.OpenDate == nil:
			return true
		case !a.OpenDate.Equal(*b.OpenDate):
			return a.OpenDate.Before(*b.OpenDate)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
	return out, nil
}

func (r *eventRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Event, error) {
	unlock, err := r.s.begin("Event.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	e, ok := r.s.data.events[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "event", ID: id.String()}
	}
	return &e, nil
}

func (r *eventRepository) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Event, error) {
	unlock, err := r.s.begin("Event.GetByIDs")
	defer unlock()
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*domain.Event, len(ids))
	for _, id := range ids {
		if e, ok := r.s.data.events[id]; ok {
			out[id] = &e
		}
	}
	return out, nil
}

func (r *eventRepository) Create(_ context.Context, event *domain.Event) error {
	unlock, err := r.s.begin("Event.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := r.s.now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	r.s.data.events[event.ID] = *event
	return nil
}

func (r *eventRepository) Update(_ context.Context, event *domain.Event) error {
	unlock, err := r.s.begin("Event.Update")
	defer unlock()
	if err != nil {
		return err
	}
	stored, ok := r.s.data.events[event.ID]
	if !ok {
		return &errors.ErrNotFound{Resource: "event", ID: event.ID.String()}
	}
	event.CreatedAt = stored.CreatedAt
	event.UpdatedAt = r.s.now()
	r.s.data.events[event.ID] = *event
	return nil
}

// Delete cascades to products, options and agents like the SQL schema does
func (r *eventRepository) Delete(_ context.Context, id uuid.UUID) error {
	unlock, err := r.s.begin("Event.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.events[id]; !ok {
		return &errors.ErrNotFound{Resource: "event", ID: id.String()}
	}
	delete(r.s.data.events, id)
	for pid, p := range r.s.data.products {
		if p.EventID == id {
			r.s.deleteProductLocked(pid)
		}
	}
	for aid, a := range r.s.data.agents {
		if a.EventID == id {
			delete(r.s.data.agents, aid)
		}
	}
	return nil
}

type productRepository struct{ s *Store }

func (r *productRepository) sorted(match func(domain.Product) bool) []*domain.Product {
	var out []*domain.Product
	for _, p := range r.s.data.products {
		if match(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *productRepository) ListByEvent(_ context.Context, eventID uuid.UUID) ([]*domain.Product, error) {
	unlock, err := r.s.begin("Product.ListByEvent")
	defer unlock()
	if err != nil {
		return nil, err
	}
	return r.sorted(func(p domain.Product) bool { return p.EventID == eventID }), nil
}

func (r *productRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	unlock, err := r.s.begin("Product.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	return &p, nil
}

func (r *productRepository) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	unlock, err := r.s.begin("Product.GetByIDs")
	defer unlock()
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.s.data.products[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (r *productRepository) SearchByName(_ context.Context, query string, limit, offset int) ([]*domain.Product, error) {
	unlock, err := r.s.begin("Product.SearchByName")
	defer unlock()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	matches := r.sorted(func(p domain.Product) bool { return strings.Contains(strings.ToLower(p.Name), q) })
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].ID.String() < matches[j].ID.String()
	})
	if offset >= len(matches) {
		return nil, nil
	}
	matches = matches[offset:]
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

func (r *productRepository) Create(_ context.Context, product *domain.Product) error {
	unlock, err := r.s.begin("Product.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.events[product.EventID]; !ok {
		return &errors.ErrNotFound{Resource: "event", ID: product.EventID.String()}
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = r.s.now()
	}
	if product.Status == "" {
		product.Status = domain.ProductStatusOnSale
	}
	r.s.data.products[product.ID] = *product
	return nil
}

func (r *productRepository) Update(_ context.Context, product *domain.Product) error {
	unlock, err := r.s.begin("Product.Update")
	defer unlock()
	if err != nil {
		return err
	}
	stored, ok := r.s.data.products[product.ID]
	if !ok {
		return &errors.ErrNotFound{Resource: "product", ID: product.ID.String()}
	}
	product.EventID = stored.EventID
	product.CreatedAt = stored.CreatedAt
	r.s.data.products[product.ID] = *product
	return nil
}

func (r *productRepository) Delete(_ context.Context, id uuid.UUID) error {
	unlock, err := r.s.begin("Product.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.products[id]; !ok {
		return &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	r.s.deleteProductLocked(id)
	return nil
}

func (s *Store) deleteProductLocked(id uuid.UUID) {
	delete(s.data.products, id)
	for oid, o := range s.data.options {
		if o.ProductID == id {
			delete(s.data.options, oid)
		}
	}
}

type optionRepository struct{ s *Store }

func sortOptions(opts []*domain.ProductOption) {
	sort.Slice(opts, func(i, j int) bool {
		if opts[i].SortOrder != opts[j].SortOrder {
			return opts[i].SortOrder < opts[j].SortOrder
		}
		return opts[i].CreatedAt.Before(opts[j].CreatedAt)
	})
}

func (r *optionRepository) ListByProduct(_ context.Context, productID uuid.UUID) ([]*domain.ProductOption, error) {
	unlock, err := r.s.begin("Option.ListByProduct")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*domain.ProductOption
	for _, o := range r.s.data.options {
		if o.ProductID == productID {
			o := o
			out = append(out, &o)
		}
	}
	sortOptions(out)
	return out, nil
}

func (r *optionRepository) ListByProducts(_ context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]*domain.ProductOption, error) {
	unlock, err := r.s.begin("Option.ListByProducts")
	defer unlock()
	if err != nil {
		return nil, err
	}
	wanted := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID][]*domain.ProductOption, len(productIDs))
	for _, o := range r.s.data.options {
		if wanted[o.ProductID] {
			o := o
			out[o.ProductID] = append(out[o.ProductID], &o)
		}
	}
	for _, opts := range out {
		sortOptions(opts)
	}
	return out, nil
}

func (r *optionRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.ProductOption, error) {
	unlock, err := r.s.begin("Option.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	o, ok := r.s.data.options[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "option", ID: id.String()}
	}
	return &o, nil
}

func (r *optionRepository) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.ProductOption, error) {
	unlock, err := r.s.begin("Option.GetByIDs")
	defer unlock()
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*domain.ProductOption, len(ids))
	for _, id := range ids {
		if o, ok := r.s.data.options[id]; ok {
			out[id] = &o
		}
	}
	return out, nil
}

func (r *optionRepository) Create(_ context.Context, option *domain.ProductOption) error {
	unlock, err := r.s.begin("Option.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.products[option.ProductID]; !ok {
		return &errors.ErrNotFound{Resource: "product", ID: option.ProductID.String()}
	}
	if option.ID == uuid.Nil {
		option.ID = uuid.New()
	}
	if option.CreatedAt.IsZero() {
		option.CreatedAt = r.s.now()
	}
	if option.Status == "" {
		option.Status = domain.ProductStatusOnSale
	}
	r.s.data.options[option.ID] = *option
	return nil
}

func (r *optionRepository) Update(_ context.Context, option *domain.ProductOption) error {
	unlock, err := r.s.begin("Option.Update")
	defer unlock()
	if err != nil {
		return err
	}
	stored, ok := r.s.data.options[option.ID]
	if !ok {
		return &errors.ErrNotFound{Resource: "option", ID: option.ID.String()}
	}
	option.ProductID = stored.ProductID
	option.CreatedAt = stored.CreatedAt
	r.s.data.options[option.ID] = *option
	return nil
}

func (r *optionRepository) UpdateSortOrder(_ context.Context, id uuid.UUID, sortOrder int) error {
	unlock, err := r.s.begin("Option.UpdateSortOrder")
	defer unlock()
	if err != nil {
		return err
	}
	o, ok := r.s.data.options[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "option", ID: id.String()}
	}
	o.SortOrder = sortOrder
	r.s.data.options[id] = o
	return nil
}

func (r *optionRepository) Delete(_ context.Context, id uuid.UUID) error {
	unlock, err := r.s.begin("Option.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.options[id]; !ok {
		return &errors.ErrNotFound{Resource: "option", ID: id.String()}
	}
	delete(r.s.data.options, id)
	return nil
}
