package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/repository"
)

// EventDetail is an event with its products and the agents taking orders
type EventDetail struct {
	Event    *domain.Event
	Products []*domain.Product
	Agents   []*domain.Agent
}

// ProductDetail is a product with its options
type ProductDetail struct {
	Product *domain.Product
	Options []*domain.ProductOption
}

type catalogService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewCatalogService creates the read side of events and products
func NewCatalogService(repos *repository.Repositories, logger *zap.Logger) *catalogService {
	return &catalogService{
		repos:  repos,
		logger: logger,
	}
}

// ListEvents returns every event ordered by open date
func (s *catalogService) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	events, err := s.repos.Event.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list events", zap.Error(err))
		return nil, err
	}
	return events, nil
}

// GetEventDetail returns the event, its products and its active agents
func (s *catalogService) GetEventDetail(ctx context.Context, eventID uuid.UUID) (*EventDetail, error) {
	event, err := s.repos.Event.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	products, err := s.repos.Product.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("Failed to list products", zap.Error(err), zap.String("event_id", eventID.String()))
		return nil, err
	}

	agents, err := s.repos.Agent.ListByEvent(ctx, eventID, true)
	if err != nil {
		s.logger.Error("Failed to list agents", zap.Error(err), zap.String("event_id", eventID.String()))
		return nil, err
	}

	return &EventDetail{
		Event:    event,
		Products: products,
		Agents:   agents,
	}, nil
}

// GetProductDetail returns a product with its options in display order
func (s *catalogService) GetProductDetail(ctx context.Context, productID uuid.UUID) (*ProductDetail, error) {
	product, err := s.repos.Product.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	options, err := s.repos.Option.ListByProduct(ctx, productID)
	if err != nil {
		s.logger.Error("Failed to list options", zap.Error(err), zap.String("product_id", productID.String()))
		return nil, err
	}

	return &ProductDetail{
		Product: product,
		Options: options,
	}, nil
}
