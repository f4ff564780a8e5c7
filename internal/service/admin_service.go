package service

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/internal/storage"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

// Option move directions
const (
	MoveUp   = "up"
	MoveDown = "down"
)

type adminService struct {
	repos  *repository.Repositories
	store  ObjectStore
	logger *zap.Logger
}

// NewAdminService creates the service behind the administration screens
func NewAdminService(repos *repository.Repositories, store ObjectStore, logger *zap.Logger) *adminService {
	return &adminService{
		repos:  repos,
		store:  store,
		logger: logger,
	}
}

// Events

func (s *adminService) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	return s.repos.Event.List(ctx)
}

func (s *adminService) CreateEvent(ctx context.Context, in EventInput) (*domain.Event, error) {
	event := &domain.Event{}
	if err := applyEventInput(event, in); err != nil {
		return nil, err
	}
	if err := s.repos.Event.Create(ctx, event); err != nil {
		s.logger.Error("Failed to create event", zap.Error(err))
		return nil, err
	}
	s.logger.Info("Event created", zap.String("event_id", event.ID.String()), zap.String("title", event.Title))
	return event, nil
}

func (s *adminService) UpdateEvent(ctx context.Context, id uuid.UUID, in EventInput) (*domain.Event, error) {
	event, err := s.repos.Event.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyEventInput(event, in); err != nil {
		return nil, err
	}
	if err := s.repos.Event.Update(ctx, event); err != nil {
		s.logger.Error("Failed to update event", zap.Error(err), zap.String("event_id", id.String()))
		return nil, err
	}
	return event, nil
}

func (s *adminService) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if err := s.repos.Event.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete event", zap.Error(err), zap.String("event_id", id.String()))
		return err
	}
	return nil
}

func applyEventInput(event *domain.Event, in EventInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return errors.Validation("title", "title is required")
	}
	if in.OpenDate != nil && in.CloseDate != nil && in.CloseDate.Before(*in.OpenDate) {
		return errors.Validation("close_date", "close date is before open date")
	}
	event.Title = title
	event.GroupName = strings.TrimSpace(in.GroupName)
	event.Address = strings.TrimSpace(in.Address)
	event.OpenDate = in.OpenDate
	event.CloseDate = in.CloseDate
	event.OpenTime = in.OpenTime
	event.CloseTime = in.CloseTime
	event.BannerURL = in.BannerURL
	return nil
}

// Products

func (s *adminService) ListProducts(ctx context.Context, eventID uuid.UUID) ([]*domain.Product, error) {
	if _, err := s.repos.Event.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repos.Product.ListByEvent(ctx, eventID)
}

func (s *adminService) CreateProduct(ctx context.Context, eventID uuid.UUID, in ProductInput) (*domain.Product, error) {
	if _, err := s.repos.Event.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	product := &domain.Product{EventID: eventID}
	if err := applyProductInput(product, in); err != nil {
		return nil, err
	}
	if err := s.repos.Product.Create(ctx, product); err != nil {
		s.logger.Error("Failed to create product", zap.Error(err))
		return nil, err
	}
	return product, nil
}

func (s *adminService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	product, err := s.repos.Product.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyProductInput(product, in); err != nil {
		return nil, err
	}
	if err := s.repos.Product.Update(ctx, product); err != nil {
		s.logger.Error("Failed to update product", zap.Error(err), zap.String("product_id", id.String()))
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product and, by cascade, its options
func (s *adminService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repos.Product.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete product", zap.Error(err), zap.String("product_id", id.String()))
		return err
	}
	return nil
}

func applyProductInput(product *domain.Product, in ProductInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return errors.Validation("name", "name is required")
	}
	if in.Price < 0 {
		return errors.Validation("price", "price cannot be negative")
	}
	status := in.Status
	if status == "" {
		status = domain.ProductStatusOnSale
	}
	if !status.IsValid() {
		return errors.Validation("status", "unknown product status")
	}
	product.Name = name
	product.Price = in.Price
	product.ImageURL = in.ImageURL
	product.Status = status
	return nil
}

// Options

func (s *adminService) ListOptions(ctx context.Context, productID uuid.UUID) ([]*domain.ProductOption, error) {
	if _, err := s.repos.Product.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.repos.Option.ListByProduct(ctx, productID)
}

func (s *adminService) CreateOption(ctx context.Context, productID uuid.UUID, in OptionInput) (*domain.ProductOption, error) {
	if _, err := s.repos.Product.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	option := &domain.ProductOption{ProductID: productID}
	if err := applyOptionInput(option, in); err != nil {
		return nil, err
	}
	if err := s.repos.Option.Create(ctx, option); err != nil {
		s.logger.Error("Failed to create option", zap.Error(err))
		return nil, err
	}
	return option, nil
}

func (s *adminService) UpdateOption(ctx context.Context, id uuid.UUID, in OptionInput) (*domain.ProductOption, error) {
	option, err := s.repos.Option.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyOptionInput(option, in); err != nil {
		return nil, err
	}
	if err := s.repos.Option.Update(ctx, option); err != nil {
		s.logger.Error("Failed to update option", zap.Error(err), zap.String("option_id", id.String()))
		return nil, err
	}
	return option, nil
}

func (s *adminService) DeleteOption(ctx context.Context, id uuid.UUID) error {
	if err := s.repos.Option.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete option", zap.Error(err), zap.String("option_id", id.String()))
		return err
	}
	return nil
}

// MoveOption shifts an option's sort order by one. Neighbours are not
// renumbered, so equal sort orders fall back to creation time.
func (s *adminService) MoveOption(ctx context.Context, id uuid.UUID, direction string) (*domain.ProductOption, error) {
	var delta int
	switch direction {
	case MoveUp:
		delta = -1
	case MoveDown:
		delta = 1
	default:
		return nil, errors.Validation("direction", "direction must be up or down")
	}

	option, err := s.repos.Option.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	option.SortOrder += delta
	if err := s.repos.Option.UpdateSortOrder(ctx, id, option.SortOrder); err != nil {
		s.logger.Error("Failed to move option", zap.Error(err), zap.String("option_id", id.String()))
		return nil, err
	}
	return option, nil
}

func applyOptionInput(option *domain.ProductOption, in OptionInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return errors.Validation("name", "name is required")
	}
	if in.PriceOverride != nil && *in.PriceOverride < 0 {
		return errors.Validation("price_override", "price override cannot be negative")
	}
	status := in.Status
	if status == "" {
		status = domain.ProductStatusOnSale
	}
	if !status.IsValid() {
		return errors.Validation("status", "unknown product status")
	}
	option.Name = name
	option.PriceDelta = in.PriceDelta
	option.PriceOverride = in.PriceOverride
	option.ImageURL = in.ImageURL
	option.Status = status
	option.SortOrder = in.SortOrder
	return nil
}

// Agents

func (s *adminService) ListAgents(ctx context.Context, eventID uuid.UUID) ([]*domain.Agent, error) {
	if _, err := s.repos.Event.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repos.Agent.ListByEvent(ctx, eventID, false)
}

func (s *adminService) CreateAgent(ctx context.Context, eventID uuid.UUID, in AgentInput) (*domain.Agent, error) {
	if _, err := s.repos.Event.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	agent := &domain.Agent{EventID: eventID, IsActive: true}
	if err := applyAgentInput(agent, in); err != nil {
		return nil, err
	}
	if err := s.repos.Agent.Create(ctx, agent); err != nil {
		s.logger.Error("Failed to create agent", zap.Error(err))
		return nil, err
	}
	return agent, nil
}

func (s *adminService) UpdateAgent(ctx context.Context, id uuid.UUID, in AgentInput) (*domain.Agent, error) {
	agent, err := s.repos.Agent.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyAgentInput(agent, in); err != nil {
		return nil, err
	}
	if err := s.repos.Agent.Update(ctx, agent); err != nil {
		s.logger.Error("Failed to update agent", zap.Error(err), zap.String("agent_id", id.String()))
		return nil, err
	}
	return agent, nil
}

func (s *adminService) DeleteAgent(ctx context.Context, id uuid.UUID) error {
	if err := s.repos.Agent.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete agent", zap.Error(err), zap.String("agent_id", id.String()))
		return err
	}
	return nil
}

func applyAgentInput(agent *domain.Agent, in AgentInput) error {
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return errors.Validation("display_name", "display name is required")
	}
	if in.HandledCount < 0 {
		return errors.Validation("handled_cnt", "handled count cannot be negative")
	}
	agent.DisplayName = name
	agent.AvatarURL = in.AvatarURL
	// Owner is kept unless the payload names a new one
	if in.UserID != nil {
		agent.UserID = in.UserID
	}
	agent.HandledCount = in.HandledCount
	if in.IsActive != nil {
		agent.IsActive = *in.IsActive
	}
	return nil
}

// Upload stores a file under bucket/folder with a random name and returns its public URL
func (s *adminService) Upload(ctx context.Context, bucket, folder, filename string, r io.Reader) (string, error) {
	if !storage.IsBucket(bucket) {
		return "", errors.Validation("bucket", "unknown bucket")
	}
	folder = strings.Trim(path.Clean("/"+folder), "/")
	objectPath := storage.ObjectName(folder, path.Base(filename))
	if err := s.store.Put(ctx, bucket, objectPath, r); err != nil {
		s.logger.Error("Failed to upload file", zap.Error(err), zap.String("bucket", bucket))
		return "", err
	}
	url := s.store.PublicURL(bucket, objectPath)
	s.logger.Info("File uploaded", zap.String("bucket", bucket), zap.String("path", objectPath))
	return url, nil
}
