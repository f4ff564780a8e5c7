// Package repository declares the persistence contracts used by the services.
// Implementations live in repository/postgres and repository/memory.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/popupmarket/proxybuy/internal/domain"
)

// Repositories groups every repository. A copy bound to a transaction is
// handed to the callback of Transactor.WithinTx.
type Repositories struct {
	User           UserRepository
	Admin          AdminRepository
	Event          EventRepository
	Product        ProductRepository
	Option         OptionRepository
	Agent          AgentRepository
	Request        ProxyRequestRepository
	RequestItem    ProxyRequestItemRepository
	RequestEvent   RequestEventRepository
	ChatRoom       ChatRoomRepository
	ChatMessage    ChatMessageRepository
	AgentForm      AgentFormRepository
	AgentTerm      AgentTermRepository
	IdempotencyKey IdempotencyKeyRepository
	Tx             Transactor
}

// Transactor runs fn atomically. If fn returns an error nothing it wrote is kept.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos *Repositories) error) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
}

type AdminRepository interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	Add(ctx context.Context, userID uuid.UUID) error
}

type EventRepository interface {
	List(ctx context.Context) ([]*domain.Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Event, error)
	Create(ctx context.Context, event *domain.Event) error
	Update(ctx context.Context, event *domain.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ProductRepository interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*domain.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
	SearchByName(ctx context.Context, query string, limit, offset int) ([]*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type OptionRepository interface {
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.ProductOption, error)
	ListByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]*domain.ProductOption, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ProductOption, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.ProductOption, error)
	Create(ctx context.Context, option *domain.ProductOption) error
	Update(ctx context.Context, option *domain.ProductOption) error
	UpdateSortOrder(ctx context.Context, id uuid.UUID, sortOrder int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type AgentRepository interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID, activeOnly bool) ([]*domain.Agent, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Agent, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Agent, error)
	GetByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*domain.Agent, error)
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	IncrementHandled(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ProxyRequestRepository interface {
	Create(ctx context.Context, req *domain.ProxyRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ProxyRequest, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.ProxyRequest, error)
	ListByAgents(ctx context.Context, agentIDs []uuid.UUID) ([]*domain.ProxyRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RequestStatus) error
}

type ProxyRequestItemRepository interface {
	CreateBatch(ctx context.Context, items []*domain.ProxyRequestItem) error
	GetByRequestID(ctx context.Context, requestID uuid.UUID) ([]*domain.ProxyRequestItem, error)
}

type RequestEventRepository interface {
	Create(ctx context.Context, event *domain.RequestEvent) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*domain.RequestEvent, error)
}

type ChatRoomRepository interface {
	// Upsert inserts the room or returns the existing one for the same request.
	Upsert(ctx context.Context, room *domain.ChatRoom) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ChatRoom, error)
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*domain.ChatRoom, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*domain.ChatRoom, error)
}

type ChatMessageRepository interface {
	Create(ctx context.Context, msg *domain.ChatMessage) error
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.ChatMessage, error)
}

type AgentFormRepository interface {
	GetByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*domain.AgentEventForm, error)
	Create(ctx context.Context, form *domain.AgentEventForm) error
	DeleteByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) error
}

type AgentTermRepository interface {
	ListByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) ([]*domain.AgentProductTerm, error)
	CreateBatch(ctx context.Context, terms []*domain.AgentProductTerm) error
	DeleteByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) error
}

type IdempotencyKeyRepository interface {
	Get(ctx context.Context, key string) (*domain.IdempotencyKey, error)
	Create(ctx context.Context, key *domain.IdempotencyKey) error
}
