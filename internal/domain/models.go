package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that can buy, act as an agent or administer
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash *string
	DisplayName  string
	AvatarURL    *string
	Provider     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Event is a pop-up store event
type Event struct {
	ID        uuid.UUID
	Title     string
	GroupName string
	Address   string
	OpenDate  *time.Time
	CloseDate *time.Time
	OpenTime  string
	CloseTime string
	BannerURL *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product is an item sold at an event
type Product struct {
	ID        uuid.UUID
	EventID   uuid.UUID
	Name      string
	Price     int64
	ImageURL  *string
	Status    ProductStatus
	CreatedAt time.Time
}

// ProductOption is a variant of a product.
// PriceOverride wins over Price + PriceDelta when set.
type ProductOption struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	Name          string
	PriceDelta    int64
	PriceOverride *int64
	ImageURL      *string
	Status        ProductStatus
	SortOrder     int
	CreatedAt     time.Time
}

// Agent purchases on behalf of buyers at one event
type Agent struct {
	ID           uuid.UUID
	EventID      uuid.UUID
	UserID       *uuid.UUID
	DisplayName  string
	AvatarURL    *string
	HandledCount int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProxyRequest is a buyer's order addressed to an agent.
// TotalAmount is snapshotted at submission and never recomputed.
type ProxyRequest struct {
	ID             uuid.UUID
	EventID        uuid.UUID
	AgentID        uuid.UUID
	BuyerUserID    *uuid.UUID
	Status         RequestStatus
	CustomerName   string
	Phone          string
	DeliveryMethod DeliveryMethod
	Address        *string
	TotalAmount    int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProxyRequestItem is one order line with its immutable price snapshot
type ProxyRequestItem struct {
	ID            uuid.UUID
	RequestID     uuid.UUID
	ProductID     uuid.UUID
	OptionID      *uuid.UUID
	Quantity      int
	PriceSnapshot int64
	CreatedAt     time.Time
}

// ChatRoom is the conversation attached to exactly one request
type ChatRoom struct {
	ID          uuid.UUID
	RequestID   uuid.UUID
	EventID     uuid.UUID
	AgentID     uuid.UUID
	BuyerUserID *uuid.UUID
	AgentUserID *uuid.UUID
	CreatedAt   time.Time
}

// HasParticipant reports whether the user is the buyer or the agent owner
func (r *ChatRoom) HasParticipant(userID uuid.UUID) bool {
	return (r.BuyerUserID != nil && *r.BuyerUserID == userID) ||
		(r.AgentUserID != nil && *r.AgentUserID == userID)
}

// ChatMessage is a message in a room. SenderUserID is nil for system messages.
type ChatMessage struct {
	ID           uuid.UUID
	RoomID       uuid.UUID
	SenderUserID *uuid.UUID
	Text         string
	CreatedAt    time.Time
}

// AgentEventForm holds an agent's registration details for an event
type AgentEventForm struct {
	ID              uuid.UUID
	EventID         uuid.UUID
	AgentUserID     uuid.UUID
	CertURL         *string
	CertWaived      bool
	DeliveryMethods []DeliveryMethod
	DeliveryETA     string
	HasPerk         bool
	Memo            *string
	CreatedAt       time.Time
}

// AgentProductTerm is the headcount and fee an agent requires for a product or option
type AgentProductTerm struct {
	ID          uuid.UUID
	EventID     uuid.UUID
	AgentUserID uuid.UUID
	ProductID   uuid.UUID
	OptionID    *uuid.UUID
	Headcount   int
	Fee         int64
	CreatedAt   time.Time
}

// IdempotencyKey stores idempotency information for request submission
type IdempotencyKey struct {
	Key         string
	UserID      *uuid.UUID
	RequestID   uuid.UUID
	RoomID      uuid.UUID
	RequestHash string
	CreatedAt   time.Time
}

// RequestEvent represents an audit event for a proxy request
type RequestEvent struct {
	ID        uuid.UUID
	RequestID uuid.UUID
	EventType string
	EventData map[string]interface{} // JSONB
	CreatedAt time.Time
}
