package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/popupmarket/proxybuy/internal/domain"
)

// QuoteRequest prices a selection without writing anything
type QuoteRequest struct {
	DeliveryMethod domain.DeliveryMethod `json:"delivery_method" binding:"required"`
	Items          []domain.Selection    `json:"items" binding:"required,min=1"`
}

// SubmitRequest is the delegate order submission payload
type SubmitRequest struct {
	AgentID        uuid.UUID             `json:"agent_id" binding:"required"`
	CustomerName   string                `json:"customer_name"`
	Phone          string                `json:"phone"`
	DeliveryMethod domain.DeliveryMethod `json:"delivery_method" binding:"required"`
	Address        string                `json:"address"`
	Items          []domain.Selection    `json:"items"`
}

// SubmitResult identifies the created request and its chat room
type SubmitResult struct {
	RequestID   uuid.UUID `json:"request_id"`
	RoomID      uuid.UUID `json:"room_id"`
	TotalAmount int64     `json:"total_amount"`
	Replayed    bool      `json:"replayed"`
}

// BulkTermsRequest applies the same rows to every listed product
type BulkTermsRequest struct {
	ProductIDs []uuid.UUID      `json:"product_ids" binding:"required,min=1"`
	Rows       []domain.TermRow `json:"rows" binding:"required,min=1"`
	PerOption  bool             `json:"per_option"`
}

// SaveTermsRequest registers the caller as an agent for an event
type SaveTermsRequest struct {
	CertURL         *string                 `json:"cert_url"`
	CertWaived      bool                    `json:"cert_waived"`
	DeliveryMethods []domain.DeliveryMethod `json:"delivery_methods"`
	ETA             domain.ETAOption        `json:"eta"`
	ETAOther        string                  `json:"eta_other"`
	HasPerk         bool                    `json:"has_perk"`
	Memo            *string                 `json:"memo"`
	Terms           domain.TermsByProduct   `json:"terms"`
}

// SendMessageRequest is a chat message typed by a participant
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SignUpRequest creates a password account
type SignUpRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

// SignInRequest signs in with email and password
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Session is returned after a successful sign-in
type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"-"`
}

// EventInput is the admin payload for creating or editing an event
type EventInput struct {
	Title     string     `json:"title"`
	GroupName string     `json:"group_name"`
	Address   string     `json:"address"`
	OpenDate  *time.Time `json:"open_date"`
	CloseDate *time.Time `json:"close_date"`
	OpenTime  string     `json:"open_time"`
	CloseTime string     `json:"close_time"`
	BannerURL *string    `json:"banner_url"`
}

// ProductInput is the admin payload for a product
type ProductInput struct {
	Name     string               `json:"name"`
	Price    int64                `json:"price"`
	ImageURL *string              `json:"image_url"`
	Status   domain.ProductStatus `json:"status"`
}

// OptionInput is the admin payload for a product option
type OptionInput struct {
	Name          string               `json:"name"`
	PriceDelta    int64                `json:"price_delta"`
	PriceOverride *int64               `json:"price_override"`
	ImageURL      *string              `json:"image_url"`
	Status        domain.ProductStatus `json:"status"`
	SortOrder     int                  `json:"sort_order"`
}

// AgentInput is the admin payload for an agent
type AgentInput struct {
	DisplayName  string     `json:"display_name"`
	AvatarURL    *string    `json:"avatar_url"`
	UserID       *uuid.UUID `json:"agent_user_id"`
	HandledCount int        `json:"handled_cnt"`
	IsActive     *bool      `json:"is_active"`
}
