package handlers

import (
	"time"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/service"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

// EventResponse represents an event
type EventResponse struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	GroupName string  `json:"group_name,omitempty"`
	Address   string  `json:"address,omitempty"`
	OpenDate  *string `json:"open_date,omitempty"`
	CloseDate *string `json:"close_date,omitempty"`
	OpenTime  string  `json:"open_time,omitempty"`
	CloseTime string  `json:"close_time,omitempty"`
	BannerURL *string `json:"banner_url,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func newEventResponse(e *domain.Event) *EventResponse {
	if e == nil {
		return nil
	}
	return &EventResponse{
		ID:        e.ID.String(),
		Title:     e.Title,
		GroupName: e.GroupName,
		Address:   e.Address,
		OpenDate:  formatDate(e.OpenDate),
		CloseDate: formatDate(e.CloseDate),
		OpenTime:  e.OpenTime,
		CloseTime: e.CloseTime,
		BannerURL: e.BannerURL,
		CreatedAt: formatTime(e.CreatedAt),
	}
}

func newEventResponses(events []*domain.Event) []*EventResponse {
	out := make([]*EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, newEventResponse(e))
	}
	return out
}

// ProductResponse represents a product
type ProductResponse struct {
	ID        string               `json:"id"`
	EventID   string               `json:"event_id"`
	Name      string               `json:"name"`
	Price     int64                `json:"price"`
	ImageURL  *string              `json:"image_url,omitempty"`
	Status    domain.ProductStatus `json:"status"`
	CreatedAt string               `json:"created_at"`
}

func newProductResponse(p *domain.Product) *ProductResponse {
	return &ProductResponse{
		ID:        p.ID.String(),
		EventID:   p.EventID.String(),
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Status:    p.Status,
		CreatedAt: formatTime(p.CreatedAt),
	}
}

func newProductResponses(products []*domain.Product) []*ProductResponse {
	out := make([]*ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, newProductResponse(p))
	}
	return out
}

// OptionResponse represents a product option
type OptionResponse struct {
	ID            string               `json:"id"`
	ProductID     string               `json:"product_id"`
	Name          string               `json:"name"`
	PriceDelta    int64                `json:"price_delta"`
	PriceOverride *int64               `json:"price_override,omitempty"`
	ImageURL      *string              `json:"image_url,omitempty"`
	Status        domain.ProductStatus `json:"status"`
	SortOrder     int                  `json:"sort_order"`
}

func newOptionResponse(o *domain.ProductOption) *OptionResponse {
	return &OptionResponse{
		ID:            o.ID.String(),
		ProductID:     o.ProductID.String(),
		Name:          o.Name,
		PriceDelta:    o.PriceDelta,
		PriceOverride: o.PriceOverride,
		ImageURL:      o.ImageURL,
		Status:        o.Status,
		SortOrder:     o.SortOrder,
	}
}

func newOptionResponses(options []*domain.ProductOption) []*OptionResponse {
	out := make([]*OptionResponse, 0, len(options))
	for _, o := range options {
		out = append(out, newOptionResponse(o))
	}
	return out
}

// AgentResponse represents an agent
type AgentResponse struct {
	ID           string  `json:"id"`
	EventID      string  `json:"event_id"`
	UserID       *string `json:"agent_user_id,omitempty"`
	DisplayName  string  `json:"display_name"`
	AvatarURL    *string `json:"avatar_url,omitempty"`
	HandledCount int     `json:"handled_cnt"`
	IsActive     bool    `json:"is_active"`
}

func newAgentResponse(a *domain.Agent) *AgentResponse {
	if a == nil {
		return nil
	}
	resp := &AgentResponse{
		ID:           a.ID.String(),
		EventID:      a.EventID.String(),
		DisplayName:  a.DisplayName,
		AvatarURL:    a.AvatarURL,
		HandledCount: a.HandledCount,
		IsActive:     a.IsActive,
	}
	if a.UserID != nil {
		id := a.UserID.String()
		resp.UserID = &id
	}
	return resp
}

func newAgentResponses(agents []*domain.Agent) []*AgentResponse {
	out := make([]*AgentResponse, 0, len(agents))
	for _, a := range agents {
		out = append(out, newAgentResponse(a))
	}
	return out
}

// RequestResponse represents a proxy request
type RequestResponse struct {
	ID             string                `json:"id"`
	EventID        string                `json:"event_id"`
	AgentID        string                `json:"agent_id"`
	Status         domain.RequestStatus  `json:"status"`
	CustomerName   string                `json:"customer_name"`
	Phone          string                `json:"phone"`
	DeliveryMethod domain.DeliveryMethod `json:"delivery_method"`
	Address        *string               `json:"address,omitempty"`
	TotalAmount    int64                 `json:"total_amount"`
	Event          *EventResponse        `json:"event,omitempty"`
	Agent          *AgentResponse        `json:"agent,omitempty"`
	CreatedAt      string                `json:"created_at"`
	UpdatedAt      string                `json:"updated_at"`
}

func newRequestResponse(r *domain.ProxyRequest) *RequestResponse {
	return &RequestResponse{
		ID:             r.ID.String(),
		EventID:        r.EventID.String(),
		AgentID:        r.AgentID.String(),
		Status:         r.Status,
		CustomerName:   r.CustomerName,
		Phone:          r.Phone,
		DeliveryMethod: r.DeliveryMethod,
		Address:        r.Address,
		TotalAmount:    r.TotalAmount,
		CreatedAt:      formatTime(r.CreatedAt),
		UpdatedAt:      formatTime(r.UpdatedAt),
	}
}

func newRequestSummaries(summaries []*service.RequestSummary) []*RequestResponse {
	out := make([]*RequestResponse, 0, len(summaries))
	for _, s := range summaries {
		resp := newRequestResponse(s.Request)
		resp.Event = newEventResponse(s.Event)
		resp.Agent = newAgentResponse(s.Agent)
		out = append(out, resp)
	}
	return out
}

// RequestItemResponse represents one order line
type RequestItemResponse struct {
	ProductID     string  `json:"product_id"`
	OptionID      *string `json:"option_id,omitempty"`
	Quantity      int     `json:"quantity"`
	PriceSnapshot int64   `json:"price_snapshot"`
}

// RoomResponse represents a chat room
type RoomResponse struct {
	ID          string         `json:"id"`
	RequestID   string         `json:"request_id"`
	EventID     string         `json:"event_id"`
	AgentID     string         `json:"agent_id"`
	Counterpart string         `json:"counterpart,omitempty"`
	Event       *EventResponse `json:"event,omitempty"`
	Agent       *AgentResponse `json:"agent,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

func newRoomResponse(r *domain.ChatRoom) *RoomResponse {
	return &RoomResponse{
		ID:        r.ID.String(),
		RequestID: r.RequestID.String(),
		EventID:   r.EventID.String(),
		AgentID:   r.AgentID.String(),
		CreatedAt: formatTime(r.CreatedAt),
	}
}

// MessageResponse represents a chat message
type MessageResponse struct {
	ID           string  `json:"id"`
	RoomID       string  `json:"room_id"`
	SenderUserID *string `json:"sender_uid,omitempty"`
	Text         string  `json:"text"`
	CreatedAt    string  `json:"created_at"`
}

func newMessageResponse(m *domain.ChatMessage) *MessageResponse {
	resp := &MessageResponse{
		ID:        m.ID.String(),
		RoomID:    m.RoomID.String(),
		Text:      m.Text,
		CreatedAt: formatTime(m.CreatedAt),
	}
	if m.SenderUserID != nil {
		sender := m.SenderUserID.String()
		resp.SenderUserID = &sender
	}
	return resp
}

// UserResponse represents the signed-in user
type UserResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	IsAdmin     *bool   `json:"is_admin,omitempty"`
}

func newUserResponse(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// SessionResponse is returned on sign-in
type SessionResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresAt   string        `json:"expires_at"`
	User        *UserResponse `json:"user"`
}

func newSessionResponse(s *service.Session) *SessionResponse {
	return &SessionResponse{
		AccessToken: s.AccessToken,
		TokenType:   s.TokenType,
		ExpiresAt:   formatTime(s.ExpiresAt),
		User:        newUserResponse(s.User),
	}
}
