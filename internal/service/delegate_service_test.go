package service

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/messaging"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

func TestDelegateQuote(t *testing.T) {
	f := newFixture(t)
	svc := NewDelegateService(f.repos, f.pub, f.logger)
	ctx := context.Background()

	quote, err := svc.Quote(ctx, f.event.ID, QuoteRequest{
		DeliveryMethod: domain.DeliveryCUEconomy,
		Items:          []domain.Selection{{ProductID: f.productA.ID, OptionID: &f.large.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12000), quote.Lines[0].UnitPrice)
	assert.Equal(t, int64(24000), quote.Subtotal)
	assert.Equal(t, int64(25800), quote.Total)

	quote, err = svc.Quote(ctx, f.event.ID, QuoteRequest{
		DeliveryMethod: domain.DeliveryInPerson,
		Items:          []domain.Selection{{ProductID: f.productB.ID, OptionID: &f.std.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4500), quote.Lines[0].UnitPrice)
	assert.Equal(t, int64(13500), quote.Total)
}

func TestDelegateSubmit_CreatesRequestRoomItemsAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.submit(t)
	assert.Equal(t, int64(25800), result.TotalAmount)
	assert.False(t, result.Replayed)

	req, err := f.repos.Request.GetByID(ctx, result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, req.Status)
	assert.Equal(t, int64(25800), req.TotalAmount)
	require.NotNil(t, req.Address)
	assert.Equal(t, "Seoul", *req.Address)

	items, err := f.repos.RequestItem.GetByRequestID(ctx, result.RequestID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(12000), items[0].PriceSnapshot)
	assert.Equal(t, 2, items[0].Quantity)

	room, err := f.repos.ChatRoom.GetByRequestID(ctx, result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, result.RoomID, room.ID)
	assert.True(t, room.HasParticipant(f.buyer.ID))
	assert.True(t, room.HasParticipant(f.seller.ID))

	msgs, err := f.repos.ChatMessage.ListByRoom(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, f.buyer.ID, *msgs[0].SenderUserID)
	assert.Contains(t, msgs[0].Text, "A - Large x2 (12,000)")
	assert.Contains(t, msgs[0].Text, "Total: 25,800")

	events, err := f.repos.RequestEvent.ListByRequest(ctx, result.RequestID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "request_created", events[0].EventType)

	assert.Equal(t, []string{messaging.RequestCreated, messaging.MessageCreated}, f.pub.published())
}

func TestDelegateSubmit_SnapshotMatchesRecomputation(t *testing.T) {
	f := newFixture(t)
	svc := NewDelegateService(f.repos, f.pub, f.logger)
	ctx := context.Background()

	result := f.submit(t)
	req := f.submitRequest()
	quote, err := svc.Quote(ctx, f.event.ID, QuoteRequest{DeliveryMethod: req.DeliveryMethod, Items: req.Items})
	require.NoError(t, err)
	assert.Equal(t, quote.Total, result.TotalAmount)
}

func TestDelegateSubmit_RejectsBeforeAnyWrite(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture, req *SubmitRequest)
		field  string
	}{
		{
			name:   "empty address for parcel delivery",
			mutate: func(_ *fixture, req *SubmitRequest) { req.Address = "  " },
			field:  "address",
		},
		{
			name:   "no items",
			mutate: func(_ *fixture, req *SubmitRequest) { req.Items = nil },
			field:  "items",
		},
		{
			name:   "missing name",
			mutate: func(_ *fixture, req *SubmitRequest) { req.CustomerName = "" },
			field:  "customer_name",
		},
		{
			name:   "missing phone",
			mutate: func(_ *fixture, req *SubmitRequest) { req.Phone = "" },
			field:  "phone",
		},
		{
			name:   "unknown delivery method",
			mutate: func(_ *fixture, req *SubmitRequest) { req.DeliveryMethod = "drone" },
			field:  "delivery_method",
		},
		{
			name:   "zero quantity",
			mutate: func(_ *fixture, req *SubmitRequest) { req.Items[0].Quantity = 0 },
			field:  "quantity",
		},
		{
			name: "option of another product",
			mutate: func(f *fixture, req *SubmitRequest) {
				req.Items[0].OptionID = &f.std.ID
			},
			field: "option_id",
		},
		{
			name: "unknown agent",
			mutate: func(_ *fixture, req *SubmitRequest) {
				req.AgentID = uuid.New()
			},
			field: "agent_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			svc := NewDelegateService(f.repos, f.pub, f.logger)
			req := f.submitRequest()
			tt.mutate(f, &req)

			_, err := svc.Submit(context.Background(), f.event.ID, &f.buyer.ID, "", req)
			var verr *errors.ErrValidation
			require.True(t, stderrors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)

			reqs, err := f.repos.Request.ListByBuyer(context.Background(), f.buyer.ID)
			require.NoError(t, err)
			assert.Empty(t, reqs)
			assert.Empty(t, f.pub.published())
		})
	}
}

func TestDelegateSubmit_InPersonNeedsNoAddress(t *testing.T) {
	f := newFixture(t)
	svc := NewDelegateService(f.repos, f.pub, f.logger)

	req := f.submitRequest()
	req.DeliveryMethod = domain.DeliveryInPerson
	req.Address = ""
	req.Items = []domain.Selection{{ProductID: f.productB.ID, OptionID: &f.std.ID, Quantity: 3}}

	result, err := svc.Submit(context.Background(), f.event.ID, nil, "", req)
	require.NoError(t, err)
	assert.Equal(t, int64(13500), result.TotalAmount)

	stored, err := f.repos.Request.GetByID(context.Background(), result.RequestID)
	require.NoError(t, err)
	assert.Nil(t, stored.Address)
	assert.Nil(t, stored.BuyerUserID)
}

func TestDelegateSubmit_InactiveAgent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.agent.IsActive = false
	require.NoError(t, f.repos.Agent.Update(ctx, f.agent))

	svc := NewDelegateService(f.repos, f.pub, f.logger)
	_, err := svc.Submit(ctx, f.event.ID, &f.buyer.ID, "", f.submitRequest())
	var verr *errors.ErrValidation
	require.True(t, stderrors.As(err, &verr))
	assert.Equal(t, "agent_id", verr.Field)
}

func TestDelegateSubmit_RollsBackWhenAStepFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := stderrors.New("insert failed")
	f.store.FailOn("ChatMessage.Create", boom)

	svc := NewDelegateService(f.repos, f.pub, f.logger)
	_, err := svc.Submit(ctx, f.event.ID, &f.buyer.ID, "", f.submitRequest())
	assert.ErrorIs(t, err, boom)

	reqs, err := f.repos.Request.ListByBuyer(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, reqs)

	rooms, err := f.repos.ChatRoom.ListByParticipant(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, rooms)
	assert.Empty(t, f.pub.published())
}

func TestDelegateSubmit_IdempotencyKey(t *testing.T) {
	f := newFixture(t)
	svc := NewDelegateService(f.repos, f.pub, f.logger)
	ctx := context.Background()

	first, err := svc.Submit(ctx, f.event.ID, &f.buyer.ID, "key-1", f.submitRequest())
	require.NoError(t, err)

	second, err := svc.Submit(ctx, f.event.ID, &f.buyer.ID, "key-1", f.submitRequest())
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.RequestID, second.RequestID)
	assert.Equal(t, first.RoomID, second.RoomID)

	reqs, err := f.repos.Request.ListByBuyer(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)

	changed := f.submitRequest()
	changed.Items[0].Quantity = 5
	_, err = svc.Submit(ctx, f.event.ID, &f.buyer.ID, "key-1", changed)
	var conflict *errors.ErrConflict
	assert.True(t, stderrors.As(err, &conflict))
}

func TestDelegateSubmit_IdempotencyKeyScopedByBuyer(t *testing.T) {
	f := newFixture(t)
	svc := NewDelegateService(f.repos, f.pub, f.logger)
	ctx := context.Background()

	other := &domain.User{Email: "other@example.com", DisplayName: "Other"}
	require.NoError(t, f.repos.User.Create(ctx, other))

	first, err := svc.Submit(ctx, f.event.ID, &f.buyer.ID, "shared-key", f.submitRequest())
	require.NoError(t, err)

	second, err := svc.Submit(ctx, f.event.ID, &other.ID, "shared-key", f.submitRequest())
	require.NoError(t, err)
	assert.False(t, second.Replayed)
	assert.NotEqual(t, first.RequestID, second.RequestID)
	assert.NotEqual(t, first.RoomID, second.RoomID)

	guest, err := svc.Submit(ctx, f.event.ID, nil, "shared-key", f.submitRequest())
	require.NoError(t, err)
	assert.False(t, guest.Replayed)
	assert.NotEqual(t, first.RequestID, guest.RequestID)
}

func TestDelegateSubmit_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.pub.err = stderrors.New("broker down")

	result := f.submit(t)
	assert.NotEqual(t, uuid.Nil, result.RequestID)
}
