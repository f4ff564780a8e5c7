package service

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/messaging"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

func TestChatRooms_CounterpartLabels(t *testing.T) {
	f := newFixture(t)
	svc := NewChatService(f.repos, f.pub, f.logger)
	ctx := context.Background()
	result := f.submit(t)

	buyerRooms, err := svc.ListRooms(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, buyerRooms, 1)
	assert.Equal(t, result.RoomID, buyerRooms[0].Room.ID)
	assert.Equal(t, "Seller", buyerRooms[0].Counterpart)
	assert.Equal(t, f.event.Title, buyerRooms[0].Event.Title)

	sellerRooms, err := svc.ListRooms(ctx, f.seller.ID)
	require.NoError(t, err)
	require.Len(t, sellerRooms, 1)
	assert.Equal(t, CustomerLabel, sellerRooms[0].Counterpart)
	assert.True(t, sellerRooms[0].ViewerIsAgent)
}

func TestChatMessages(t *testing.T) {
	f := newFixture(t)
	svc := NewChatService(f.repos, f.pub, f.logger)
	ctx := context.Background()
	result := f.submit(t)

	msg, err := svc.SendMessage(ctx, result.RoomID, f.seller.ID, SendMessageRequest{Text: "  on my way  "})
	require.NoError(t, err)
	assert.Equal(t, "on my way", msg.Text)

	msgs, err := svc.ListMessages(ctx, result.RoomID, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, msg.ID, msgs[1].ID)

	_, err = svc.SendMessage(ctx, result.RoomID, f.seller.ID, SendMessageRequest{Text: "   "})
	var verr *errors.ErrValidation
	assert.True(t, stderrors.As(err, &verr))

	outsider := &domain.User{Email: "nosy@example.com"}
	require.NoError(t, f.repos.User.Create(ctx, outsider))
	_, err = svc.ListMessages(ctx, result.RoomID, outsider.ID)
	var forbidden *errors.ErrForbidden
	assert.True(t, stderrors.As(err, &forbidden))

	published := f.pub.published()
	assert.Equal(t, messaging.MessageCreated, published[len(published)-1])
}

func TestChatSummary(t *testing.T) {
	f := newFixture(t)
	svc := NewChatService(f.repos, f.pub, f.logger)
	ctx := context.Background()
	result := f.submit(t)

	sum, err := svc.Summary(ctx, result.RoomID, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, result.RequestID, sum.RequestID)
	assert.Equal(t, int64(24000), sum.Subtotal)
	assert.Equal(t, int64(1800), sum.ShippingFee)
	assert.Equal(t, int64(25800), sum.TotalAmount)
	require.Len(t, sum.Lines, 1)
	assert.Equal(t, "A - Large", sum.Lines[0].Label)
	assert.Equal(t, int64(12000), sum.Lines[0].PriceSnapshot)
}

func TestBuildSummary_KeepsSnapshotAfterPriceChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	result := f.submit(t)

	f.large.PriceDelta = 9000
	require.NoError(t, f.repos.Option.Update(ctx, f.large))

	svc := NewChatService(f.repos, f.pub, f.logger)
	sum, err := svc.Summary(ctx, result.RoomID, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), sum.Lines[0].PriceSnapshot)
	assert.Equal(t, int64(25800), sum.TotalAmount)
}
