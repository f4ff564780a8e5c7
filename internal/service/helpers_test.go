package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/internal/repository/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func ptr[T any](v T) *T { return &v }

// fixture is one event with two products, their options, a buyer and an
// agent owned by a seller
type fixture struct {
	store  *memory.Store
	repos  *repository.Repositories
	pub    *recordingPublisher
	logger *zap.Logger

	event    *domain.Event
	productA *domain.Product
	large    *domain.ProductOption
	productB *domain.Product
	std      *domain.ProductOption
	buyer    *domain.User
	seller   *domain.User
	agent    *domain.Agent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()

	f := &fixture{
		store:  store,
		repos:  repos,
		pub:    &recordingPublisher{},
		logger: zap.NewNop(),
	}

	f.event = &domain.Event{Title: "Summer pop-up", Address: "Seongsu"}
	require.NoError(t, repos.Event.Create(ctx, f.event))

	f.productA = &domain.Product{EventID: f.event.ID, Name: "A", Price: 10000, Status: domain.ProductStatusOnSale}
	require.NoError(t, repos.Product.Create(ctx, f.productA))
	f.large = &domain.ProductOption{ProductID: f.productA.ID, Name: "Large", PriceDelta: 2000, Status: domain.ProductStatusOnSale}
	require.NoError(t, repos.Option.Create(ctx, f.large))

	f.productB = &domain.Product{EventID: f.event.ID, Name: "B", Price: 5000, Status: domain.ProductStatusOnSale}
	require.NoError(t, repos.Product.Create(ctx, f.productB))
	f.std = &domain.ProductOption{ProductID: f.productB.ID, Name: "Std", PriceOverride: ptr(int64(4500)), Status: domain.ProductStatusOnSale}
	require.NoError(t, repos.Option.Create(ctx, f.std))

	f.buyer = &domain.User{Email: "buyer@example.com", DisplayName: "Buyer"}
	require.NoError(t, repos.User.Create(ctx, f.buyer))
	f.seller = &domain.User{Email: "seller@example.com", DisplayName: "Seller"}
	require.NoError(t, repos.User.Create(ctx, f.seller))

	f.agent = &domain.Agent{EventID: f.event.ID, UserID: &f.seller.ID, DisplayName: "Seller", IsActive: true}
	require.NoError(t, repos.Agent.Create(ctx, f.agent))

	return f
}

func (f *fixture) submitRequest() SubmitRequest {
	return SubmitRequest{
		AgentID:        f.agent.ID,
		CustomerName:   "Kim",
		Phone:          "010-1234-5678",
		DeliveryMethod: domain.DeliveryCUEconomy,
		Address:        "Seoul",
		Items: []domain.Selection{
			{ProductID: f.productA.ID, OptionID: &f.large.ID, Quantity: 2},
		},
	}
}

// submit places the default request as the buyer
func (f *fixture) submit(t *testing.T) *SubmitResult {
	t.Helper()
	svc := NewDelegateService(f.repos, f.pub, f.logger)
	result, err := svc.Submit(context.Background(), f.event.ID, &f.buyer.ID, "", f.submitRequest())
	require.NoError(t, err)
	return result
}
