package memory

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

func seedEvent(t *testing.T, repos *repository.Repositories) *domain.Event {
	t.Helper()
	event := &domain.Event{Title: "Pop-up"}
	require.NoError(t, repos.Event.Create(context.Background(), event))
	return event
}

func TestWithinTx_RestoresSnapshotOnError(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	event := seedEvent(t, repos)

	boom := stderrors.New("boom")
	err := repos.Tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		require.NoError(t, tx.Product.Create(ctx, &domain.Product{EventID: event.ID, Name: "Keyring", Price: 1000}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	products, err := repos.Product.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestFailOn_InjectsAndClears(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	boom := stderrors.New("db down")
	store.FailOn("Event.List", boom)
	_, err := repos.Event.List(ctx)
	assert.ErrorIs(t, err, boom)

	store.FailOn("Event.List", nil)
	_, err = repos.Event.List(ctx)
	assert.NoError(t, err)
}

func TestChatRoomUpsert_SameRequestSameRoom(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	event := seedEvent(t, repos)

	agent := &domain.Agent{EventID: event.ID, DisplayName: "Mina", IsActive: true}
	require.NoError(t, repos.Agent.Create(ctx, agent))
	req := &domain.ProxyRequest{EventID: event.ID, AgentID: agent.ID, CustomerName: "Kim", Phone: "010", DeliveryMethod: domain.DeliveryInPerson}
	require.NoError(t, repos.Request.Create(ctx, req))

	first := &domain.ChatRoom{RequestID: req.ID, EventID: event.ID, AgentID: agent.ID}
	require.NoError(t, repos.ChatRoom.Upsert(ctx, first))
	second := &domain.ChatRoom{RequestID: req.ID, EventID: event.ID, AgentID: agent.ID}
	require.NoError(t, repos.ChatRoom.Upsert(ctx, second))

	assert.Equal(t, first.ID, second.ID)
}

func TestAgentListByEvent_OrdersByHandledCount(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	event := seedEvent(t, repos)

	a := &domain.Agent{EventID: event.ID, DisplayName: "A", HandledCount: 3, IsActive: true}
	b := &domain.Agent{EventID: event.ID, DisplayName: "B", HandledCount: 10, IsActive: true}
	c := &domain.Agent{EventID: event.ID, DisplayName: "C", HandledCount: 3, IsActive: true}
	hidden := &domain.Agent{EventID: event.ID, DisplayName: "Off", HandledCount: 50}
	for _, agent := range []*domain.Agent{a, b, c, hidden} {
		require.NoError(t, repos.Agent.Create(ctx, agent))
	}

	agents, err := repos.Agent.ListByEvent(ctx, event.ID, true)
	require.NoError(t, err)
	require.Len(t, agents, 3)
	assert.Equal(t, []string{"B", "A", "C"}, []string{agents[0].DisplayName, agents[1].DisplayName, agents[2].DisplayName})
}

func TestAgentCreate_DuplicateOwnerConflicts(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	event := seedEvent(t, repos)
	owner := uuid.New()

	require.NoError(t, repos.Agent.Create(ctx, &domain.Agent{EventID: event.ID, UserID: &owner, DisplayName: "one"}))
	err := repos.Agent.Create(ctx, &domain.Agent{EventID: event.ID, UserID: &owner, DisplayName: "two"})

	var conflict *errors.ErrConflict
	assert.True(t, stderrors.As(err, &conflict))
}

func TestEventDelete_CascadesToProductsAndOptions(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	event := seedEvent(t, repos)

	product := &domain.Product{EventID: event.ID, Name: "Badge"}
	require.NoError(t, repos.Product.Create(ctx, product))
	option := &domain.ProductOption{ProductID: product.ID, Name: "Red"}
	require.NoError(t, repos.Option.Create(ctx, option))

	require.NoError(t, repos.Event.Delete(ctx, event.ID))

	_, err := repos.Option.GetByID(ctx, option.ID)
	var nf *errors.ErrNotFound
	assert.True(t, stderrors.As(err, &nf))
}
