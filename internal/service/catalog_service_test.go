package service

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

func TestCatalog_EventDetail(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.repos, f.logger)
	ctx := context.Background()

	idle := &domain.Agent{EventID: f.event.ID, DisplayName: "Idle", IsActive: false}
	require.NoError(t, f.repos.Agent.Create(ctx, idle))

	detail, err := svc.GetEventDetail(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, f.event.ID, detail.Event.ID)
	require.Len(t, detail.Products, 2)
	assert.Equal(t, "A", detail.Products[0].Name)
	require.Len(t, detail.Agents, 1)
	assert.Equal(t, f.agent.ID, detail.Agents[0].ID)

	_, err = svc.GetEventDetail(ctx, uuid.New())
	assert.True(t, errors.IsNotFound(err))
}

func TestCatalog_ProductDetail(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.repos, f.logger)

	detail, err := svc.GetProductDetail(context.Background(), f.productA.ID)
	require.NoError(t, err)
	require.Len(t, detail.Options, 1)
	assert.Equal(t, "Large", detail.Options[0].Name)
}

func TestCatalog_BackendFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.repos, f.logger)
	boom := stderrors.New("connection refused")
	f.store.FailOn("Event.List", boom)

	_, err := svc.ListEvents(context.Background())
	assert.ErrorIs(t, err, boom)
}
