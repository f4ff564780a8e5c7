package service

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/storage"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

func saveRequest(productID uuid.UUID, rows ...domain.TermRow) SaveTermsRequest {
	return SaveTermsRequest{
		CertWaived:      true,
		DeliveryMethods: []domain.DeliveryMethod{domain.DeliveryStandard, domain.DeliveryStandard, domain.DeliveryInPerson},
		ETA:             domain.ETAWithin1Day,
		Terms:           domain.TermsByProduct{productID: rows},
	}
}

func TestTermsSave_FullyReplacesPriorRows(t *testing.T) {
	f := newFixture(t)
	svc := NewTermsService(f.repos, nil, f.logger)
	ctx := context.Background()

	productC := &domain.Product{EventID: f.event.ID, Name: "C", Price: 8000}
	require.NoError(t, f.repos.Product.Create(ctx, productC))

	_, err := svc.Save(ctx, f.event.ID, f.seller, saveRequest(productC.ID,
		domain.TermRow{Headcount: 2, Fee: 1000},
		domain.TermRow{Headcount: 3, Fee: 1500},
	))
	require.NoError(t, err)

	terms, err := f.repos.AgentTerm.ListByEventAndUser(ctx, f.event.ID, f.seller.ID)
	require.NoError(t, err)
	assert.Len(t, terms, 2)

	_, err = svc.Save(ctx, f.event.ID, f.seller, saveRequest(productC.ID, domain.TermRow{Headcount: 1, Fee: 500}))
	require.NoError(t, err)

	terms, err = f.repos.AgentTerm.ListByEventAndUser(ctx, f.event.ID, f.seller.ID)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, productC.ID, terms[0].ProductID)
	assert.Equal(t, 1, terms[0].Headcount)
	assert.Equal(t, int64(500), terms[0].Fee)
}

func TestTermsSave_CreatesAgentAndForm(t *testing.T) {
	f := newFixture(t)
	svc := NewTermsService(f.repos, nil, f.logger)
	ctx := context.Background()

	newcomer := &domain.User{Email: "runner@example.com"}
	require.NoError(t, f.repos.User.Create(ctx, newcomer))

	reg, err := svc.Save(ctx, f.event.ID, newcomer, saveRequest(f.productA.ID, domain.TermRow{OptionID: &f.large.ID, Headcount: 1, Fee: 0}))
	require.NoError(t, err)
	assert.Equal(t, "runner", reg.Agent.DisplayName)
	assert.True(t, reg.Agent.IsActive)

	loaded, err := svc.Load(ctx, f.event.ID, newcomer.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Form)
	assert.Equal(t, []domain.DeliveryMethod{domain.DeliveryStandard, domain.DeliveryInPerson}, loaded.Form.DeliveryMethods)
	assert.Equal(t, domain.ETAWithin1Day, loaded.ETA)
	assert.Len(t, loaded.Terms[f.productA.ID], 1)

	// saving again reuses the agent
	again, err := svc.Save(ctx, f.event.ID, newcomer, saveRequest(f.productB.ID, domain.TermRow{Headcount: 1}))
	require.NoError(t, err)
	assert.Equal(t, reg.Agent.ID, again.Agent.ID)
}

func TestTermsSave_Validation(t *testing.T) {
	f := newFixture(t)
	svc := NewTermsService(f.repos, nil, f.logger)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   func() SaveTermsRequest
		field string
	}{
		{"no products", func() SaveTermsRequest {
			r := saveRequest(f.productA.ID)
			r.Terms = domain.TermsByProduct{}
			return r
		}, "terms"},
		{"empty rows", func() SaveTermsRequest { return saveRequest(f.productA.ID) }, "terms"},
		{"zero headcount", func() SaveTermsRequest {
			return saveRequest(f.productA.ID, domain.TermRow{Headcount: 0, Fee: 100})
		}, "headcount"},
		{"negative fee", func() SaveTermsRequest {
			return saveRequest(f.productA.ID, domain.TermRow{Headcount: 1, Fee: -1})
		}, "fee"},
		{"no delivery method", func() SaveTermsRequest {
			r := saveRequest(f.productA.ID, domain.TermRow{Headcount: 1})
			r.DeliveryMethods = nil
			return r
		}, "delivery_methods"},
		{"no certification", func() SaveTermsRequest {
			r := saveRequest(f.productA.ID, domain.TermRow{Headcount: 1})
			r.CertWaived = false
			return r
		}, "cert_url"},
		{"other eta without text", func() SaveTermsRequest {
			r := saveRequest(f.productA.ID, domain.TermRow{Headcount: 1})
			r.ETA = domain.ETAOther
			return r
		}, "eta"},
		{"product from another event", func() SaveTermsRequest {
			return saveRequest(uuid.New(), domain.TermRow{Headcount: 1})
		}, "terms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(ctx, f.event.ID, f.seller, tt.req())
			var verr *errors.ErrValidation
			require.True(t, stderrors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := svc.Save(ctx, f.event.ID, nil, saveRequest(f.productA.ID, domain.TermRow{Headcount: 1}))
	var unauth *errors.ErrUnauthorized
	assert.True(t, stderrors.As(err, &unauth))
}

func TestTermsSave_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	svc := NewTermsService(f.repos, nil, f.logger)
	ctx := context.Background()

	_, err := svc.Save(ctx, f.event.ID, f.seller, saveRequest(f.productB.ID, domain.TermRow{Headcount: 2, Fee: 1000}))
	require.NoError(t, err)

	boom := stderrors.New("insert failed")
	f.store.FailOn("AgentTerm.CreateBatch", boom)
	_, err = svc.Save(ctx, f.event.ID, f.seller, saveRequest(f.productB.ID, domain.TermRow{Headcount: 5, Fee: 9000}))
	assert.ErrorIs(t, err, boom)

	terms, err := f.repos.AgentTerm.ListByEventAndUser(ctx, f.event.ID, f.seller.ID)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, 2, terms[0].Headcount)
}

func TestBulkExpand(t *testing.T) {
	f := newFixture(t)
	svc := NewTermsService(f.repos, nil, f.logger)
	ctx := context.Background()

	plain := &domain.Product{EventID: f.event.ID, Name: "Plain", Price: 3000}
	require.NoError(t, f.repos.Product.Create(ctx, plain))

	rows := []domain.TermRow{{Headcount: 0, Fee: 700}, {Headcount: 2, Fee: -5}}
	out, err := svc.BulkExpand(ctx, f.event.ID, BulkTermsRequest{
		ProductIDs: []uuid.UUID{f.productA.ID, plain.ID},
		Rows:       rows,
		PerOption:  true,
	})
	require.NoError(t, err)

	require.Len(t, out[f.productA.ID], 2)
	for _, r := range out[f.productA.ID] {
		require.NotNil(t, r.OptionID)
		assert.Equal(t, f.large.ID, *r.OptionID)
	}
	assert.Equal(t, domain.TermRow{Headcount: 1, Fee: 700}, out[plain.ID][0])
	assert.Equal(t, domain.TermRow{Headcount: 2, Fee: 0}, out[plain.ID][1])

	out, err = svc.BulkExpand(ctx, f.event.ID, BulkTermsRequest{
		ProductIDs: []uuid.UUID{f.productA.ID},
		Rows:       rows,
	})
	require.NoError(t, err)
	assert.Nil(t, out[f.productA.ID][0].OptionID)
}

func TestDefaultRows(t *testing.T) {
	small := &domain.ProductOption{ID: uuid.New(), Name: "Small"}
	large := &domain.ProductOption{ID: uuid.New(), Name: "Large"}

	t.Run("no options no terms", func(t *testing.T) {
		assert.Equal(t, []domain.TermRow{{Headcount: 1, Fee: 0}}, DefaultRows(nil, nil))
	})

	t.Run("no options keeps saved rows", func(t *testing.T) {
		saved := []domain.TermRow{{Headcount: 2, Fee: 100}, {Headcount: 4, Fee: 300}}
		assert.Equal(t, saved, DefaultRows(nil, saved))
	})

	t.Run("options prefer their own row then the generic row", func(t *testing.T) {
		saved := []domain.TermRow{
			{Headcount: 3, Fee: 900},
			{OptionID: &large.ID, Headcount: 5, Fee: 2000},
		}
		rows := DefaultRows([]*domain.ProductOption{small, large}, saved)
		require.Len(t, rows, 2)
		assert.Equal(t, small.ID, *rows[0].OptionID)
		assert.Equal(t, 3, rows[0].Headcount)
		assert.Equal(t, large.ID, *rows[1].OptionID)
		assert.Equal(t, int64(2000), rows[1].Fee)
	})

	t.Run("options untouched", func(t *testing.T) {
		rows := DefaultRows([]*domain.ProductOption{small}, nil)
		require.Len(t, rows, 1)
		assert.Equal(t, 1, rows[0].Headcount)
		assert.Equal(t, int64(0), rows[0].Fee)
	})
}

func TestEditorDefaults_TouchedFlag(t *testing.T) {
	f := newFixture(t)
	svc := NewTermsService(f.repos, nil, f.logger)
	ctx := context.Background()

	rows, err := svc.EditorDefaults(ctx, f.event.ID, f.productA.ID, f.seller.ID)
	require.NoError(t, err)
	assert.False(t, rows.Touched)
	require.Len(t, rows.Rows, 1)

	_, err = svc.Save(ctx, f.event.ID, f.seller, saveRequest(f.productA.ID, domain.TermRow{Headcount: 4, Fee: 250}))
	require.NoError(t, err)

	rows, err = svc.EditorDefaults(ctx, f.event.ID, f.productA.ID, f.seller.ID)
	require.NoError(t, err)
	assert.True(t, rows.Touched)
	assert.Equal(t, 4, rows.Rows[0].Headcount)
	assert.Equal(t, f.large.ID, *rows.Rows[0].OptionID)
}

func TestUploadCertification(t *testing.T) {
	f := newFixture(t)
	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)
	svc := NewTermsService(f.repos, store, f.logger)

	url, err := svc.UploadCertification(context.Background(), "receipt.JPG", bytes.NewBufferString("img"))
	require.NoError(t, err)
	assert.Contains(t, url, "/storage/verifications/certs/")
	assert.Contains(t, url, ".jpg")
}
