package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/auth"
	"github.com/popupmarket/proxybuy/internal/config"
	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/messaging"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/internal/repository/memory"
	"github.com/popupmarket/proxybuy/internal/service"
	"github.com/popupmarket/proxybuy/internal/storage"
)

type revokedSet struct {
	mu  sync.Mutex
	ids map[string]bool
}

func (r *revokedSet) Revoke(_ context.Context, id string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = true
	return nil
}

func (r *revokedSet) IsRevoked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ids[id], nil
}

type noStates struct{}

func (noStates) Save(context.Context, string, string) error { return nil }
func (noStates) Take(context.Context, string) (string, error) {
	return "", stderrors.New("unknown state")
}

type testServer struct {
	router  *gin.Engine
	repos   *repository.Repositories
	event   *domain.Event
	product *domain.Product
	agent   *domain.Agent
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	logger := zap.NewNop()
	repos := memory.NewStore().Repositories()

	cfg := &config.Config{
		Environment: "test",
		Storage:     config.StorageConfig{Dir: t.TempDir(), PublicBaseURL: "http://localhost", MaxUploadSize: 1 << 20},
	}
	store, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.PublicBaseURL)
	require.NoError(t, err)

	authService := service.NewAuthService(
		repos,
		auth.NewTokenManager("router-secret", time.Hour),
		&revokedSet{ids: map[string]bool{}},
		noStates{},
		repos.Admin,
		logger,
	)

	s := &testServer{repos: repos}
	s.router = NewRouter(cfg, Dependencies{
		Repos:     repos,
		Publisher: messaging.NoopPublisher{},
		Store:     store,
		Auth:      authService,
		Admins:    repos.Admin,
	}, logger)

	s.event = &domain.Event{Title: "Pop-up"}
	require.NoError(t, repos.Event.Create(ctx, s.event))
	s.product = &domain.Product{EventID: s.event.ID, Name: "Photocard", Price: 3000, Status: domain.ProductStatusOnSale}
	require.NoError(t, repos.Product.Create(ctx, s.product))
	s.agent = &domain.Agent{EventID: s.event.ID, DisplayName: "Runner", IsActive: true}
	require.NoError(t, repos.Agent.Create(ctx, s.agent))
	return s
}

func (s *testServer) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) signUp(t *testing.T, email string) (string, string) {
	t.Helper()
	w := s.do(http.MethodPost, "/v1/auth/sign-up", map[string]string{"email": email, "password": "password123"}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken, resp.User.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/v1/events", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pop-up")

	w = s.do(http.MethodGet, "/v1/events/"+s.event.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Photocard")
	assert.Contains(t, w.Body.String(), "Runner")

	w = s.do(http.MethodGet, "/v1/events/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/v1/products/"+s.agent.ID.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitRoute(t *testing.T) {
	s := newTestServer(t)
	path := "/v1/events/" + s.event.ID.String() + "/requests"
	body := map[string]interface{}{
		"agent_id":        s.agent.ID,
		"customer_name":   "Lee",
		"phone":           "010-0000-0000",
		"delivery_method": "standard",
		"address":         "",
		"items":           []map[string]interface{}{{"product_id": s.product.ID, "quantity": 2}},
	}

	w := s.do(http.MethodPost, path, body, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "address")

	body["address"] = "Busan"
	headers := map[string]string{"Idempotency-Key": "abc-123"}
	w = s.do(http.MethodPost, path, body, headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var first service.SubmitResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, int64(9500), first.TotalAmount)

	w = s.do(http.MethodPost, path, body, headers)
	require.Equal(t, http.StatusOK, w.Code)
	var replay service.SubmitResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &replay))
	assert.Equal(t, first.RequestID, replay.RequestID)
	assert.True(t, replay.Replayed)
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/v1/me/requests", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _ := s.signUp(t, "me@example.com")
	bearer := map[string]string{"Authorization": "Bearer " + token}

	w = s.do(http.MethodGet, "/v1/auth/session", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_admin":false`)

	w = s.do(http.MethodGet, "/v1/me/requests", nil, bearer)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/v1/auth/sign-out", nil, bearer)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/v1/auth/session", nil, bearer)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRequireMembership(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.signUp(t, "boss@example.com")
	bearer := map[string]string{"Authorization": "Bearer " + token}

	w := s.do(http.MethodPost, "/v1/admin/events", map[string]string{"title": "New"}, bearer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	user, err := s.repos.User.GetByEmail(context.Background(), "boss@example.com")
	require.NoError(t, err)
	require.Equal(t, userID, user.ID.String())
	require.NoError(t, s.repos.Admin.Add(context.Background(), user.ID))

	w = s.do(http.MethodPost, "/v1/admin/events", map[string]string{"title": "New"}, bearer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/v1/admin/events", map[string]string{"title": ""}, bearer)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
