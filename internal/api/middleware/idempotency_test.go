package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/service"
)

func newIdempotencyEngine(principal *service.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/submit",
		func(c *gin.Context) {
			if principal != nil {
				c.Set(principalKey, principal)
			}
			c.Next()
		},
		IdempotencyMiddleware(zap.NewNop()),
		func(c *gin.Context) {
			c.String(http.StatusOK, GetIdempotencyKey(c))
		},
	)
	return r
}

func sendWithKey(r *gin.Engine, remoteAddr, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.RemoteAddr = remoteAddr
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyMiddleware_GuestKeysScopedByAddress(t *testing.T) {
	r := newIdempotencyEngine(nil)

	first := sendWithKey(r, "203.0.113.7:5000", "abc-123")
	second := sendWithKey(r, "198.51.100.2:6000", "abc-123")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, "203.0.113.7|abc-123", first.Body.String())
	assert.NotEqual(t, first.Body.String(), second.Body.String())

	again := sendWithKey(r, "203.0.113.7:5001", "abc-123")
	assert.Equal(t, first.Body.String(), again.Body.String())
}

func TestIdempotencyMiddleware_SignedInKeyUnchanged(t *testing.T) {
	principal := &service.Principal{User: &domain.User{ID: uuid.New()}}
	r := newIdempotencyEngine(principal)

	w := sendWithKey(r, "203.0.113.7:5000", "  abc-123 ")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestIdempotencyMiddleware_NoKeyAndOversizedKey(t *testing.T) {
	r := newIdempotencyEngine(nil)

	w := sendWithKey(r, "203.0.113.7:5000", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = sendWithKey(r, "203.0.113.7:5000", strings.Repeat("k", maxIdempotencyKeyLen+1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
