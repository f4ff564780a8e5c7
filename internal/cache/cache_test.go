package cache

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAdmins struct {
	members map[uuid.UUID]bool
	calls   int
}

func (s *stubAdmins) IsAdmin(_ context.Context, userID uuid.UUID) (bool, error) {
	s.calls++
	return s.members[userID], nil
}

func (s *stubAdmins) Add(_ context.Context, userID uuid.UUID) error {
	s.members[userID] = true
	return nil
}

func TestSessionStore_RevokeAndCheck(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()
	store := NewSessionStore(db)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	mock.ExpectSet(revokedPrefix+"jti-1", "1", time.Hour).SetVal("OK")
	mock.ExpectExists(revokedPrefix + "jti-1").SetVal(1)
	mock.ExpectExists(revokedPrefix + "jti-2").SetVal(0)

	require.NoError(t, store.Revoke(ctx, "jti-1", now.Add(time.Hour)))

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestSessionStore_ExpiredTokenNeedsNoEntry(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewSessionStore(db)

	require.NoError(t, store.Revoke(context.Background(), "old", time.Now().Add(-time.Minute)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthStateStore_TakeOnce(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewOAuthStateStore(db, 10*time.Minute)
	ctx := context.Background()

	mock.ExpectSet(oauthStatePrefix+"st", "verifier", 10*time.Minute).SetVal("OK")
	mock.ExpectGetDel(oauthStatePrefix + "st").SetVal("verifier")
	mock.ExpectGetDel(oauthStatePrefix + "st").RedisNil()

	require.NoError(t, store.Save(ctx, "st", "verifier"))

	verifier, err := store.Take(ctx, "st")
	require.NoError(t, err)
	assert.Equal(t, "verifier", verifier)

	_, err = store.Take(ctx, "st")
	assert.ErrorIs(t, err, ErrUnknownState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminCache_MissLoadsAndStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	userID := uuid.New()
	admins := &stubAdmins{members: map[uuid.UUID]bool{userID: true}}
	c := NewAdminCache(db, admins, time.Minute, zap.NewNop())
	key := adminPrefix + userID.String()

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, "1", time.Minute).SetVal("OK")
	mock.ExpectGet(key).SetVal("1")

	ok, err := c.IsAdmin(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.IsAdmin(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, admins.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminCache_RedisDownFallsBack(t *testing.T) {
	db, mock := redismock.NewClientMock()
	userID := uuid.New()
	admins := &stubAdmins{members: map[uuid.UUID]bool{}}
	c := NewAdminCache(db, admins, time.Minute, zap.NewNop())
	key := adminPrefix + userID.String()

	mock.ExpectGet(key).SetErr(stderrors.New("connection refused"))
	mock.ExpectSet(key, "0", time.Minute).SetErr(stderrors.New("connection refused"))

	ok, err := c.IsAdmin(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, admins.calls)
}
