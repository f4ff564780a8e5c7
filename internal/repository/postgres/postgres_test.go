package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db, zap.NewNop())
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id)
	var nf *errors.ErrNotFound
	require.True(t, stderrors.As(err, &nf))
	assert.Equal(t, "user", nf.Resource)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db, zap.NewNop())

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &domain.User{Email: " Buyer@Example.com ", Provider: "password"})
	var conflict *errors.ErrConflict
	require.True(t, stderrors.As(err, &conflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_ListScansNullableColumns(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepository(db, zap.NewNop())

	now := time.Now()
	open := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "title", "group_name", "address", "open_date", "close_date",
		"open_time", "close_time", "banner_url", "created_at", "updated_at",
	}).
		AddRow(uuid.New().String(), "Spring pop-up", "G1", "Seoul", open, nil, "10:00", "20:00", nil, now, now).
		AddRow(uuid.New().String(), "Undated", "", "", nil, nil, "", "", "https://cdn/banner.png", now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY open_date ASC NULLS LAST`)).WillReturnRows(rows)

	events, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NotNil(t, events[0].OpenDate)
	assert.True(t, events[0].OpenDate.Equal(open))
	assert.Nil(t, events[0].BannerURL)
	assert.Nil(t, events[1].OpenDate)
	require.NotNil(t, events[1].BannerURL)
	assert.Equal(t, "https://cdn/banner.png", *events[1].BannerURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_DeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepository(db, zap.NewNop())
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM events WHERE id = $1`)).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), id)
	var nf *errors.ErrNotFound
	assert.True(t, stderrors.As(err, &nf))
}

func TestChatRoomRepository_UpsertReturnsExistingRoom(t *testing.T) {
	db, mock := newMock(t)
	repo := NewChatRoomRepository(db, zap.NewNop())

	existingID := uuid.New()
	requestID := uuid.New()
	eventID := uuid.New()
	agentID := uuid.New()
	buyer := uuid.New()
	created := time.Now().Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (request_id) DO UPDATE`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "request_id", "event_id", "agent_id", "buyer_user_id", "agent_user_id", "created_at",
		}).AddRow(existingID.String(), requestID.String(), eventID.String(), agentID.String(), buyer.String(), nil, created))

	room := &domain.ChatRoom{RequestID: requestID, EventID: eventID, AgentID: agentID, BuyerUserID: &buyer}
	require.NoError(t, repo.Upsert(context.Background(), room))

	assert.Equal(t, existingID, room.ID)
	assert.Nil(t, room.AgentUserID)
	assert.True(t, room.CreatedAt.Equal(created))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgentFormRepository_DeliveryMethodsArray(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAgentFormRepository(db, zap.NewNop())
	eventID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM agent_event_forms`)).
		WithArgs(eventID, userID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "event_id", "agent_user_id", "cert_url", "cert_waived", "delivery_methods",
			"delivery_eta", "has_perk", "memo", "created_at",
		}).AddRow(uuid.New().String(), eventID.String(), userID.String(), nil, true,
			"{in_person,cu_economy}", "Same day as purchase", false, nil, time.Now()))

	form, err := repo.GetByEventAndUser(context.Background(), eventID, userID)
	require.NoError(t, err)
	assert.Equal(t, []domain.DeliveryMethod{domain.DeliveryInPerson, domain.DeliveryCUEconomy}, form.DeliveryMethods)
	assert.True(t, form.CertWaived)
	assert.Nil(t, form.CertURL)
	assert.Equal(t, "Same day as purchase", form.DeliveryETA)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	repos := NewRepositories(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM agent_event_forms`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := stderrors.New("boom")
	err := repos.Tx.WithinTx(context.Background(), func(tx *repository.Repositories) error {
		if err := tx.AgentForm.DeleteByEventAndUser(context.Background(), uuid.New(), uuid.New()); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_NestedCallsJoin(t *testing.T) {
	db, mock := newMock(t)
	repos := NewRepositories(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE agents SET handled_cnt = handled_cnt + 1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repos.Tx.WithinTx(context.Background(), func(tx *repository.Repositories) error {
		return tx.Tx.WithinTx(context.Background(), func(inner *repository.Repositories) error {
			return inner.Agent.IncrementHandled(context.Background(), uuid.New())
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
