package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calipso-dynamics/notification-api/internal/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestChannelUpdateStatusIncrementsAttemptsAtomically(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChannelRepository(db)

	mock.ExpectExec(`UPDATE operation_channels SET status = \?, error_message = \?, updated_at = \?, attempts = attempts \+ 1 WHERE id = \?`).
		WithArgs(model.StatusFailed, sqlmock.AnyArg(), sqlmock.AnyArg(), "ch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg := "smtp connect failed"
	err := repo.UpdateStatus(context.Background(), "ch-1", model.StatusFailed, &msg, true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChannelUpdateStatusWithoutIncrement(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChannelRepository(db)

	mock.ExpectExec(`UPDATE operation_channels SET status = \?, error_message = \?, updated_at = \? WHERE id = \?`).
		WithArgs(model.StatusDone, nil, sqlmock.AnyArg(), "ch-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "ch-2", model.StatusDone, nil, false)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChannelUpdateStatusMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChannelRepository(db)

	mock.ExpectExec(`UPDATE operation_channels`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", model.StatusDone, nil, false)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestChannelCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChannelRepository(db)

	mock.ExpectExec(`INSERT INTO operation_channels`).
		WithArgs("ch-3", "op-1", model.ChannelEmail, model.StatusPending, nil, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ch := &model.ChannelAttempt{
		ID:          "ch-3",
		OperationID: "op-1",
		Channel:     model.ChannelEmail,
		Status:      model.StatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), ch))
	assert.False(t, ch.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
