package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acu-chatbot/internal/common/logger"
)

func newHistoryStore(t *testing.T) (*HistoryStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewHistoryStore(db, logger.NewNoOpLogger()), mock
}

func TestHistoryStore_SaveInsertsAndTrims(t *testing.T) {
	store, mock := newHistoryStore(t)

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs("sess-1", "user", "merhaba").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM messages`).
		WithArgs("sess-1", HistoryLimit).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store.Save(context.Background(), "sess-1", "user", "merhaba")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_SaveFailureIsSwallowed(t *testing.T) {
	store, mock := newHistoryStore(t)

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs("sess-1", "user", "merhaba").
		WillReturnError(errors.New("connection refused"))

	// Must not panic or trim after a failed insert.
	store.Save(context.Background(), "sess-1", "user", "merhaba")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_HistoryChronological(t *testing.T) {
	store, mock := newHistoryStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"role", "content", "created_at"}).
		AddRow("user", "merhaba", now.Add(-2*time.Minute)).
		AddRow("assistant", "Merhaba! Size nasıl yardımcı olabilirim?", now.Add(-time.Minute)).
		AddRow("user", "yemekte ne var", now)

	mock.ExpectQuery(`SELECT role, content, created_at FROM messages`).
		WithArgs("sess-1").
		WillReturnRows(rows)

	messages, err := store.History(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "merhaba", messages[0].Content)
	assert.Equal(t, "yemekte ne var", messages[2].Content)
	assert.True(t, messages[0].CreatedAt.Before(messages[2].CreatedAt))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_HistoryOrEmptyOnFailure(t *testing.T) {
	store, mock := newHistoryStore(t)

	mock.ExpectQuery(`SELECT role, content, created_at FROM messages`).
		WithArgs("sess-1").
		WillReturnError(errors.New("connection refused"))

	messages := store.HistoryOrEmpty(context.Background(), "sess-1")
	assert.Empty(t, messages)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_PruneOlderThan(t *testing.T) {
	store, mock := newHistoryStore(t)

	mock.ExpectExec(`DELETE FROM messages WHERE created_at`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 42))

	removed, err := store.PruneOlderThan(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(42), removed)

	assert.NoError(t, mock.ExpectationsWereMet())
}
