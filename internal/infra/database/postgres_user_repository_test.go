package database

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"budget_alert_bot/internal/domain/user"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepo(t *testing.T) (*PostgresUserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresUserRepository(db), mock
}

func TestPostgresUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("fills generated fields", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs(int64(555), "alice", "alice@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))

		u := &user.User{TelegramID: 555, Username: "alice", Email: "alice@example.com"}
		require.NoError(t, repo.Create(ctx, u))
		assert.Equal(t, int64(1), u.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violations", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

		err := repo.Create(ctx, &user.User{TelegramID: 555, Username: "alice", Email: "alice@example.com"})
		assert.ErrorIs(t, err, user.ErrUserAlreadyExists)
	})
}

func TestPostgresUserRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "telegram_id", "username", "email", "created_at", "updated_at"}

	t.Run("found", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(1, 555, "alice", "alice@example.com", now, now))

		u, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, int64(555), u.TelegramID)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
			WithArgs(int64(1)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, 1)
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})
}
