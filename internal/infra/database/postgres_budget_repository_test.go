package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"budget_alert_bot/internal/domain/budget"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var budgetRowColumns = []string{"id", "user_id", "monthly_limit", "current_total", "alert_sent", "created_at", "updated_at"}

func newBudgetRepo(t *testing.T) (*PostgresBudgetRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresBudgetRepository(db), mock
}

func TestPostgresBudgetRepository_GetByUserID(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("returns the stored record", func(t *testing.T) {
		repo, mock := newBudgetRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM budgets WHERE user_id = $1")).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(budgetRowColumns).AddRow(1, 7, 100.0, 42.5, false, now, now))

		rec, err := repo.GetByUserID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), rec.UserID)
		assert.Equal(t, 100.0, rec.MonthlyLimit)
		assert.Equal(t, 42.5, rec.CurrentTotal)
		assert.False(t, rec.AlertSent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps no rows to ErrBudgetNotFound", func(t *testing.T) {
		repo, mock := newBudgetRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM budgets WHERE user_id = $1")).
			WithArgs(int64(7)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByUserID(ctx, 7)
		assert.ErrorIs(t, err, budget.ErrBudgetNotFound)
	})

	t.Run("wraps driver errors", func(t *testing.T) {
		repo, mock := newBudgetRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM budgets WHERE user_id = $1")).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.GetByUserID(ctx, 7)
		require.Error(t, err)
		assert.NotErrorIs(t, err, budget.ErrBudgetNotFound)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestPostgresBudgetRepository_ListByUserIDs(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("queries with an array argument", func(t *testing.T) {
		repo, mock := newBudgetRepo(t)
		ids := []int64{1, 2, 3}
		mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = ANY($1)")).
			WithArgs(pq.Array(ids)).
			WillReturnRows(sqlmock.NewRows(budgetRowColumns).
				AddRow(10, 1, 100.0, 10.0, false, now, now).
				AddRow(11, 3, 50.0, 75.0, true, now, now))

		records, err := repo.ListByUserIDs(ctx, ids)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, int64(1), records[0].UserID)
		assert.Equal(t, int64(3), records[1].UserID)
		assert.True(t, records[1].AlertSent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips the query for an empty id list", func(t *testing.T) {
		repo, mock := newBudgetRepo(t)
		records, err := repo.ListByUserIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresBudgetRepository_Upsert(t *testing.T) {
	repo, mock := newBudgetRepo(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE")).
		WithArgs(int64(7), 100.0, 20.0, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(3, now, now))

	rec := &budget.Record{UserID: 7, MonthlyLimit: 100, CurrentTotal: 20}
	require.NoError(t, repo.Upsert(context.Background(), rec))
	assert.Equal(t, int64(3), rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBudgetRepository_AdjustTotal(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("returns the adjusted record", func(t *testing.T) {
		repo, mock := newBudgetRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("SET current_total = current_total + $1")).
			WithArgs(60.0, int64(7)).
			WillReturnRows(sqlmock.NewRows(budgetRowColumns).AddRow(1, 7, 100.0, 110.0, false, now, now))

		rec, err := repo.AdjustTotal(ctx, 7, 60)
		require.NoError(t, err)
		assert.Equal(t, 110.0, rec.CurrentTotal)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a missing budget", func(t *testing.T) {
		repo, mock := newBudgetRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("SET current_total = current_total + $1")).
			WithArgs(60.0, int64(7)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.AdjustTotal(ctx, 7, 60)
		assert.ErrorIs(t, err, budget.ErrBudgetNotFound)
	})
}

func TestPostgresBudgetRepository_SetAlertSent(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the flag", func(t *testing.T) {
		repo, mock := newBudgetRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE budgets SET alert_sent = $1")).
			WithArgs(true, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SetAlertSent(ctx, 7, true))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a missing budget", func(t *testing.T) {
		repo, mock := newBudgetRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE budgets SET alert_sent = $1")).
			WithArgs(true, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.SetAlertSent(ctx, 7, true), budget.ErrBudgetNotFound)
	})
}

func TestPostgresBudgetRepository_Delete(t *testing.T) {
	repo, mock := newBudgetRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM budgets WHERE user_id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}
