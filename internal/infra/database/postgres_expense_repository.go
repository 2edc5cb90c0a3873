package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"budget_alert_bot/internal/domain/expense"
)

type PostgresExpenseRepository struct {
	db *sql.DB
}

func NewPostgresExpenseRepository(db *sql.DB) *PostgresExpenseRepository {
	return &PostgresExpenseRepository{db: db}
}

func (r *PostgresExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	query := `INSERT INTO expenses (user_id, name, amount, category, date)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, e.UserID, e.Name, e.Amount, e.Category, e.Date).Scan(&e.ID); err != nil {
		return fmt.Errorf("error creating expense: %w", err)
	}
	return nil
}

func (r *PostgresExpenseRepository) GetByID(ctx context.Context, id int64) (*expense.Expense, error) {
	query := `SELECT id, user_id, name, amount, category, date FROM expenses WHERE id = $1`
	e := &expense.Expense{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.UserID, &e.Name, &e.Amount, &e.Category, &e.Date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, expense.ErrExpenseNotFound
		}
		return nil, fmt.Errorf("error getting expense by ID: %w", err)
	}
	return e, nil
}

func (r *PostgresExpenseRepository) ListByUser(ctx context.Context, userID int64) ([]*expense.Expense, error) {
	query := `SELECT id, user_id, name, amount, category, date FROM expenses
               WHERE user_id = $1
               ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing expenses of user %d: %w", userID, err)
	}
	defer rows.Close()

	var items []*expense.Expense
	for rows.Next() {
		e := &expense.Expense{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.Amount, &e.Category, &e.Date); err != nil {
			return nil, fmt.Errorf("error scanning expense row: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense rows: %w", err)
	}
	return items, nil
}

func (r *PostgresExpenseRepository) UpdateAmount(ctx context.Context, id int64, amount float64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE expenses SET amount = $1 WHERE id = $2`, amount, id)
	if err != nil {
		return fmt.Errorf("error updating expense: %w", err)
	}
	return expectOneRow(result)
}

func (r *PostgresExpenseRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting expense: %w", err)
	}
	return expectOneRow(result)
}

// DeleteAllByUser returns how many expenses were removed.
func (r *PostgresExpenseRepository) DeleteAllByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("error deleting expenses of user %d: %w", userID, err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error checking deleted expenses: %w", err)
	}
	return removed, nil
}

func (r *PostgresExpenseRepository) SumByUser(ctx context.Context, userID int64) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("error summing expenses of user %d: %w", userID, err)
	}
	return total, nil
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return expense.ErrExpenseNotFound
	}
	return nil
}
