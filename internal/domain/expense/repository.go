package expense

import "context"

// Repository defines the operations for persisting expenses.
type Repository interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, id int64) (*Expense, error)
	// ListByUser returns the user's expenses, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*Expense, error)
	UpdateAmount(ctx context.Context, id int64, amount float64) error
	Delete(ctx context.Context, id int64) error
	DeleteAllByUser(ctx context.Context, userID int64) (int64, error)
	SumByUser(ctx context.Context, userID int64) (float64, error)
}
