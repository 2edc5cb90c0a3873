package budget

import "context"

// Reader is the read side the budget cache hydrates from.
type Reader interface {
	GetByUserID(ctx context.Context, userID int64) (*Record, error)
	ListByUserIDs(ctx context.Context, userIDs []int64) ([]*Record, error)
}

// Repository defines the operations for persisting budget records.
type Repository interface {
	Reader
	Upsert(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error
	// AdjustTotal atomically adds delta to the stored total and returns the updated record.
	AdjustTotal(ctx context.Context, userID int64, delta float64) (*Record, error)
	SetAlertSent(ctx context.Context, userID int64, alertSent bool) error
	Delete(ctx context.Context, userID int64) error
}
