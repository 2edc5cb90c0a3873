package budget

import "time"

// Record is the persisted monthly budget of a user.
// Corresponds to the 'budgets' table. A user has at most one.
type Record struct {
	ID           int64
	UserID       int64
	MonthlyLimit float64 // >= 0
	CurrentTotal float64 // signed, refunds and deletes can push it below zero
	AlertSent    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsOverLimit reports whether the recorded spend exceeds the limit.
func (r *Record) IsOverLimit() bool {
	return r.CurrentTotal > r.MonthlyLimit
}
