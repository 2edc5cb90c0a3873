package budget

import (
	"time"

	"budget_alert_bot/internal/domain/notification"
)

// State is the alerting state of a user's cached budget.
type State string

const (
	StateNoBudget   State = "NO_BUDGET"
	StateUnderLimit State = "UNDER_LIMIT"
	StateOverLimit  State = "OVER_LIMIT"
)

// Transition is the state change a synchronization produced.
type Transition string

const (
	TransitionNone  Transition = "NONE"
	TransitionAlert Transition = "ALERT" // UnderLimit -> OverLimit, notifications fired
	TransitionReset Transition = "RESET" // OverLimit -> UnderLimit, alert flag cleared
)

// Snapshot is a read-only copy of a cached budget entry.
type Snapshot struct {
	UserID       int64
	HasBudget    bool
	Limit        float64
	CurrentTotal float64
	AlertSent    bool
	LastAccessed time.Time
	Channels     []notification.Kind
}

// State derives the alerting state from the snapshot values.
func (s Snapshot) State() State {
	switch {
	case !s.HasBudget:
		return StateNoBudget
	case s.CurrentTotal > s.Limit:
		return StateOverLimit
	default:
		return StateUnderLimit
	}
}

// Remaining is the amount left before the limit is reached. Negative when over.
func (s Snapshot) Remaining() float64 {
	return s.Limit - s.CurrentTotal
}

// SyncResult describes what a synchronization did.
type SyncResult struct {
	Transition Transition
	Skipped    bool                // no-op short-circuit, nothing changed
	Event      *notification.Event // set when Transition == TransitionAlert
	Delivered  int
	Failed     int

	// FlagRepaired is set when the record carried a stale alert flag. The record now
	// holds the cached flag and the caller must persist it.
	FlagRepaired bool
}
