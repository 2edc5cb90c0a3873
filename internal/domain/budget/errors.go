package budget

import (
	"errors"
	"fmt"
)

var (
	ErrBudgetNotFound = errors.New("budget not found")
	ErrNegativeLimit  = errors.New("monthly limit must not be negative")
)

// ConfigurationError is returned when a cache entry cannot be created,
// typically because the owning user does not exist.
// Callers treat it as "no budget configured".
type ConfigurationError struct {
	UserID int64
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("budget cache for user %d not configured: %v", e.UserID, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func IsConfigurationError(err error) bool {
	var configErr *ConfigurationError
	return errors.As(err, &configErr)
}

// InconsistentStateError means the cached alert flag was flipped but
// persisting the flip failed. The cache is ahead of storage until a retry succeeds.
type InconsistentStateError struct {
	UserID    int64
	AlertSent bool
	Attempts  int
	Err       error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("alert flag %t for user %d not persisted after %d attempts: %v", e.AlertSent, e.UserID, e.Attempts, e.Err)
}

func (e *InconsistentStateError) Unwrap() error {
	return e.Err
}

func IsInconsistentStateError(err error) bool {
	var stateErr *InconsistentStateError
	return errors.As(err, &stateErr)
}
