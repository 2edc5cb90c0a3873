// internal/domain/notification/channel.go
package notification

import (
	"context"
	"errors"
	"fmt"
)

// Channel is a notification sink for budget-exceeded events.
// Notify returns transport failures; the dispatcher logs them and moves on.
type Channel interface {
	Kind() Kind
	Notify(ctx context.Context, event Event) error
}

// DeliveryError wraps a failure of one channel to deliver one event.
type DeliveryError struct {
	Kind    Kind
	UserID  int64
	EventID string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery of event %s for user %d failed: %v", e.Kind, e.EventID, e.UserID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func IsDeliveryError(err error) bool {
	var deliveryErr *DeliveryError
	return errors.As(err, &deliveryErr)
}
