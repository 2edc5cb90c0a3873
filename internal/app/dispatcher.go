// internal/app/dispatcher.go
package app

import (
	"context"
	"fmt"
	"time"

	"budget_alert_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

const defaultNotifyTimeout = 10 * time.Second

// Dispatcher fans one event out to a list of channels.
// A failing or panicking channel is logged and skipped; the rest still run.
type Dispatcher struct {
	logger  *logrus.Entry
	timeout time.Duration
}

func NewDispatcher(logger *logrus.Entry, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &Dispatcher{logger: logger, timeout: timeout}
}

// Dispatch notifies every channel in order and returns how many succeeded and failed.
// Delivery is detached from ctx cancellation: once the alert flag is flipped the alert goes out.
func (d *Dispatcher) Dispatch(ctx context.Context, channels []notification.Channel, event notification.Event) (delivered, failed int) {
	base := context.WithoutCancel(ctx)
	for _, ch := range channels {
		if err := d.deliver(base, ch, event); err != nil {
			failed++
			d.logger.WithError(err).WithFields(logrus.Fields{
				"channel":  ch.Kind(),
				"user_id":  event.UserID,
				"event_id": event.ID.String(),
			}).Error("Notification channel failed to deliver budget alert")
			continue
		}
		delivered++
	}
	d.logger.WithFields(logrus.Fields{
		"user_id":   event.UserID,
		"event_id":  event.ID.String(),
		"delivered": delivered,
		"failed":    failed,
	}).Info("Budget alert dispatched")
	return delivered, failed
}

func (d *Dispatcher) deliver(ctx context.Context, ch notification.Channel, event notification.Event) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = &notification.DeliveryError{
				Kind:    ch.Kind(),
				UserID:  event.UserID,
				EventID: event.ID.String(),
				Err:     fmt.Errorf("channel panicked: %v", r),
			}
		}
	}()

	if notifyErr := ch.Notify(ctx, event); notifyErr != nil {
		return &notification.DeliveryError{
			Kind:    ch.Kind(),
			UserID:  event.UserID,
			EventID: event.ID.String(),
			Err:     notifyErr,
		}
	}
	return nil
}
