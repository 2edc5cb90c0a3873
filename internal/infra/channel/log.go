package channel

import (
	"context"

	"budget_alert_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// LogChannel writes one audit line per alert.
type LogChannel struct {
	logger *logrus.Entry
}

func NewLogChannel(logger *logrus.Entry) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Kind() notification.Kind {
	return notification.KindLog
}

func (c *LogChannel) Notify(_ context.Context, event notification.Event) error {
	c.logger.WithFields(logrus.Fields{
		"event_id":      event.ID.String(),
		"user_id":       event.UserID,
		"limit":         event.Limit,
		"current_total": event.CurrentTotal,
		"excess_amount": event.ExcessAmount,
		"occurred_at":   event.OccurredAt,
	}).Warn("Budget exceeded")
	return nil
}
