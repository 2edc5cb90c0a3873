package channel

import (
	"context"
	"fmt"

	"budget_alert_bot/internal/domain/notification"

	"github.com/badoux/checkmail"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const AlertSubject = "Budget Exceeded Alert!"

// MailTransport delivers one plain-text message.
type MailTransport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailChannel mails the budget-exceeded alert to the user's address.
type EmailChannel struct {
	transport MailTransport
}

func NewEmailChannel(transport MailTransport) *EmailChannel {
	return &EmailChannel{transport: transport}
}

func (c *EmailChannel) Kind() notification.Kind {
	return notification.KindEmail
}

func (c *EmailChannel) Notify(ctx context.Context, event notification.Event) error {
	if err := checkmail.ValidateFormat(event.Email); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", event.Email, err)
	}
	if err := c.transport.Send(ctx, event.Email, AlertSubject, AlertEmailBody(event)); err != nil {
		return fmt.Errorf("sending budget alert email: %w", err)
	}
	return nil
}

func AlertEmailBody(event notification.Event) string {
	return fmt.Sprintf("Hello %s,\n\nYou have exceeded your budget by $%s.\n\nThank you!",
		event.Username, FormatMoney(event.ExcessAmount))
}

// FormatMoney renders an amount with exactly two decimals.
func FormatMoney(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// LogTransport writes the message to the log instead of sending it. Used when SMTP is not configured.
type LogTransport struct {
	logger *logrus.Entry
}

func NewLogTransport(logger *logrus.Entry) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, to, subject, body string) error {
	t.logger.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Infof("SMTP not configured, email not sent:\n%s", body)
	return nil
}
