package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"budget_alert_bot/internal/domain/notification"
	"budget_alert_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

var ErrNoChatID = errors.New("user has no telegram chat to deliver to")

// SMSSender delivers a short text message to a user.
type SMSSender interface {
	SendSMS(ctx context.Context, event notification.Event, text string) error
}

// SMSChannel sends a one-line alert through an SMSSender.
type SMSChannel struct {
	sender SMSSender
}

func NewSMSChannel(sender SMSSender) *SMSChannel {
	return &SMSChannel{sender: sender}
}

func (c *SMSChannel) Kind() notification.Kind {
	return notification.KindSMS
}

func (c *SMSChannel) Notify(ctx context.Context, event notification.Event) error {
	if err := c.sender.SendSMS(ctx, event, AlertSMSText(event)); err != nil {
		return fmt.Errorf("sending budget alert sms: %w", err)
	}
	return nil
}

func AlertSMSText(event notification.Event) string {
	return fmt.Sprintf("Budget alert: you are $%s over your $%s monthly limit.",
		FormatMoney(event.ExcessAmount), FormatMoney(event.Limit))
}

type SentSMS struct {
	UserID int64
	Text   string
}

// SimulatedSMSSender keeps messages in memory and logs them instead of sending.
type SimulatedSMSSender struct {
	logger *logrus.Entry

	mu   sync.Mutex
	sent []SentSMS
}

func NewSimulatedSMSSender(logger *logrus.Entry) *SimulatedSMSSender {
	return &SimulatedSMSSender{logger: logger}
}

func (s *SimulatedSMSSender) SendSMS(_ context.Context, event notification.Event, text string) error {
	s.mu.Lock()
	s.sent = append(s.sent, SentSMS{UserID: event.UserID, Text: text})
	s.mu.Unlock()
	s.logger.WithField("user_id", event.UserID).Infof("Simulated SMS: %s", text)
	return nil
}

func (s *SimulatedSMSSender) Sent() []SentSMS {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentSMS, len(s.sent))
	copy(out, s.sent)
	return out
}

// TelegramSMSSender delivers the text as a direct message from the bot.
type TelegramSMSSender struct {
	client telegram.Client
}

func NewTelegramSMSSender(client telegram.Client) *TelegramSMSSender {
	return &TelegramSMSSender{client: client}
}

func (s *TelegramSMSSender) SendSMS(ctx context.Context, event notification.Event, text string) error {
	if event.TelegramChatID == 0 {
		return ErrNoChatID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.client.SendText(event.TelegramChatID, text)
}
