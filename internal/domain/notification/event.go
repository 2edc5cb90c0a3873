// internal/domain/notification/event.go
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Event is what every channel receives when a user's spending crosses the monthly limit.
// It is a snapshot; channels must not reach back into the budget cache.
type Event struct {
	ID             uuid.UUID // shared by all channels notified for the same crossing
	UserID         int64
	Username       string
	Email          string
	TelegramChatID int64 // 0 when the user never talked to the bot
	Limit          float64
	CurrentTotal   float64
	ExcessAmount   float64
	OccurredAt     time.Time
}
