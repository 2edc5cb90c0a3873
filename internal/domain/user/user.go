package user

import "time"

// User is a registered account. TelegramID doubles as the chat id for direct messages.
type User struct {
	ID         int64
	TelegramID int64
	Username   string
	Email      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
