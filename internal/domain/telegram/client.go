package telegram

// Client sends plain text messages to a Telegram chat.
// Keeps channel code independent of the bot library.
type Client interface {
	SendText(chatID int64, text string) error
}
