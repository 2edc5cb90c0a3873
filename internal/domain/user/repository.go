package user

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this Telegram ID or email already exists")
)

// Lookup is the user-lookup capability the budget cache needs to populate events.
type Lookup interface {
	GetByID(ctx context.Context, id int64) (*User, error)
}

// Repository defines the operations for persisting and retrieving users.
type Repository interface {
	Lookup
	Create(ctx context.Context, u *User) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*User, error)
}
