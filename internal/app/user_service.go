package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"budget_alert_bot/internal/domain/user"

	"github.com/badoux/checkmail"
)

var ErrInvalidEmail = errors.New("email address is not valid")

type UserService struct {
	users user.Repository
}

func NewUserService(users user.Repository) *UserService {
	return &UserService{users: users}
}

// Register creates an account for a Telegram user. The email receives budget alerts.
func (s *UserService) Register(ctx context.Context, telegramID int64, username, email string) (*user.User, error) {
	email = strings.TrimSpace(email)
	if err := checkmail.ValidateFormat(email); err != nil {
		return nil, ErrInvalidEmail
	}

	_, err := s.users.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return nil, user.ErrUserAlreadyExists
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if strings.TrimSpace(username) == "" {
		username = fmt.Sprintf("user%d", telegramID)
	}
	u := &user.User{
		TelegramID: telegramID,
		Username:   username,
		Email:      email,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// Identify resolves the account behind a Telegram sender.
func (s *UserService) Identify(ctx context.Context, telegramID int64) (*user.User, error) {
	return s.users.GetByTelegramID(ctx, telegramID)
}
