package expense

import (
	"errors"
	"math"
	"strings"
	"time"
)

var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrNotOwner        = errors.New("expense belongs to another user")
	ErrInvalidAmount   = errors.New("amount must be a finite number")
	ErrEmptyName       = errors.New("expense name must not be empty")
	ErrNameTooLong     = errors.New("expense name must be at most 100 characters")
)

const maxNameLength = 100

// Expense is a single logged spending item.
type Expense struct {
	ID       int64
	UserID   int64
	Name     string
	Amount   float64
	Category string
	Date     time.Time
}

func (e *Expense) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if len(e.Name) > maxNameLength {
		return ErrNameTooLong
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return ErrInvalidAmount
	}
	if e.Category == "" {
		e.Category = "Other"
	}
	return nil
}
