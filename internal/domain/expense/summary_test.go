package expense

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]*Expense{
		{Name: "Lunch", Amount: 12, Category: "Food"},
		{Name: "Bus", Amount: 3, Category: "Transport"},
		{Name: "Groceries", Amount: 48, Category: "Food"},
		{Name: "Refund", Amount: -3, Category: "Other"},
		{Name: "Taxi", Amount: 20, Category: "Transport"},
	})

	assert.Equal(t, 80.0, s.Total)
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, []CategoryTotal{
		{Category: "Food", Total: 60, Count: 2},
		{Category: "Transport", Total: 23, Count: 2},
		{Category: "Other", Total: -3, Count: 1},
	}, s.ByCategory)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.Count)
	assert.Empty(t, s.ByCategory)
}
