package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"budget_alert_bot/internal/domain/budget"
	"budget_alert_bot/internal/domain/expense"
	"budget_alert_bot/internal/domain/notification"
	"budget_alert_bot/internal/domain/user"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]*user.User
	err   error
}

func newFakeUsers(users ...*user.User) *fakeUsers {
	f := &fakeUsers{users: make(map[int64]*user.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) GetByTelegramID(_ context.Context, telegramID int64) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.TelegramID == telegramID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUsers) Create(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = int64(len(f.users) + 1)
	f.users[u.ID] = u
	return nil
}

// fakeBudgets is an in-memory budget.Repository.
type fakeBudgets struct {
	mu           sync.Mutex
	records      map[int64]*budget.Record
	setAlertErr  error
	setAlertCall int
	getCalls     int
}

func newFakeBudgets(records ...*budget.Record) *fakeBudgets {
	f := &fakeBudgets{records: make(map[int64]*budget.Record)}
	for _, r := range records {
		f.records[r.UserID] = r
	}
	return f
}

func (f *fakeBudgets) stored(userID int64) *budget.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[userID]
	if !ok {
		return nil
	}
	copied := *r
	return &copied
}

func (f *fakeBudgets) GetByUserID(_ context.Context, userID int64) (*budget.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	r, ok := f.records[userID]
	if !ok {
		return nil, budget.ErrBudgetNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeBudgets) ListByUserIDs(_ context.Context, userIDs []int64) ([]*budget.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*budget.Record
	for _, id := range userIDs {
		if r, ok := f.records[id]; ok {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeBudgets) Upsert(_ context.Context, rec *budget.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *rec
	f.records[rec.UserID] = &copied
	return nil
}

func (f *fakeBudgets) Update(_ context.Context, rec *budget.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[rec.UserID]; !ok {
		return budget.ErrBudgetNotFound
	}
	copied := *rec
	f.records[rec.UserID] = &copied
	return nil
}

func (f *fakeBudgets) AdjustTotal(_ context.Context, userID int64, delta float64) (*budget.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[userID]
	if !ok {
		return nil, budget.ErrBudgetNotFound
	}
	r.CurrentTotal += delta
	copied := *r
	return &copied, nil
}

func (f *fakeBudgets) SetAlertSent(_ context.Context, userID int64, alertSent bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setAlertCall++
	if f.setAlertErr != nil {
		return f.setAlertErr
	}
	r, ok := f.records[userID]
	if !ok {
		return budget.ErrBudgetNotFound
	}
	r.AlertSent = alertSent
	return nil
}

func (f *fakeBudgets) Delete(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[userID]; !ok {
		return budget.ErrBudgetNotFound
	}
	delete(f.records, userID)
	return nil
}

type fakeExpenses struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*expense.Expense
}

func newFakeExpenses() *fakeExpenses {
	return &fakeExpenses{items: make(map[int64]*expense.Expense)}
}

func (f *fakeExpenses) Create(_ context.Context, e *expense.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e.ID = f.nextID
	copied := *e
	f.items[e.ID] = &copied
	return nil
}

func (f *fakeExpenses) GetByID(_ context.Context, id int64) (*expense.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.items[id]
	if !ok {
		return nil, expense.ErrExpenseNotFound
	}
	copied := *e
	return &copied, nil
}

func (f *fakeExpenses) ListByUser(_ context.Context, userID int64) ([]*expense.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*expense.Expense
	for _, e := range f.items {
		if e.UserID == userID {
			copied := *e
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeExpenses) UpdateAmount(_ context.Context, id int64, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.items[id]
	if !ok {
		return expense.ErrExpenseNotFound
	}
	e.Amount = amount
	return nil
}

func (f *fakeExpenses) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return expense.ErrExpenseNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeExpenses) DeleteAllByUser(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for id, e := range f.items {
		if e.UserID == userID {
			delete(f.items, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeExpenses) SumByUser(_ context.Context, userID int64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total float64
	for _, e := range f.items {
		if e.UserID == userID {
			total += e.Amount
		}
	}
	return total, nil
}

// recordingChannel counts deliveries. onNotify, when set, runs inside Notify.
type recordingChannel struct {
	kind     notification.Kind
	err      error
	onNotify func(ctx context.Context, event notification.Event)

	mu     sync.Mutex
	events []notification.Event
}

func newRecordingChannel(kind notification.Kind) *recordingChannel {
	return &recordingChannel{kind: kind}
}

func (c *recordingChannel) Kind() notification.Kind {
	return c.kind
}

func (c *recordingChannel) Notify(ctx context.Context, event notification.Event) error {
	if c.onNotify != nil {
		c.onNotify(ctx, event)
	}
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	return c.err
}

func (c *recordingChannel) received() []notification.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]notification.Event, len(c.events))
	copy(out, c.events)
	return out
}

type panickingChannel struct {
	kind notification.Kind
}

func (c panickingChannel) Kind() notification.Kind {
	return c.kind
}

func (c panickingChannel) Notify(context.Context, notification.Event) error {
	panic("smtp client exploded")
}

// manualClock is a settable time source for reaping tests.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLogger() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

var errTransport = errors.New("transport unavailable")

func alice() *user.User {
	return &user.User{ID: 1, TelegramID: 555, Username: "alice", Email: "alice@example.com"}
}
