// internal/app/budget_monitor.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"budget_alert_bot/internal/domain/budget"
	"budget_alert_bot/internal/domain/notification"
	"budget_alert_bot/internal/domain/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultCacheTTL is how long an untouched cache entry survives before the reaper drops it.
const DefaultCacheTTL = time.Hour

// budgetEntry is the in-memory mirror of one user's budget record.
// mu guards every field below it; channels has its own lock.
type budgetEntry struct {
	mu sync.Mutex

	userID         int64
	username       string
	email          string
	telegramChatID int64

	hasBudget    bool
	limit        float64
	currentTotal float64
	alertSent    bool
	lastAccessed time.Time
	evicted      bool // set by Reap; holders must re-fetch

	channels *ChannelRegistry
}

func (e *budgetEntry) snapshot() *budget.Snapshot {
	return &budget.Snapshot{
		UserID:       e.userID,
		HasBudget:    e.hasBudget,
		Limit:        e.limit,
		CurrentTotal: e.currentTotal,
		AlertSent:    e.alertSent,
		LastAccessed: e.lastAccessed,
		Channels:     e.channels.Kinds(),
	}
}

// BudgetMonitor caches one budget entry per user, keeps it synchronized with the
// persisted record and notifies the registered channels when spending crosses the limit.
//
// Synchronize is the only operation that evaluates transitions. UpdateTotal is a raw
// mutator; callers that want alert evaluation must synchronize afterwards.
type BudgetMonitor struct {
	users      user.Lookup
	budgets    budget.Reader
	logger     *logrus.Entry
	dispatcher *Dispatcher
	now        func() time.Time
	defaults   []notification.Channel

	mu            sync.Mutex
	entries       map[int64]*budgetEntry
	registrations map[int64][]notification.Channel // survives eviction
}

type MonitorOption func(*BudgetMonitor)

// WithDefaultChannels registers channels on every entry the monitor creates.
func WithDefaultChannels(channels ...notification.Channel) MonitorOption {
	return func(m *BudgetMonitor) {
		m.defaults = append(m.defaults, channels...)
	}
}

// WithNotifyTimeout bounds each channel delivery.
func WithNotifyTimeout(timeout time.Duration) MonitorOption {
	return func(m *BudgetMonitor) {
		m.dispatcher = NewDispatcher(m.logger, timeout)
	}
}

func WithClock(now func() time.Time) MonitorOption {
	return func(m *BudgetMonitor) {
		m.now = now
	}
}

func NewBudgetMonitor(users user.Lookup, budgets budget.Reader, logger *logrus.Entry, opts ...MonitorOption) *BudgetMonitor {
	m := &BudgetMonitor{
		users:         users,
		budgets:       budgets,
		logger:        logger,
		now:           time.Now,
		entries:       make(map[int64]*budgetEntry),
		registrations: make(map[int64][]notification.Channel),
	}
	m.dispatcher = NewDispatcher(logger, defaultNotifyTimeout)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns a read-only view of the user's cached budget, creating the entry on first access.
func (m *BudgetMonitor) GetOrCreate(ctx context.Context, userID int64) (*budget.Snapshot, error) {
	e, err := m.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	e.lastAccessed = m.now()
	return e.snapshot(), nil
}

// Synchronize reconciles a committed budget record into the cache and evaluates transitions.
// rec.AlertSent is updated in place whenever the protocol flips the flag; the caller persists it.
func (m *BudgetMonitor) Synchronize(ctx context.Context, rec *budget.Record) (budget.SyncResult, error) {
	result := budget.SyncResult{Transition: budget.TransitionNone}
	if rec == nil {
		return result, errors.New("synchronize: nil budget record")
	}

	e, err := m.acquire(ctx, rec.UserID)
	if err != nil {
		return result, err
	}
	now := m.now()
	e.lastAccessed = now
	return m.apply(ctx, e, rec, now)
}

// Resynchronize is Synchronize for background jobs: it only touches users that are already
// cached and leaves their last access time alone, so idle entries still get reaped.
func (m *BudgetMonitor) Resynchronize(ctx context.Context, rec *budget.Record) (budget.SyncResult, error) {
	result := budget.SyncResult{Transition: budget.TransitionNone}
	if rec == nil {
		return result, errors.New("resynchronize: nil budget record")
	}

	m.mu.Lock()
	e, ok := m.entries[rec.UserID]
	m.mu.Unlock()
	if !ok {
		result.Skipped = true
		return result, nil
	}
	e.mu.Lock()
	if e.evicted {
		e.mu.Unlock()
		result.Skipped = true
		return result, nil
	}
	return m.apply(ctx, e, rec, m.now())
}

// apply runs the transition rules against a locked entry and releases the lock before dispatching.
func (m *BudgetMonitor) apply(ctx context.Context, e *budgetEntry, rec *budget.Record, now time.Time) (budget.SyncResult, error) {
	result := budget.SyncResult{Transition: budget.TransitionNone}
	if e.hasBudget && rec.MonthlyLimit == e.limit && rec.CurrentTotal == e.currentTotal &&
		e.alertSent == (e.currentTotal > e.limit) {
		if rec.AlertSent != e.alertSent {
			rec.AlertSent = e.alertSent
			result.FlagRepaired = true
		}
		e.mu.Unlock()
		result.Skipped = true
		m.logger.WithFields(logrus.Fields{
			"user_id":       rec.UserID,
			"flag_repaired": result.FlagRepaired,
		}).Debug("Budget unchanged, synchronization skipped")
		return result, nil
	}

	e.hasBudget = true
	e.limit = rec.MonthlyLimit
	e.currentTotal = rec.CurrentTotal
	e.alertSent = rec.AlertSent

	var targets []notification.Channel
	switch {
	case e.currentTotal <= e.limit && e.alertSent:
		e.alertSent = false
		rec.AlertSent = false
		result.Transition = budget.TransitionReset
	case e.currentTotal > e.limit && !e.alertSent:
		event := e.newEvent(now)
		e.alertSent = true
		rec.AlertSent = true
		result.Transition = budget.TransitionAlert
		result.Event = &event
		targets = e.channels.Channels()
	}
	limit, total := e.limit, e.currentTotal
	e.mu.Unlock()

	logCtx := m.logger.WithFields(logrus.Fields{
		"user_id":       rec.UserID,
		"limit":         limit,
		"current_total": total,
		"transition":    result.Transition,
	})
	switch result.Transition {
	case budget.TransitionReset:
		logCtx.Info("Budget back under limit, alert flag reset")
	case budget.TransitionAlert:
		logCtx.WithField("excess_amount", result.Event.ExcessAmount).Info("Budget limit exceeded, notifying channels")
		result.Delivered, result.Failed = m.dispatcher.Dispatch(ctx, targets, *result.Event)
	default:
		logCtx.Debug("Budget synchronized")
	}
	return result, nil
}

// UpdateTotal adds delta to the cached total without evaluating transitions.
func (m *BudgetMonitor) UpdateTotal(ctx context.Context, userID int64, delta float64) error {
	e, err := m.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()
	e.currentTotal += delta
	e.lastAccessed = m.now()
	return nil
}

// ClearBudget puts the user's entry back into the no-budget state after the record was deleted.
func (m *BudgetMonitor) ClearBudget(ctx context.Context, userID int64) error {
	e, err := m.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()
	e.hasBudget = false
	e.limit = 0
	e.currentTotal = 0
	e.alertSent = false
	e.lastAccessed = m.now()
	return nil
}

// RegisterChannels attaches channels to the user's registry. Kinds already present are skipped.
// Registrations are remembered, so an entry re-created after eviction gets them back.
// Returns how many channels were added.
func (m *BudgetMonitor) RegisterChannels(ctx context.Context, userID int64, channels ...notification.Channel) (int, error) {
	if _, err := m.entry(ctx, userID); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	remembered := NewChannelRegistry(m.registrations[userID]...)
	for _, ch := range channels {
		remembered.Add(ch)
	}
	m.registrations[userID] = remembered.Channels()

	added := 0
	if e, ok := m.entries[userID]; ok {
		for _, ch := range channels {
			if e.channels.Add(ch) {
				added++
			}
		}
	}
	return added, nil
}

// RemoveChannel detaches the channel of the given kind from the user's registry and
// forgets the registration. Default channels removed this way come back after eviction.
func (m *BudgetMonitor) RemoveChannel(ctx context.Context, userID int64, kind notification.Kind) (bool, error) {
	if _, err := m.entry(ctx, userID); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	remembered := NewChannelRegistry(m.registrations[userID]...)
	forgotten := remembered.Remove(kind)
	if remembered.Len() == 0 {
		delete(m.registrations, userID)
	} else {
		m.registrations[userID] = remembered.Channels()
	}

	removed := false
	if e, ok := m.entries[userID]; ok {
		removed = e.channels.Remove(kind)
	}
	return removed || forgotten, nil
}

// WithAlertFlag calls store with the cached alert flag while holding the user's entry lock.
// Writers going through here reach storage in the order the cache changed, and the last
// write always carries the latest flag. store is not called when the user has no budget.
func (m *BudgetMonitor) WithAlertFlag(ctx context.Context, userID int64, store func(alertSent bool) error) error {
	e, err := m.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()
	if !e.hasBudget {
		return nil
	}
	return store(e.alertSent)
}

// Reap drops every entry not accessed within timeout and returns how many were dropped.
// Dropped entries are re-hydrated from storage on next access.
func (m *BudgetMonitor) Reap(timeout time.Duration) int {
	cutoff := m.now().Add(-timeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for userID, e := range m.entries {
		e.mu.Lock()
		if e.lastAccessed.Before(cutoff) {
			e.evicted = true
			delete(m.entries, userID)
			removed++
		}
		e.mu.Unlock()
	}
	if removed > 0 {
		m.logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(m.entries),
		}).Info("Reaped idle budget cache entries")
	}
	return removed
}

// CachedUserIDs lists the users that currently have an entry, in ascending order.
func (m *BudgetMonitor) CachedUserIDs() []int64 {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *BudgetMonitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// acquire returns the user's live entry with its lock held.
func (m *BudgetMonitor) acquire(ctx context.Context, userID int64) (*budgetEntry, error) {
	for {
		e, err := m.entry(ctx, userID)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		if !e.evicted {
			return e, nil
		}
		e.mu.Unlock()
	}
}

// entry fetches or lazily creates the user's entry. Storage is read outside the map lock;
// when two callers race, the first insert wins and the other hydrated copy is discarded.
func (m *BudgetMonitor) entry(ctx context.Context, userID int64) (*budgetEntry, error) {
	m.mu.Lock()
	e, ok := m.entries[userID]
	m.mu.Unlock()
	if ok {
		return e, nil
	}

	fresh, err := m.hydrate(ctx, userID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.entries[userID]; ok {
		return existing, nil
	}
	for _, ch := range m.registrations[userID] {
		fresh.channels.Add(ch)
	}
	m.entries[userID] = fresh
	return fresh, nil
}

func (m *BudgetMonitor) hydrate(ctx context.Context, userID int64) (*budgetEntry, error) {
	u, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, &budget.ConfigurationError{UserID: userID, Err: err}
		}
		return nil, fmt.Errorf("failed to look up user %d: %w", userID, err)
	}

	e := &budgetEntry{
		userID:         u.ID,
		username:       u.Username,
		email:          u.Email,
		telegramChatID: u.TelegramID,
		lastAccessed:   m.now(),
		channels:       NewChannelRegistry(m.defaults...),
	}

	rec, err := m.budgets.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, budget.ErrBudgetNotFound):
		// no budget configured yet
	case err != nil:
		return nil, fmt.Errorf("failed to load budget for user %d: %w", userID, err)
	default:
		e.hasBudget = true
		e.limit = rec.MonthlyLimit
		e.currentTotal = rec.CurrentTotal
		e.alertSent = rec.AlertSent
	}

	m.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"has_budget": e.hasBudget,
	}).Debug("Budget cache entry hydrated")
	return e, nil
}

// newEvent captures the entry values for dispatch. Caller holds e.mu.
func (e *budgetEntry) newEvent(now time.Time) notification.Event {
	excess := decimal.NewFromFloat(e.currentTotal).Sub(decimal.NewFromFloat(e.limit)).Round(2)
	return notification.Event{
		ID:             uuid.New(),
		UserID:         e.userID,
		Username:       e.username,
		Email:          e.email,
		TelegramChatID: e.telegramChatID,
		Limit:          e.limit,
		CurrentTotal:   e.currentTotal,
		ExcessAmount:   excess.InexactFloat64(),
		OccurredAt:     now,
	}
}
