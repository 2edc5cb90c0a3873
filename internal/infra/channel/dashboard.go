package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"budget_alert_bot/internal/domain/notification"

	"github.com/redis/go-redis/v9"
)

const dashboardChannelPrefix = "budget:dashboard:"

// DashboardUpdate is what live dashboard listeners receive.
type DashboardUpdate struct {
	UserID       int64   `json:"user_id"`
	Limit        float64 `json:"limit"`
	CurrentTotal float64 `json:"current_total"`
	ExcessAmount float64 `json:"excess_amount"`
	OverLimit    bool    `json:"over_limit"`
}

type DashboardPublisher interface {
	Publish(ctx context.Context, update DashboardUpdate) error
}

// DashboardChannel pushes alerts to whoever is watching the user's dashboard.
type DashboardChannel struct {
	publisher DashboardPublisher
}

func NewDashboardChannel(publisher DashboardPublisher) *DashboardChannel {
	return &DashboardChannel{publisher: publisher}
}

func (c *DashboardChannel) Kind() notification.Kind {
	return notification.KindDashboard
}

func (c *DashboardChannel) Notify(ctx context.Context, event notification.Event) error {
	return c.publisher.Publish(ctx, DashboardUpdate{
		UserID:       event.UserID,
		Limit:        event.Limit,
		CurrentTotal: event.CurrentTotal,
		ExcessAmount: event.ExcessAmount,
		OverLimit:    event.CurrentTotal > event.Limit,
	})
}

// Hub fans updates out to in-process subscribers. A subscriber whose buffer is full misses the update.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int64]map[int]chan DashboardUpdate
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int64]map[int]chan DashboardUpdate)}
}

// Subscribe registers a listener for one user. The returned func unsubscribes and closes the channel.
func (h *Hub) Subscribe(userID int64, buffer int) (<-chan DashboardUpdate, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan DashboardUpdate, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan DashboardUpdate)
	}
	h.subs[userID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(_ context.Context, update DashboardUpdate) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[update.UserID] {
		select {
		case ch <- update:
		default:
		}
	}
	return nil
}

// redisPubSub is the slice of *redis.Client the publisher needs.
type redisPubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes updates as JSON on a per-user Redis pub/sub channel.
type RedisPublisher struct {
	rdb redisPubSub
}

func NewRedisPublisher(rdb redisPubSub) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func DashboardChannelName(userID int64) string {
	return dashboardChannelPrefix + strconv.FormatInt(userID, 10)
}

func (p *RedisPublisher) Publish(ctx context.Context, update DashboardUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal dashboard update: %w", err)
	}
	if err := p.rdb.Publish(ctx, DashboardChannelName(update.UserID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}
