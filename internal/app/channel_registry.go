// internal/app/channel_registry.go
package app

import (
	"sync"

	"budget_alert_bot/internal/domain/notification"
)

// ChannelRegistry is an ordered set of notification channels, keyed by channel kind.
// Adding a second channel of a kind already present is a no-op.
type ChannelRegistry struct {
	mu       sync.RWMutex
	channels []notification.Channel
}

func NewChannelRegistry(channels ...notification.Channel) *ChannelRegistry {
	r := &ChannelRegistry{}
	for _, ch := range channels {
		r.Add(ch)
	}
	return r
}

// Add appends ch unless a channel of the same kind is registered. Reports whether it was added.
func (r *ChannelRegistry) Add(ch notification.Channel) bool {
	if ch == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(ch.Kind()) >= 0 {
		return false
	}
	r.channels = append(r.channels, ch)
	return true
}

// Remove drops the channel of the given kind, keeping the order of the rest.
func (r *ChannelRegistry) Remove(kind notification.Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(kind)
	if i < 0 {
		return false
	}
	r.channels = append(r.channels[:i:i], r.channels[i+1:]...)
	return true
}

// Channels returns the registered channels in registration order.
// The slice is a copy, safe to range over after the registry changes.
func (r *ChannelRegistry) Channels() []notification.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]notification.Channel, len(r.channels))
	copy(out, r.channels)
	return out
}

func (r *ChannelRegistry) Kinds() []notification.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]notification.Kind, 0, len(r.channels))
	for _, ch := range r.channels {
		kinds = append(kinds, ch.Kind())
	}
	return kinds
}

func (r *ChannelRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

func (r *ChannelRegistry) indexOf(kind notification.Kind) int {
	for i, ch := range r.channels {
		if ch.Kind() == kind {
			return i
		}
	}
	return -1
}
