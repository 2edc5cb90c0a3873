package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	reapedWith time.Duration
	ids        []int64
}

func (f *fakeCache) Reap(timeout time.Duration) int {
	f.reapedWith = timeout
	return 2
}

func (f *fakeCache) CachedUserIDs() []int64 {
	return f.ids
}

type fakeResyncer struct {
	calls int
	got   []int64
	err   error
}

func (f *fakeResyncer) Resync(_ context.Context, userIDs []int64) (int, error) {
	f.calls++
	f.got = userIDs
	return len(userIDs), f.err
}

func newTestScheduler(cache *fakeCache, resyncer *fakeResyncer, cfg Config) (*CacheScheduler, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewCacheScheduler(cache, resyncer, logrus.NewEntry(logger), cfg), hook
}

func TestCacheScheduler_ReapUsesConfiguredTTL(t *testing.T) {
	cache := &fakeCache{}
	s, _ := newTestScheduler(cache, &fakeResyncer{}, Config{CacheTTL: 30 * time.Minute})

	s.reapIdle()
	assert.Equal(t, 30*time.Minute, cache.reapedWith)
}

func TestCacheScheduler_Resync(t *testing.T) {
	t.Run("passes cached users", func(t *testing.T) {
		resyncer := &fakeResyncer{}
		s, _ := newTestScheduler(&fakeCache{ids: []int64{1, 4}}, resyncer, Config{})

		s.resyncCached()
		assert.Equal(t, []int64{1, 4}, resyncer.got)
	})

	t.Run("skips an empty cache", func(t *testing.T) {
		resyncer := &fakeResyncer{}
		s, _ := newTestScheduler(&fakeCache{}, resyncer, Config{})

		s.resyncCached()
		assert.Zero(t, resyncer.calls)
	})

	t.Run("logs failures", func(t *testing.T) {
		resyncer := &fakeResyncer{err: errors.New("db down")}
		s, hook := newTestScheduler(&fakeCache{ids: []int64{1}}, resyncer, Config{})

		s.resyncCached()
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	})
}

func TestCacheScheduler_StartRejectsInvalidSpec(t *testing.T) {
	s, _ := newTestScheduler(&fakeCache{}, &fakeResyncer{}, Config{CronSpecReap: "not a spec", CronSpecResync: "@every 1m"})
	assert.Error(t, s.Start())
}

func TestCacheScheduler_StartStop(t *testing.T) {
	s, _ := newTestScheduler(&fakeCache{}, &fakeResyncer{}, Config{CronSpecReap: "@every 1h", CronSpecResync: "@every 1h"})
	require.NoError(t, s.Start())
	s.Stop()
}
