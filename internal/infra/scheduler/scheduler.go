package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const resyncTimeout = 1 * time.Minute

// CacheReaper is the cache side of the scheduled jobs.
type CacheReaper interface {
	Reap(timeout time.Duration) int
	CachedUserIDs() []int64
}

// BudgetResyncer reconciles cached budgets with storage.
type BudgetResyncer interface {
	Resync(ctx context.Context, userIDs []int64) (int, error)
}

type Config struct {
	CacheTTL       time.Duration
	CronSpecReap   string // e.g. "@every 5m"
	CronSpecResync string // e.g. "@every 15m"
}

// CacheScheduler evicts idle budget cache entries and periodically resynchronizes the live ones.
type CacheScheduler struct {
	cronEngine *cron.Cron
	cache      CacheReaper
	resyncer   BudgetResyncer
	logger     *logrus.Entry
	cfg        Config
}

func NewCacheScheduler(cache CacheReaper, resyncer BudgetResyncer, logger *logrus.Entry, cfg Config) *CacheScheduler {
	return &CacheScheduler{
		cronEngine: cron.New(cron.WithLocation(time.Local)),
		cache:      cache,
		resyncer:   resyncer,
		logger:     logger,
		cfg:        cfg,
	}
}

// Start registers the jobs and starts the cron engine. Invalid cron specs are returned, not fatal.
func (s *CacheScheduler) Start() error {
	s.logger.Info("Starting budget cache scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cfg.CronSpecReap, s.reapIdle); err != nil {
		return fmt.Errorf("could not add cache reap job %q: %w", s.cfg.CronSpecReap, err)
	}
	if _, err := s.cronEngine.AddFunc(s.cfg.CronSpecResync, s.resyncCached); err != nil {
		return fmt.Errorf("could not add budget resync job %q: %w", s.cfg.CronSpecResync, err)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"reap":      s.cfg.CronSpecReap,
		"resync":    s.cfg.CronSpecResync,
		"cache_ttl": s.cfg.CacheTTL,
	}).Info("Budget cache scheduler started with jobs.")
	return nil
}

func (s *CacheScheduler) reapIdle() {
	removed := s.cache.Reap(s.cfg.CacheTTL)
	s.logger.WithField("removed", removed).Debug("Cache reap job finished")
}

func (s *CacheScheduler) resyncCached() {
	userIDs := s.cache.CachedUserIDs()
	if len(userIDs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	defer cancel()

	synced, err := s.resyncer.Resync(ctx, userIDs)
	if err != nil {
		s.logger.WithError(err).Error("Budget resync job failed")
		return
	}
	s.logger.WithFields(logrus.Fields{"cached": len(userIDs), "synced": synced}).Debug("Budget resync job finished")
}

func (s *CacheScheduler) Stop() {
	s.logger.Info("Stopping budget cache scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Budget cache scheduler gracefully stopped.")
}
