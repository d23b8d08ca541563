package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/djhunter67/study-site/internal/models"
	"github.com/djhunter67/study-site/pkg/logger"
)

const (
	defaultUnconfirmedRetention = 7 * 24 * time.Hour
	defaultCacheSpec            = "@hourly"
	defaultAccountSpec          = "@daily"
)

// Cleaner coordinates background maintenance: purging expired cache entries
// (including spent credential records) and removing accounts that never
// completed confirmation.
type Cleaner struct {
	db        *gorm.DB
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention time.Duration

	cacheSchedule   string
	accountSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithUnconfirmedRetention adjusts how long unconfirmed accounts are kept.
func WithUnconfirmedRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.retention = d
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache entry cleanup.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithAccountSchedule overrides the cron specification for stale account cleanup.
func WithAccountSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.accountSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:              db,
		now:             time.Now,
		retention:       defaultUnconfirmedRetention,
		cacheSchedule:   defaultCacheSpec,
		accountSchedule: defaultAccountSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
		if _, err := CleanupCacheEntries(context.Background(), c.db, c.now()); err != nil {
			c.log.Warn("cache entry cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if c.retention > 0 {
		if _, err := c.cron.AddFunc(c.accountSchedule, func() {
			if _, err := CleanupUnconfirmedAccounts(context.Background(), c.db, c.now().Add(-c.retention)); err != nil {
				c.log.Warn("unconfirmed account cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.db == nil {
		return nil
	}

	var errs error

	if _, err := CleanupCacheEntries(ctx, c.db, c.now()); err != nil {
		errs = multierr.Append(errs, err)
	}

	if c.retention > 0 {
		if _, err := CleanupUnconfirmedAccounts(ctx, c.db, c.now().Add(-c.retention)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// CleanupCacheEntries removes cache rows whose expiry has passed. Entries with
// a zero expiry never expire.
func CleanupCacheEntries(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup cache entries: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("expires_at < ? AND expires_at > ?", now, time.Time{}).
		Delete(&models.CacheEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup cache entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupUnconfirmedAccounts deletes inactive accounts created before the cutoff.
func CleanupUnconfirmedAccounts(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup unconfirmed accounts: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("is_active = ? AND created_at < ?", false, cutoff).
		Delete(&models.User{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup unconfirmed accounts: %w", result.Error)
	}
	return result.RowsAffected, nil
}
