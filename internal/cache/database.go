package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/djhunter67/study-site/internal/models"
)

// DatabaseStore implements Store on the primary SQL database. It is the
// fallback when Redis is not configured; single-use semantics are preserved
// through row-locked transactions instead of command serialisation.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

func (s *DatabaseStore) ready() error {
	if s == nil || s.db == nil {
		return errors.New("cache: database store not initialised")
	}
	return nil
}

// expired reports whether the entry's expiry has passed. A zero expiry never expires.
func expired(entry models.CacheEntry, now time.Time) bool {
	return !entry.ExpiresAt.IsZero() && now.After(entry.ExpiresAt)
}

// Set upserts the value for a key. A non-positive ttl stores the entry without expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.ready(); err != nil {
		return err
	}
	ctx = orBackground(ctx)

	entry := models.CacheEntry{Key: key, Value: value}
	if ttl > 0 {
		entry.ExpiresAt = s.now().Add(ttl)
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
}

// Get retrieves a live value by key. Expired rows are removed on read.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.ready(); err != nil {
		return nil, false, err
	}
	ctx = orBackground(ctx)

	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if expired(entry, s.now()) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// TakeDelete atomically retrieves and removes a key. The row lock inside the
// transaction guarantees only one concurrent caller receives the value.
func (s *DatabaseStore) TakeDelete(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.ready(); err != nil {
		return nil, false, err
	}
	ctx = orBackground(ctx)

	var (
		value []byte
		found bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&entry, "key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&models.CacheEntry{}, "key = ?", key).Error; err != nil {
			return err
		}

		// A row past its expiry is treated as never seen.
		if expired(entry, s.now()) {
			return nil
		}

		value = entry.Value
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Delete removes keys from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(orBackground(ctx)).
		Where("key IN ?", keys).
		Delete(&models.CacheEntry{}).Error
}

// IncrementWithTTL bumps the counter under key inside a row-locked
// transaction, restarting the window when the previous one has lapsed.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if err := s.ready(); err != nil {
		return 0, 0, err
	}
	ctx = orBackground(ctx)
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()
	windowEnd := now.Add(window)

	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&entry, "key = ?", key).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			count = 1
			return tx.Create(&models.CacheEntry{
				Key:       key,
				Value:     []byte("1"),
				ExpiresAt: windowEnd,
			}).Error
		case err != nil:
			return err
		}

		if expired(entry, now) {
			count = 1
		} else {
			prev, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count = prev + 1
			windowEnd = entry.ExpiresAt
		}
		entry.Value = []byte(strconv.FormatInt(count, 10))
		entry.ExpiresAt = windowEnd

		return tx.Save(&entry).Error
	})
	if err != nil {
		return 0, 0, err
	}

	return count, windowEnd.Sub(now), nil
}

func orBackground(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
