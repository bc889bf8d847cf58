package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketRateLimits = []byte("rate_limits")

// Level names what a counter is keyed on
type Level string

const (
	// LevelLoginIP counts login and registration attempts per client IP
	LevelLoginIP Level = "login_ip"
	// LevelUserWrite counts mutating API calls per user
	LevelUserWrite Level = "user_write"
)

// Config contains rate limit configuration. A nil limit disables its level.
type Config struct {
	Login  *LimitConfig
	Writes *LimitConfig

	FlushInterval time.Duration
}

// LimitConfig contains rate limit values. Zero means unlimited.
type LimitConfig struct {
	PerHour int `json:"per_hour"`
	PerDay  int `json:"per_day"`
}

// Counter tracks rate limit counters
type Counter struct {
	HourlyCount int       `json:"hourly_count"`
	DailyCount  int       `json:"daily_count"`
	HourStart   time.Time `json:"hour_start"`
	DayStart    time.Time `json:"day_start"`
}

// Result contains the rate limit check result
type Result struct {
	Allowed    bool
	Level      Level
	RetryAfter time.Duration
}

// Limiter keeps fixed-window hourly and daily counters in memory and
// flushes them to bbolt so limits survive restarts.
type Limiter struct {
	db       *bolt.DB
	config   *Config
	counters map[string]*Counter
	mu       sync.RWMutex
	stopCh   chan struct{}
	now      func() time.Time
}

// Open opens (creating if needed) the bbolt file that backs a limiter
func Open(path string) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ratelimit directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open ratelimit database: %w", err)
	}
	return db, nil
}

// NewLimiter creates a new rate limiter
func NewLimiter(db *bolt.DB, cfg *Config) (*Limiter, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRateLimits)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limits bucket: %w", err)
	}

	l := &Limiter{
		db:       db,
		config:   cfg,
		counters: make(map[string]*Counter),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}

	if err := l.loadCounters(); err != nil {
		return nil, fmt.Errorf("failed to load counters: %w", err)
	}

	go l.persistLoop()

	return l, nil
}

func (l *Limiter) limitFor(level Level) *LimitConfig {
	switch level {
	case LevelLoginIP:
		return l.config.Login
	case LevelUserWrite:
		return l.config.Writes
	}
	return nil
}

// Enabled reports whether level has any limit configured
func (l *Limiter) Enabled(level Level) bool {
	limit := l.limitFor(level)
	return limit != nil && (limit.PerHour > 0 || limit.PerDay > 0)
}

// Allow checks the counter for (level, key) and increments it when allowed
func (l *Limiter) Allow(ctx context.Context, level Level, key string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Allowed: true, Level: level}
	limit := l.limitFor(level)
	if limit == nil {
		return result, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	counter := l.getOrCreateCounter(makeKey(level, key), now)
	resetExpiredCounter(counter, now)

	if limit.PerHour > 0 && counter.HourlyCount >= limit.PerHour {
		result.Allowed = false
		result.RetryAfter = counter.HourStart.Add(time.Hour).Sub(now)
		return result, nil
	}
	if limit.PerDay > 0 && counter.DailyCount >= limit.PerDay {
		result.Allowed = false
		result.RetryAfter = counter.DayStart.Add(24 * time.Hour).Sub(now)
		return result, nil
	}

	counter.HourlyCount++
	counter.DailyCount++
	return result, nil
}

// Reset drops the counter for (level, key), e.g. after a successful login
func (l *Limiter) Reset(level Level, key string) error {
	fullKey := makeKey(level, key)

	l.mu.Lock()
	delete(l.counters, fullKey)
	l.mu.Unlock()

	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRateLimits).Delete([]byte(fullKey))
	})
}

// Prune removes counters whose daily window has ended, in memory and on
// disk, and returns how many were removed.
func (l *Limiter) Prune() (int, error) {
	l.mu.Lock()
	now := l.now()
	var stale []string
	for key, c := range l.counters {
		if now.Sub(c.DayStart) >= 24*time.Hour {
			stale = append(stale, key)
			delete(l.counters, key)
		}
	}
	l.mu.Unlock()

	if len(stale) == 0 {
		return 0, nil
	}

	err := l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRateLimits)
		for _, key := range stale {
			if err := bucket.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	return len(stale), err
}

// Stop stops the rate limiter and persists counters
func (l *Limiter) Stop() error {
	close(l.stopCh)
	return l.persistCounters()
}

func (l *Limiter) getOrCreateCounter(key string, now time.Time) *Counter {
	counter, exists := l.counters[key]
	if !exists {
		counter = &Counter{
			HourStart: now,
			DayStart:  now,
		}
		l.counters[key] = counter
	}
	return counter
}

func resetExpiredCounter(counter *Counter, now time.Time) {
	if now.Sub(counter.HourStart) >= time.Hour {
		counter.HourlyCount = 0
		counter.HourStart = now
	}
	if now.Sub(counter.DayStart) >= 24*time.Hour {
		counter.DailyCount = 0
		counter.DayStart = now
	}
}

func (l *Limiter) loadCounters() error {
	return l.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRateLimits)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var counter Counter
			if err := json.Unmarshal(v, &counter); err != nil {
				return nil // Skip invalid entries
			}
			l.counters[string(k)] = &counter
			return nil
		})
	})
}

func (l *Limiter) persistCounters() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRateLimits)
		if bucket == nil {
			return nil
		}

		for key, counter := range l.counters {
			data, err := json.Marshal(counter)
			if err != nil {
				continue
			}
			if err := bucket.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *Limiter) persistLoop() {
	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.persistCounters()
		}
	}
}

func makeKey(level Level, key string) string {
	return string(level) + ":" + key
}
