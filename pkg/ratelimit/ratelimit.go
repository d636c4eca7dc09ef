// Package ratelimit implements a blocking, per-key sliding-window rate
// limiter for outbound calls to scraper and LLM upstreams. Unlike a
// check-then-reject quota gate, Acquire suspends the caller until the
// window has room rather than returning a rejection, mirroring how the
// scraper adapters are expected to behave under a shared per-source quota.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config configures one Limiter instance.
type Config struct {
	// Enabled controls whether acquiring blocks at all; disabled limiters
	// return immediately.
	Enabled bool

	// RequestsPerMinute is the mandatory sliding-window limit: at most this
	// many Acquire calls may succeed in any trailing 60-second window.
	RequestsPerMinute int

	// RequestsPerSecond and BurstSize are additive secondary limits layered
	// on top of the per-minute window. Zero disables them.
	RequestsPerSecond int
	BurstSize         int
}

// SetDefaults fills in the zero-config default of 60 requests/minute.
func (c *Config) SetDefaults() {
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = 60
	}
}

// Validate checks the configured limits are sane.
func (c *Config) Validate() error {
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("ratelimit: requests_per_minute must be positive")
	}
	if c.RequestsPerSecond < 0 || c.BurstSize < 0 {
		return fmt.Errorf("ratelimit: requests_per_second and burst_size must be non-negative")
	}
	return nil
}

// Store persists the timestamp history backing the sliding window for each
// key. The in-memory implementation suffices for a single process; Redis
// lets the limit be shared across replicas of the scraper coordinator.
type Store interface {
	// Timestamps returns the recorded call timestamps for key that fall
	// strictly after the given cutoff, oldest first.
	Timestamps(ctx context.Context, key string, cutoff time.Time) ([]time.Time, error)

	// Record appends a timestamp for key and prunes entries at or before
	// cutoff in the same operation.
	Record(ctx context.Context, key string, at time.Time, cutoff time.Time) error
}

// tokenBucket is the in-process secondary limiter: RequestsPerSecond
// tokens drip in per second, up to BurstSize capacity. It layers a
// tighter burst cap on top of the per-minute window and doesn't need to
// be shared across replicas, so it lives in-process rather than going
// through Store.
type tokenBucket struct {
	tokens float64
	last   time.Time
}

// Limiter blocks callers until their key is under its configured quota.
type Limiter struct {
	config *Config
	store  Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	bucketMu sync.Mutex
	buckets  map[string]*tokenBucket

	// sleep is overridable in tests to avoid real waits.
	sleep func(context.Context, time.Duration) error

	// now is overridable in tests to control token-bucket refill.
	now func() time.Time
}

// New builds a Limiter. cfg.SetDefaults should be called by the owning
// config layer before this is invoked.
func New(cfg *Config, store Store) (*Limiter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ratelimit: config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("ratelimit: store is required")
	}
	return &Limiter{
		config:  cfg,
		store:   store,
		locks:   make(map[string]*sync.Mutex),
		buckets: make(map[string]*tokenBucket),
		sleep:   sleepCtx,
		now:     time.Now,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// waitSecondary enforces the optional requests-per-second/burst-size
// cap. It is a no-op when RequestsPerSecond is zero. Callers hold key's
// lock already, so a single token deduction here can't race itself.
func (l *Limiter) waitSecondary(ctx context.Context, key string) error {
	if l.config.RequestsPerSecond <= 0 {
		return nil
	}
	capacity := float64(l.config.BurstSize)
	if capacity <= 0 {
		capacity = float64(l.config.RequestsPerSecond)
	}
	rate := float64(l.config.RequestsPerSecond)

	for {
		l.bucketMu.Lock()
		b, ok := l.buckets[key]
		now := l.now()
		if !ok {
			b = &tokenBucket{tokens: capacity, last: now}
			l.buckets[key] = b
		} else {
			elapsed := now.Sub(b.last).Seconds()
			b.tokens += elapsed * rate
			if b.tokens > capacity {
				b.tokens = capacity
			}
			b.last = now
		}

		if b.tokens >= 1 {
			b.tokens--
			l.bucketMu.Unlock()
			return nil
		}
		deficit := 1 - b.tokens
		wait := time.Duration(deficit / rate * float64(time.Second))
		l.bucketMu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *Limiter) keyLock(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// Acquire blocks until key is under the per-minute quota, then records the
// call. Only one caller per key waits at a time; a second caller for the
// same key queues behind the first.
func (l *Limiter) Acquire(ctx context.Context, key string) error {
	if !l.config.Enabled {
		return nil
	}
	if key == "" {
		key = "default"
	}

	lock := l.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if err := l.waitSecondary(ctx, key); err != nil {
		return err
	}

	for {
		now := time.Now()
		windowStart := now.Add(-time.Minute)

		timestamps, err := l.store.Timestamps(ctx, key, windowStart)
		if err != nil {
			return fmt.Errorf("ratelimit: get timestamps for %q: %w", key, err)
		}

		if len(timestamps) < l.config.RequestsPerMinute {
			if err := l.store.Record(ctx, key, now, windowStart); err != nil {
				return fmt.Errorf("ratelimit: record for %q: %w", key, err)
			}
			return nil
		}

		oldest := timestamps[0]
		wait := oldest.Add(time.Minute).Sub(now)
		if wait <= 0 {
			continue
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}
