// Package cachestore implements the module's shared key/value cache with TTL.
//
// A Store is an ordered chain of backends tried in sequence: the remote NATS
// KV backend first, then the in-process memory backend. A backend failure
// converts into "try next", so callers never see cache-backend errors; the
// cache is an optimization, never a point of failure for correctness. With
// no remote backend configured the store runs entirely in process.
//
// Entries are logically absent once their deadline passes even if still
// physically present (lazy expiry); the remote bucket's native TTL and the
// memory tier's background sweep remove them eventually. No cross-process
// coordination is provided: concurrent writers are last-writer-wins.
package cachestore

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/c360/walletsync/errors"
)

// Entry is a cached value with its timing metadata.
type Entry struct {
	Value     []byte    `json:"value"`
	StoredAt  time.Time `json:"stored_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age() time.Duration {
	return time.Since(e.StoredAt)
}

// TTL returns the entry's nominal time-to-live at write time.
func (e *Entry) TTL() time.Duration {
	return e.ExpiresAt.Sub(e.StoredAt)
}

// IsExpired reports whether the entry's deadline has passed.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// IsFresh reports whether the entry's age is below half its nominal TTL.
// Fresh entries are skipped by the warmer instead of being refetched.
func (e *Entry) IsFresh() bool {
	return e.Age() < e.TTL()/2
}

// Backend is a single cache tier.
type Backend interface {
	// Name identifies the tier in logs and metrics ("remote", "memory").
	Name() string

	// Get returns the entry for key, or errors.ErrKeyNotFound when the key
	// is absent or expired. Any other error means the tier is unhealthy.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores the entry under key.
	Set(ctx context.Context, key string, entry *Entry) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Keys lists all live keys in the tier.
	Keys(ctx context.Context) ([]string, error)

	// Clear removes every entry from the tier.
	Clear(ctx context.Context) error
}

// Store is the ordered fallback chain over cache tiers.
type Store struct {
	backends []Backend
	logger   *slog.Logger
	metrics  *storeMetrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store over the given backends, tried in order. At least one
// backend is required; the last one should be the memory tier so writes
// always have somewhere to land.
func New(backends []Backend, opts ...Option) (*Store, error) {
	if len(backends) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cachestore", "New", "at least one backend required")
	}

	s := &Store{
		backends: backends,
		logger:   slog.Default().With("component", "cachestore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns the entry for key, consulting tiers in order. A tier failure
// or clean miss falls through to the next tier; the second return is false
// when no tier has a live entry.
func (s *Store) Get(ctx context.Context, key string) (*Entry, bool) {
	for _, backend := range s.backends {
		entry, err := backend.Get(ctx, key)
		if err == nil {
			if s.metrics != nil {
				s.metrics.recordHit(backend.Name())
			}
			return entry, true
		}
		if !errors.IsInvalid(err) && !isNotFound(err) {
			// Tier unhealthy; fall through silently
			s.logger.Debug("cache tier get failed", "tier", backend.Name(), "key", key, "error", err)
			if s.metrics != nil {
				s.metrics.recordFallback(backend.Name())
			}
		}
	}
	if s.metrics != nil {
		s.metrics.recordMiss()
	}
	return nil, false
}

// Set stores value under key with the given TTL. The write lands on the
// first tier that accepts it; a remote failure degrades to the next tier
// rather than surfacing. Only an invalid key returns an error.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cachestore", "Set", "key cannot be empty")
	}
	if ttl <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidData, "cachestore", "Set", "ttl must be positive")
	}

	now := time.Now()
	entry := &Entry{
		Value:     value,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	for i, backend := range s.backends {
		if err := backend.Set(ctx, key, entry); err != nil {
			s.logger.Warn("cache tier set failed, degrading",
				"tier", backend.Name(), "key", key, "error", err)
			if s.metrics != nil {
				s.metrics.recordDegradedWrite(backend.Name())
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.recordSet(backend.Name())
		}
		if i > 0 {
			// Landed below the preferred tier; durability of the cached
			// value is reduced but the caller is unaffected
			s.logger.Debug("cache write degraded", "tier", backend.Name(), "key", key)
		}
		return nil
	}

	// The memory tier cannot fail, so this is unreachable in practice
	return nil
}

// Delete removes key from every tier. Absent keys are a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	for _, backend := range s.backends {
		if err := backend.Delete(ctx, key); err != nil {
			s.logger.Debug("cache tier delete failed", "tier", backend.Name(), "key", key, "error", err)
		}
	}
	return nil
}

// ClearByPrefix enumerates keys on every tier and deletes those matching
// prefix. Returns the number of deletions across all tiers.
func (s *Store) ClearByPrefix(ctx context.Context, prefix string) (int, error) {
	deleted := 0
	for _, backend := range s.backends {
		keys, err := backend.Keys(ctx)
		if err != nil {
			s.logger.Debug("cache tier keys failed", "tier", backend.Name(), "error", err)
			continue
		}
		for _, key := range keys {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			if err := backend.Delete(ctx, key); err != nil {
				s.logger.Debug("cache tier delete failed", "tier", backend.Name(), "key", key, "error", err)
				continue
			}
			deleted++
		}
	}
	return deleted, nil
}

// FlushAll clears every tier.
func (s *Store) FlushAll(ctx context.Context) error {
	for _, backend := range s.backends {
		if err := backend.Clear(ctx); err != nil {
			s.logger.Warn("cache tier clear failed", "tier", backend.Name(), "error", err)
		}
	}
	return nil
}

// isNotFound reports whether err is the store's logical-absence signal.
func isNotFound(err error) bool {
	return stderrors.Is(err, errors.ErrKeyNotFound)
}
