package cachestore

import (
	"context"
	"time"

	"github.com/c360/walletsync/errors"
	"github.com/c360/walletsync/pkg/cache"
)

// memoryBackend is the in-process cache tier. It is the automatic fallback
// when the remote tier is unreachable or unconfigured, and it cannot fail.
type memoryBackend struct {
	entries cache.Cache[*Entry]
}

// NewMemoryBackend creates the in-process tier. defaultTTL bounds entries
// whose own deadline is malformed; the sweep runs until ctx is cancelled.
func NewMemoryBackend(ctx context.Context, defaultTTL time.Duration, opts ...cache.Option[*Entry]) (Backend, error) {
	entries, err := cache.NewTTL[*Entry](ctx, defaultTTL, time.Minute, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "cachestore", "NewMemoryBackend", "ttl cache init")
	}
	return &memoryBackend{entries: entries}, nil
}

func (b *memoryBackend) Name() string { return "memory" }

func (b *memoryBackend) Get(_ context.Context, key string) (*Entry, error) {
	entry, ok := b.entries.Get(key)
	if !ok || entry.IsExpired() {
		return nil, errors.ErrKeyNotFound
	}
	return entry, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, entry *Entry) error {
	_, err := b.entries.SetWithTTL(key, entry, time.Until(entry.ExpiresAt))
	return err
}

func (b *memoryBackend) Delete(_ context.Context, key string) error {
	_, err := b.entries.Delete(key)
	if err != nil && errors.IsInvalid(err) {
		return nil // absent or malformed key, nothing to do
	}
	return err
}

func (b *memoryBackend) Keys(_ context.Context) ([]string, error) {
	return b.entries.Keys(), nil
}

func (b *memoryBackend) Clear(_ context.Context) error {
	return b.entries.Clear()
}

// Close stops the tier's background sweep.
func (b *memoryBackend) Close() error {
	return b.entries.Close()
}
