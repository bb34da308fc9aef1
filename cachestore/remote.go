package cachestore

import (
	"context"
	"encoding/json"

	"github.com/c360/walletsync/errors"
	"github.com/c360/walletsync/natskv"
)

// remoteBackend is the NATS JetStream KV cache tier. Entries are stored as a
// JSON envelope carrying their own deadline since bucket TTL is per-bucket,
// not per-key; expiry is enforced lazily on read and physically by the
// bucket's backstop TTL.
type remoteBackend struct {
	kv *natskv.KVStore
}

// NewRemoteBackend wraps a KV store as a cache tier.
func NewRemoteBackend(kv *natskv.KVStore) Backend {
	return &remoteBackend{kv: kv}
}

func (b *remoteBackend) Name() string { return "remote" }

func (b *remoteBackend) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := b.kv.Get(ctx, sanitizeKey(key))
	if err != nil {
		if natskv.IsNotFoundError(err) {
			return nil, errors.ErrKeyNotFound
		}
		return nil, errors.WrapTransient(err, "cachestore", "remoteGet", "kv get")
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt envelope; treat as absent and let it be overwritten
		return nil, errors.ErrKeyNotFound
	}

	if entry.IsExpired() {
		// Lazy expiry: physically remove in passing, best effort
		_ = b.kv.Delete(ctx, sanitizeKey(key))
		return nil, errors.ErrKeyNotFound
	}

	return &entry, nil
}

func (b *remoteBackend) Set(ctx context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.WrapInvalid(err, "cachestore", "remoteSet", "envelope marshal")
	}
	if err := b.kv.Put(ctx, sanitizeKey(key), data); err != nil {
		return errors.WrapTransient(err, "cachestore", "remoteSet", "kv put")
	}
	return nil
}

func (b *remoteBackend) Delete(ctx context.Context, key string) error {
	if err := b.kv.Delete(ctx, sanitizeKey(key)); err != nil {
		return errors.WrapTransient(err, "cachestore", "remoteDelete", "kv delete")
	}
	return nil
}

func (b *remoteBackend) Keys(ctx context.Context) ([]string, error) {
	keys, err := b.kv.Keys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "cachestore", "remoteKeys", "kv keys")
	}
	restored := make([]string, len(keys))
	for i, key := range keys {
		restored[i] = restoreKey(key)
	}
	return restored, nil
}

func (b *remoteBackend) Clear(ctx context.Context) error {
	keys, err := b.kv.Keys(ctx)
	if err != nil {
		return errors.WrapTransient(err, "cachestore", "remoteClear", "kv keys")
	}
	for _, key := range keys {
		if err := b.kv.Purge(ctx, key); err != nil {
			return errors.WrapTransient(err, "cachestore", "remoteClear", "kv purge")
		}
	}
	return nil
}
