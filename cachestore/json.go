package cachestore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/c360/walletsync/errors"
)

// GetJSON reads key and unmarshals the cached value into T. The boolean is
// false on a miss or an undecodable value; a stale-but-decodable entry is
// still returned so callers can apply their own freshness rules via entry.
func GetJSON[T any](ctx context.Context, s *Store, key string) (T, *Entry, bool) {
	var value T

	entry, ok := s.Get(ctx, key)
	if !ok {
		return value, nil, false
	}
	if err := json.Unmarshal(entry.Value, &value); err != nil {
		// Undecodable payload; drop it so the next write repairs the key
		_ = s.Delete(ctx, key)
		return value, nil, false
	}
	return value, entry, true
}

// SetJSON marshals value and stores it under key with the given TTL.
func SetJSON[T any](ctx context.Context, s *Store, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.WrapInvalid(err, "cachestore", "SetJSON", "marshal")
	}
	return s.Set(ctx, key, data, ttl)
}
