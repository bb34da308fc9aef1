package natskv

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	assert.False(t, IsNotFoundError(nil))
	assert.True(t, IsNotFoundError(ErrKeyNotFound))
	assert.True(t, IsNotFoundError(jetstream.ErrKeyNotFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("wrapped: %w", ErrKeyNotFound)))
	assert.True(t, IsNotFoundError(errors.New("nats: key not found")))
	assert.True(t, IsNotFoundError(errors.New("err_code=10037")))
	assert.False(t, IsNotFoundError(errors.New("connection refused")))
}

func TestIsNoKeysError(t *testing.T) {
	assert.False(t, IsNoKeysError(nil))
	assert.True(t, IsNoKeysError(jetstream.ErrNoKeysFound))
	assert.True(t, IsNoKeysError(errors.New("nats: no keys found")))
	assert.False(t, IsNoKeysError(errors.New("timeout")))
}

func TestDefaultKVOptions(t *testing.T) {
	opts := DefaultKVOptions()
	assert.Equal(t, 1024*1024, opts.MaxValueSize)
	assert.Positive(t, opts.Timeout)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("nats://localhost:4222")
	assert.False(t, c.IsHealthy())
	assert.NoError(t, c.Close())
}
