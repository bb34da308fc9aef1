package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}

func TestWrapFormatsContext(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, "warmer", "warmCaches", "ranking lookup")
	require.Error(t, err)
	assert.Equal(t, "warmer.warmCaches: ranking lookup failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, base))

	assert.NoError(t, Wrap(nil, "warmer", "warmCaches", "ranking lookup"))
}

func TestWrapClassified(t *testing.T) {
	base := stderrors.New("boom")

	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.wrap(base, "comp", "op", "action")
			require.Error(t, err)

			var ce *ClassifiedError
			require.True(t, stderrors.As(err, &ce))
			assert.Equal(t, tt.class, ce.Class)
			assert.Equal(t, "comp", ce.Component)
			assert.True(t, stderrors.Is(err, base))

			assert.NoError(t, tt.wrap(nil, "comp", "op", "action"))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(ErrCacheUnavailable))
	assert.True(t, IsTransient(ErrStoreUnavailable))
	assert.True(t, IsTransient(ErrUpstreamFailed))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(fmt.Errorf("dial tcp: connection refused")))
	assert.True(t, IsTransient(fmt.Errorf("429 rate limit exceeded")))
	assert.False(t, IsTransient(ErrInvalidAddress))
	assert.True(t, IsTransient(WrapTransient(stderrors.New("x"), "c", "m", "a")))
	assert.False(t, IsTransient(WrapInvalid(stderrors.New("x"), "c", "m", "a")))
}

func TestIsInvalid(t *testing.T) {
	assert.False(t, IsInvalid(nil))
	assert.True(t, IsInvalid(ErrInvalidAddress))
	assert.True(t, IsInvalid(ErrEmptyBatch))
	assert.True(t, IsInvalid(fmt.Errorf("bad wallet: %w", ErrInvalidAddress)))
	assert.False(t, IsInvalid(ErrCacheUnavailable))
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.True(t, IsFatal(ErrInvalidConfig))
	assert.True(t, IsFatal(ErrMissingConfig))
	assert.False(t, IsFatal(ErrKeyNotFound))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(nil))
	assert.Equal(t, ErrorTransient, Classify(ErrUpstreamFailed))
	assert.Equal(t, ErrorInvalid, Classify(ErrInvalidAddress))
	assert.Equal(t, ErrorFatal, Classify(ErrMissingConfig))
	// Unknown errors default to transient so callers may retry
	assert.Equal(t, ErrorTransient, Classify(stderrors.New("mystery")))
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	base := stderrors.New("root cause")
	err := WrapTransient(base, "cachestore", "Set", "remote put")

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.True(t, stderrors.Is(ce.Unwrap(), base))
}
