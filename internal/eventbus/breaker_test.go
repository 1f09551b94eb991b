package eventbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPublisher struct {
	err   error
	calls int
}

func (f *flakyPublisher) Publish(context.Context, string, []byte) error {
	f.calls++
	return f.err
}

func (f *flakyPublisher) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBreakerPublisher_PassesThrough(t *testing.T) {
	next := &flakyPublisher{}
	p := NewBreakerPublisher(next, BreakerConfig{}, discardLogger())

	require.NoError(t, p.Publish(context.Background(), "analytics.test", []byte(`{}`)))
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, gobreaker.StateClosed, p.State())
}

func TestBreakerPublisher_OpensAfterConsecutiveFailures(t *testing.T) {
	next := &flakyPublisher{err: errors.New("broker down")}
	p := NewBreakerPublisher(next, BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute}, discardLogger())

	ctx := context.Background()
	assert.Error(t, p.Publish(ctx, "k", nil))
	assert.Error(t, p.Publish(ctx, "k", nil))
	assert.Equal(t, gobreaker.StateOpen, p.State())

	err := p.Publish(ctx, "k", nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, next.calls, "open circuit must not reach the broker")
}

func TestBreakerPublisher_CallerCancellationDoesNotTrip(t *testing.T) {
	next := &flakyPublisher{err: context.Canceled}
	p := NewBreakerPublisher(next, BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute}, discardLogger())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, p.Publish(ctx, "k", nil), context.Canceled)
	}
	next.err = fmt.Errorf("publish: %w", context.DeadlineExceeded)
	assert.ErrorIs(t, p.Publish(ctx, "k", nil), context.DeadlineExceeded)

	assert.Equal(t, gobreaker.StateClosed, p.State())
	assert.Equal(t, 4, next.calls)

	next.err = errors.New("broker down")
	assert.Error(t, p.Publish(ctx, "k", nil))
	assert.Equal(t, gobreaker.StateOpen, p.State())
}

func TestNoopPublisher(t *testing.T) {
	p := NewNoopPublisher(discardLogger())
	assert.NoError(t, p.Publish(context.Background(), "k", []byte("x")))
	assert.NoError(t, p.Close())
}
