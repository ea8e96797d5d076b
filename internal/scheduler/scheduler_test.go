package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTicksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var ticks int32
	sched := New(Options{Interval: 5 * time.Millisecond}, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx, func(context.Context) error {
			if atomic.AddInt32(&ticks, 1) >= 3 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&ticks), int32(3))
}

func TestRunContinuesAfterTickError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var ticks int32
	sched := New(Options{Interval: time.Millisecond}, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx, func(context.Context) error {
			if atomic.AddInt32(&ticks, 1) >= 2 {
				cancel()
				return nil
			}
			return errors.New("transient failure")
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not keep ticking after a failed tick")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&ticks), int32(2))
}

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	require.Panics(t, func() {
		New(Options{Interval: 0}, zerolog.Nop())
	})
}
