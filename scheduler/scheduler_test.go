package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryRejectsNonPositiveInterval(t *testing.T) {
	s := New()
	assert.Error(t, s.Every("refresh", 0, func(context.Context) error { return nil }))
	assert.Equal(t, 0, s.Jobs())
}

func TestEveryReplacesJobWithSameName(t *testing.T) {
	s := New()
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Every("refresh", time.Minute, noop))
	require.NoError(t, s.Every("refresh", 2*time.Minute, noop))
	require.NoError(t, s.Every("status", time.Minute, noop))

	assert.Equal(t, 2, s.Jobs())
	assert.Len(t, s.cron.Entries(), 2)
}

func TestRunExecutesJobsUntilCancelled(t *testing.T) {
	s := New()
	var runs atomic.Int32
	var sawContext atomic.Bool
	require.NoError(t, s.Every("refresh", time.Second, func(ctx context.Context) error {
		sawContext.Store(ctx.Value(ctxKey{}) == "informer")
		runs.Add(1)
		return errors.New("keep going")
	}))

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "informer"))
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.True(t, sawContext.Load())
}

type ctxKey struct{}
