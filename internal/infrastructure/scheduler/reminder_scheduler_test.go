package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appdocument "github.com/propsign/backend/internal/application/document"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

type fakeSweeper struct {
	calls  atomic.Int32
	result appdocument.SweepResult
	err    error
}

func (f *fakeSweeper) SweepAll(ctx context.Context) (appdocument.SweepResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return appdocument.SweepResult{}, f.err
	}
	return f.result, nil
}

// ---------------------------------------------------------------------------
// ReminderScheduler Tests
// ---------------------------------------------------------------------------

func TestNewReminderScheduler_AppliesDefaults(t *testing.T) {
	s := NewReminderScheduler(&fakeSweeper{}, newTestLogger(), ReminderSchedulerConfig{Enabled: true})

	assert.Equal(t, 6*time.Hour, s.config.SweepInterval)
	assert.Equal(t, 10*time.Minute, s.config.SweepTimeout)
}

func TestReminderScheduler_StartAndStop(t *testing.T) {
	sweeper := &fakeSweeper{}
	config := DefaultReminderSchedulerConfig()
	config.SweepInterval = time.Hour

	s := NewReminderScheduler(sweeper, newTestLogger(), config)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	// Starting twice is a no-op.
	require.NoError(t, s.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	assert.False(t, s.IsRunning())

	// Stopping twice is also a no-op.
	require.NoError(t, s.Stop(stopCtx))
}

func TestReminderScheduler_DisabledDoesNotRun(t *testing.T) {
	sweeper := &fakeSweeper{}
	config := DefaultReminderSchedulerConfig()
	config.Enabled = false
	config.SweepInterval = 10 * time.Millisecond

	s := NewReminderScheduler(sweeper, newTestLogger(), config)

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), sweeper.calls.Load())
}

func TestReminderScheduler_SweepsOnInterval(t *testing.T) {
	sweeper := &fakeSweeper{result: appdocument.SweepResult{Examined: 3, Sent: 2, Failed: 1}}
	config := DefaultReminderSchedulerConfig()
	config.SweepInterval = 20 * time.Millisecond

	s := NewReminderScheduler(sweeper, newTestLogger(), config)

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
}

func TestReminderScheduler_SweepErrorKeepsLoopAlive(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("smtp unreachable")}
	config := DefaultReminderSchedulerConfig()
	config.SweepInterval = 20 * time.Millisecond

	s := NewReminderScheduler(sweeper, newTestLogger(), config)

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
}
