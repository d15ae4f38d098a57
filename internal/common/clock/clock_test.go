package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_SleepAdvancesAndRecords(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	f := NewFake(start)

	require.NoError(t, f.Sleep(context.Background(), 1500*time.Millisecond))
	require.NoError(t, f.Sleep(context.Background(), 2*time.Second))

	assert.Equal(t, start.Add(3500*time.Millisecond), f.Now())
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 2 * time.Second}, f.Sleeps())
}

func TestFake_SleepHonoursCancelledContext(t *testing.T) {
	f := NewFake(time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, f.Sleep(ctx, time.Second), context.Canceled)
	assert.Empty(t, f.Sleeps())
}

func TestReal_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Real().Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReal_SleepElapses(t *testing.T) {
	begin := time.Now()
	require.NoError(t, Real().Sleep(context.Background(), 5*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(begin), 5*time.Millisecond)
}
