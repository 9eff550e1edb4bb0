package sntp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devicelink-go/bus"
)

func countingSync(offset time.Duration, err error, calls *atomic.Int32) SyncFunc {
	return func(ctx context.Context, server string, timeout time.Duration) (time.Duration, error) {
		calls.Add(1)
		return offset, err
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	var calls atomic.Int32
	c := New(Options{Interval: time.Hour, Sync: countingSync(0, nil, &calls)})

	c.Stop() // stopped client: no-op
	c.Start()
	c.Start()
	require.True(t, c.Enabled())
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	c.Stop()
	c.Stop()
	assert.False(t, c.Enabled())

	st := c.Stats()
	assert.EqualValues(t, 1, st.Starts)
	assert.EqualValues(t, 1, st.Stops)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSync_RecordsOffsetAndPublishes(t *testing.T) {
	b := bus.NewBus(4)
	sub := b.NewConnection("watch").Subscribe(bus.T("time", "sync"))

	var calls atomic.Int32
	c := New(Options{Interval: 5 * time.Millisecond, Sync: countingSync(1500*time.Millisecond, nil, &calls), Conn: b.NewConnection("sntp")})
	c.Start()
	defer c.Stop()

	select {
	case msg := <-sub.Channel():
		st, ok := msg.Payload.(Status)
		require.True(t, ok)
		assert.Equal(t, DefaultServer, st.Server)
		assert.EqualValues(t, 1500, st.OffsetMs)
	case <-time.After(time.Second):
		t.Fatal("no sync published")
	}
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, c.Offset())
}

func TestSync_FailureCounted(t *testing.T) {
	var calls atomic.Int32
	c := New(Options{Interval: time.Hour, Sync: countingSync(0, errors.New("no route"), &calls)})
	c.Start()
	require.Eventually(t, func() bool { return c.Stats().Failures == 1 }, time.Second, time.Millisecond)
	c.Stop()
	assert.Zero(t, c.Stats().Syncs)
}
