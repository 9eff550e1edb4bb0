//go:build !tinygo

package sntp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beevik/ntp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubQuery replaces the library call with one that blocks until the test
// ends, like a query to an unresponsive server.
func stubQuery(t *testing.T) <-chan struct{} {
	t.Helper()
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	orig := ntpQuery
	ntpQuery = func(string, ntp.QueryOptions) (*ntp.Response, error) {
		entered <- struct{}{}
		<-release
		return nil, errors.New("released")
	}
	t.Cleanup(func() {
		close(release)
		ntpQuery = orig
	})
	return entered
}

func TestQuery_ReturnsWhenContextEnds(t *testing.T) {
	entered := stubQuery(t)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := query(ctx, DefaultServer, time.Minute)
		errc <- err
	}()
	<-entered
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("query ignored cancellation")
	}
}

func TestStop_DoesNotWaitOutBlockedQuery(t *testing.T) {
	entered := stubQuery(t)
	c := New(Options{Interval: time.Hour, Timeout: time.Minute})
	c.Start()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("no query issued")
	}

	start := time.Now()
	c.Stop()
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	st := c.Stats()
	require.False(t, st.Enabled)
	assert.Zero(t, st.Failures, "a cancelled query is not a failure")
}
