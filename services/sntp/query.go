//go:build !tinygo

package sntp

import (
	"context"
	"time"

	"github.com/beevik/ntp"
)

// ntpQuery is the library call. It takes no context, so query runs it on
// its own goroutine and stops waiting when ctx ends.
var ntpQuery = ntp.QueryWithOptions

func query(ctx context.Context, server string, timeout time.Duration) (time.Duration, error) {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	type result struct {
		off time.Duration
		err error
	}
	ch := make(chan result, 1) // the sender never blocks after we give up
	go func() {
		resp, err := ntpQuery(server, ntp.QueryOptions{Timeout: timeout})
		if err == nil {
			err = resp.Validate()
		}
		if err != nil {
			ch <- result{err: err}
			return
		}
		ch <- result{off: resp.ClockOffset}
	}()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case r := <-ch:
		return r.off, r.err
	}
}
