// Package sntp keeps the clock offset against an NTP server while the link
// is up. Start and Stop are idempotent so the supervisor can call them on
// every connect and teardown.
package sntp

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"devicelink-go/bus"
	"devicelink-go/services/logrelay"
	"devicelink-go/x/timex"
)

const (
	DefaultServer   = "pool.ntp.org"
	DefaultInterval = time.Hour
	DefaultTimeout  = 5 * time.Second
)

// SyncFunc queries server once and returns the local clock offset. It must
// return promptly once ctx ends; Stop waits for it.
type SyncFunc func(ctx context.Context, server string, timeout time.Duration) (time.Duration, error)

type Options struct {
	Server   string
	Interval time.Duration // poll period while running
	Timeout  time.Duration // per query
	Sync     SyncFunc      // defaults to a real SNTP query
	Log      *logrelay.Logger
	Conn     *bus.Connection // optional; offsets are published on "time/sync"
}

// Status is the payload published after every successful sync.
type Status struct {
	Server   string `json:"server" yaml:"server"`
	OffsetMs int64  `json:"offset_ms" yaml:"offset_ms"`
	TS       int64  `json:"ts_ms" yaml:"ts_ms"`
}

type Stats struct {
	Starts, Stops   uint64
	Syncs, Failures uint64
	LastOffset      time.Duration
	Enabled         bool
}

var topicTimeSync = bus.T("time", "sync")

type Client struct {
	opts Options

	mu      sync.Mutex
	enabled bool
	cancel  context.CancelFunc
	done    chan struct{}

	starts, stops, syncs, failures atomic.Uint64
	offset                         atomic.Int64
}

func New(opts Options) *Client {
	if opts.Server == "" {
		opts.Server = DefaultServer
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Sync == nil {
		opts.Sync = query
	}
	if opts.Log != nil {
		opts.Log = opts.Log.In("sntp.go")
	}
	return &Client{opts: opts}
}

// Start begins polling. A running client is left alone.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.enabled = true
	c.cancel = cancel
	c.done = make(chan struct{})
	c.starts.Add(1)
	go c.loop(ctx, c.done)
}

// Stop ends polling. An in-flight query is abandoned, not waited out. A stopped
// client is left alone.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}
	c.enabled = false
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.stops.Add(1)
	c.mu.Unlock()

	cancel()
	<-done
}

func (c *Client) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Offset is the last measured offset; add it to local time.
func (c *Client) Offset() time.Duration { return time.Duration(c.offset.Load()) }

func (c *Client) Stats() Stats {
	return Stats{
		Starts:     c.starts.Load(),
		Stops:      c.stops.Load(),
		Syncs:      c.syncs.Load(),
		Failures:   c.failures.Load(),
		LastOffset: c.Offset(),
		Enabled:    c.Enabled(),
	}
}

func (c *Client) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	tick := time.NewTicker(c.opts.Interval)
	defer tick.Stop()

	c.syncOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			c.syncOnce(ctx)
		}
	}
}

func (c *Client) syncOnce(ctx context.Context) {
	off, err := c.opts.Sync(ctx, c.opts.Server, c.opts.Timeout)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.failures.Add(1)
		if c.opts.Log != nil {
			c.opts.Log.At("syncOnce", 161).Warnf("SNTP query to %s failed: %v", c.opts.Server, err)
		}
		return
	}
	c.syncs.Add(1)
	c.offset.Store(int64(off))
	if c.opts.Log != nil {
		c.opts.Log.At("syncOnce", 168).Infof("Time synchronised, offset %d ms", off.Milliseconds())
	}
	if conn := c.opts.Conn; conn != nil {
		conn.Publish(conn.NewMessage(topicTimeSync, Status{
			Server:   c.opts.Server,
			OffsetMs: off.Milliseconds(),
			TS:       timex.NowMs(),
		}, true))
	}
}
