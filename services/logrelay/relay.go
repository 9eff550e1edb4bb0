package logrelay

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"devicelink-go/types"
	"devicelink-go/x/fmtx"
	"devicelink-go/x/mathx"
	"devicelink-go/x/shmring"
)

// -----------------------------------------------------------------------------
// Collaborators and options
// -----------------------------------------------------------------------------

// Sender relays a finished record to the network. Best effort: errors are
// counted and otherwise ignored.
type Sender interface {
	Send(p []byte) error
}

// Location identifies the call site of a record.
type Location struct {
	File string
	Func string
	Line int
}

const (
	DefaultCapacity  = 128 // one UDP log datagram
	DefaultLockWait  = 10 * time.Millisecond
	DefaultQueueSize = 1024

	minCapacity = 2 // room for one byte and the newline
)

type Options struct {
	Console io.Writer   // synchronous local sink; nil discards
	Sender  Sender      // network sink; nil disables relaying
	LinkUp  func() bool // relay only while this reports true
	CoreID  func() uint8

	Capacity int           // record size limit in bytes (terminator excluded)
	LockWait time.Duration // longest Emit waits for the shared buffer

	// DeferRelay queues records in a ring and sends them from Run, outside
	// the buffer lock. Records that do not fit the ring are dropped whole.
	DeferRelay bool
	QueueSize  int // ring bytes, rounded up to a power of two

	Defaults types.Level // initial threshold for every subsystem; zero means LevelInfo
}

// Stats is a snapshot of the relay counters.
type Stats struct {
	Emitted       uint64
	Gated         uint64
	LockTimeouts  uint64
	Truncated     uint64
	Relayed       uint64
	RelayFailures uint64
	RelayDrops    uint64
}

// -----------------------------------------------------------------------------
// Relay
// -----------------------------------------------------------------------------

// Relay formats records into one shared buffer under a lock, writes them to
// the console and mirrors them to the network while the link is up.
type Relay struct {
	opts  Options
	table *SeverityTable

	running atomic.Bool
	lock    chan struct{} // one token; held while buf is in use

	buf []byte // Capacity+1; the byte after the content is always 0
	w   fmtx.Bounded

	ring *shmring.Ring // DeferRelay only
	kick chan struct{}

	emitted, gated, lockTimeouts, truncated atomic.Uint64
	relayed, relayFailures, relayDrops      atomic.Uint64
}

func New(opts Options) *Relay {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	opts.Capacity = mathx.Clamp(opts.Capacity, minCapacity, shmring.MaxFrame)
	if opts.LockWait <= 0 {
		opts.LockWait = DefaultLockWait
	}
	if opts.Defaults == types.LevelOff {
		opts.Defaults = types.LevelInfo
	}
	r := &Relay{
		opts:  opts,
		table: NewSeverityTable(opts.Defaults),
		lock:  make(chan struct{}, 1),
		buf:   make([]byte, opts.Capacity+1),
	}
	if opts.DeferRelay {
		size := opts.QueueSize
		if size <= 0 {
			size = DefaultQueueSize
		}
		r.ring = shmring.New(pow2(size))
		r.kick = make(chan struct{}, 1)
	}
	return r
}

func pow2(n int) int {
	p := 2
	for p < n {
		p <<= 1
	}
	return p
}

// MarkRunning switches Emit from the unlocked bring-up path to the locked
// path. Call it once before starting any concurrent producer.
func (r *Relay) MarkRunning() { r.running.Store(true) }

func (r *Relay) Table() *SeverityTable { return r.table }

// SetSeverity changes the threshold of one subsystem. Out of range values
// are ignored.
func (r *Relay) SetSeverity(sub types.Subsystem, lvl types.Level) {
	r.table.Set(sub, lvl)
}

func (r *Relay) Severity(sub types.Subsystem) types.Level { return r.table.Get(sub) }

// Enabled reports whether a record at lvl from sub would pass the gate.
func (r *Relay) Enabled(sub types.Subsystem, lvl types.Level) bool {
	return r.table.Allows(sub, lvl)
}

func (r *Relay) Stats() Stats {
	return Stats{
		Emitted:       r.emitted.Load(),
		Gated:         r.gated.Load(),
		LockTimeouts:  r.lockTimeouts.Load(),
		Truncated:     r.truncated.Load(),
		Relayed:       r.relayed.Load(),
		RelayFailures: r.relayFailures.Load(),
		RelayDrops:    r.relayDrops.Load(),
	}
}

func (r *Relay) acquire() bool {
	select {
	case r.lock <- struct{}{}:
		return true
	default:
	}
	t := time.NewTimer(r.opts.LockWait)
	defer t.Stop()
	select {
	case r.lock <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}

func (r *Relay) release() { <-r.lock }

// ---- record layout ----

func preamble(lvl types.Level) string {
	switch lvl {
	case types.LevelError:
		return "\x1b[31m-E-"
	case types.LevelWarning:
		return "\x1b[33m-W-"
	case types.LevelInfo:
		return "\x1b[32m-I-"
	case types.LevelDebug:
		return "\x1b[37m-D-"
	}
	return "---"
}

// Emit gates, formats, and writes one record. It never blocks longer than
// LockWait and never reports failure to the caller.
func (r *Relay) Emit(sub types.Subsystem, lvl types.Level, loc Location, core uint8, format string, args ...any) {
	if !r.table.Allows(sub, lvl) {
		r.gated.Add(1)
		return
	}

	locked := r.running.Load()
	if locked && !r.acquire() {
		r.lockTimeouts.Add(1)
		return
	}

	capacity := len(r.buf) - 1
	r.w.Reset(r.buf[:capacity])
	fmtx.Fprintf(&r.w, "%s C%d %s:%s.%d\x1b[0m: ", preamble(lvl), core, loc.File, loc.Func, loc.Line)
	fmtx.Fprintf(&r.w, format, args...)

	n := r.w.Len()
	cut := r.w.Truncated()
	if n == 0 || r.buf[n-1] != '\n' {
		if !r.w.Full() {
			r.buf[n] = '\n'
			n++
		} else {
			r.buf[n-1] = '\n'
			cut = true
		}
	}
	r.buf[n] = 0
	if cut {
		r.truncated.Add(1)
	}
	rec := r.buf[:n]

	if r.opts.Console != nil {
		r.opts.Console.Write(rec)
	}
	if r.opts.Sender != nil && r.opts.LinkUp != nil && r.opts.LinkUp() {
		r.relay(rec)
	}
	r.emitted.Add(1)

	if locked {
		r.release()
	}
}

func (r *Relay) relay(rec []byte) {
	if r.ring != nil {
		if !r.ring.WriteFrame(rec) {
			r.relayDrops.Add(1)
			return
		}
		select {
		case r.kick <- struct{}{}:
		default:
		}
		return
	}
	r.send(rec)
}

func (r *Relay) send(rec []byte) {
	if err := r.opts.Sender.Send(rec); err != nil {
		r.relayFailures.Add(1)
		return
	}
	r.relayed.Add(1)
}

// Run drains the deferred relay queue until ctx is done. It returns
// immediately when DeferRelay is off.
func (r *Relay) Run(ctx context.Context) {
	if r.ring == nil {
		return
	}
	scratch := make([]byte, len(r.buf)-1)
	for {
		for {
			n, ok := r.ring.ReadFrame(scratch)
			if !ok {
				break
			}
			r.send(scratch[:n])
		}
		select {
		case <-ctx.Done():
			return
		case <-r.kick:
		}
	}
}
