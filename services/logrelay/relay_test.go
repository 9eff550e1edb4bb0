package logrelay

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devicelink-go/types"
)

// ---- fakes ----

// recSink keeps every Write as one record.
type recSink struct {
	mu   sync.Mutex
	recs []string
}

func (s *recSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.recs = append(s.recs, string(p))
	s.mu.Unlock()
	return len(p), nil
}

func (s *recSink) Send(p []byte) error {
	_, _ = s.Write(p)
	return nil
}

func (s *recSink) records() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recs...)
}

type failingSender struct{}

func (failingSender) Send([]byte) error { return errors.New("unreachable") }

func up() bool   { return true }
func down() bool { return false }

var here = Location{File: "main.go", Func: "run", Line: 7}

// ---- severity table ----

func TestSetSeverity_OutOfRangeLeavesTableUnchanged(t *testing.T) {
	r := New(Options{Defaults: types.LevelWarning})
	before := r.Table().Snapshot()

	r.SetSeverity(types.NumSubsystems, types.LevelDebug)
	r.SetSeverity(types.Subsystem(200), types.LevelError)
	r.SetSeverity(types.SubsystemWLAN, types.NumLevels)
	r.SetSeverity(types.SubsystemWLAN, types.Level(99))

	assert.Equal(t, before, r.Table().Snapshot())
}

func TestSetSeverity_AssignsRequestedLevel(t *testing.T) {
	r := New(Options{})
	assert.Equal(t, types.LevelInfo, r.Severity(types.SubsystemSNTP))

	r.SetSeverity(types.SubsystemSNTP, types.LevelError)
	assert.Equal(t, types.LevelError, r.Severity(types.SubsystemSNTP))

	r.SetSeverity(types.SubsystemSNTP, types.LevelOff)
	assert.Equal(t, types.LevelOff, r.Severity(types.SubsystemSNTP))
}

func TestSeverity_UnknownSubsystemUsesUnknownEntry(t *testing.T) {
	r := New(Options{})
	r.SetSeverity(types.SubsystemUnknown, types.LevelError)
	assert.Equal(t, types.LevelError, r.Severity(types.Subsystem(42)))
	assert.True(t, r.Enabled(types.Subsystem(42), types.LevelError))
	assert.False(t, r.Enabled(types.Subsystem(42), types.LevelWarning))
}

// ---- gating ----

func TestEmit_GatedLinesReachNoSink(t *testing.T) {
	con, net := &recSink{}, &recSink{}
	r := New(Options{Console: con, Sender: net, LinkUp: up, Defaults: types.LevelWarning})
	r.MarkRunning()

	r.Emit(types.SubsystemMain, types.LevelInfo, here, 0, "quiet %d", 1)
	r.Emit(types.SubsystemMain, types.LevelDebug, here, 0, "quiet %d", 2)
	r.Emit(types.SubsystemMain, types.LevelOff, here, 0, "never")
	r.Emit(types.SubsystemMain, types.NumLevels, here, 0, "never")

	r.SetSeverity(types.SubsystemApp, types.LevelOff)
	r.Emit(types.SubsystemApp, types.LevelError, here, 0, "silenced")

	assert.Empty(t, con.records())
	assert.Empty(t, net.records())
	assert.EqualValues(t, 5, r.Stats().Gated)
	assert.Zero(t, r.Stats().Emitted)
}

// Subsystem gated at info: debug is dropped, error reaches both sinks.
func TestEmit_InfoGateDebugDroppedErrorRelayed(t *testing.T) {
	con, net := &recSink{}, &recSink{}
	r := New(Options{Console: con, Sender: net, LinkUp: up})
	r.SetSeverity(types.SubsystemWLAN, types.LevelInfo)
	r.MarkRunning()

	r.Emit(types.SubsystemWLAN, types.LevelDebug, here, 0, "details")
	require.Empty(t, con.records())
	require.Empty(t, net.records())

	r.Emit(types.SubsystemWLAN, types.LevelError, here, 1, "link lost (%d)", -3)
	want := "\x1b[31m-E- C1 main.go:run.7\x1b[0m: link lost (-3)\n"
	assert.Equal(t, []string{want}, con.records())
	assert.Equal(t, []string{want}, net.records())
	assert.EqualValues(t, 1, r.Stats().Relayed)
}

func TestEmit_LinkDownSkipsNetwork(t *testing.T) {
	con, net := &recSink{}, &recSink{}
	r := New(Options{Console: con, Sender: net, LinkUp: down})

	r.Emit(types.SubsystemMain, types.LevelInfo, here, 0, "boot\n")

	assert.Equal(t, []string{"\x1b[32m-I- C0 main.go:run.7\x1b[0m: boot\n"}, con.records())
	assert.Empty(t, net.records())
}

func TestEmit_RelayFailureIsSwallowed(t *testing.T) {
	con := &recSink{}
	r := New(Options{Console: con, Sender: failingSender{}, LinkUp: up})

	r.Emit(types.SubsystemMain, types.LevelWarning, here, 0, "x")

	assert.Len(t, con.records(), 1)
	st := r.Stats()
	assert.EqualValues(t, 1, st.RelayFailures)
	assert.EqualValues(t, 0, st.Relayed)
	assert.EqualValues(t, 1, st.Emitted)
}

// ---- capacity ----

func TestEmit_NeverExceedsCapacityAndStaysTerminated(t *testing.T) {
	const capacity = 48
	con := &recSink{}
	r := New(Options{Console: con, Capacity: capacity, Defaults: types.LevelDebug})

	for _, n := range []int{0, 1, 10, 19, 20, 21, 47, 48, 49, 500} {
		payload := strings.Repeat("z", n)
		r.Emit(types.SubsystemApp, types.LevelDebug, here, 0, "%s", payload)

		recs := con.records()
		got := recs[len(recs)-1]
		require.LessOrEqual(t, len(got), capacity, "payload %d", n)
		require.True(t, strings.HasSuffix(got, "\n"), "payload %d: %q", n, got)
		require.Zero(t, r.buf[len(got)], "payload %d: missing terminator", n)
		require.Len(t, r.buf, capacity+1)
	}
	assert.NotZero(t, r.Stats().Truncated)
}

func TestEmit_ExactFitIsNotCountedAsTruncated(t *testing.T) {
	con := &recSink{}
	pre := "\x1b[32m-I- C0 main.go:run.7\x1b[0m: "
	r := New(Options{Console: con, Capacity: len(pre) + 4})

	r.Emit(types.SubsystemMain, types.LevelInfo, here, 0, "abc")

	assert.Equal(t, []string{pre + "abc\n"}, con.records())
	assert.Zero(t, r.Stats().Truncated)
}

// ---- concurrency ----

func TestEmit_ConcurrentProducersSeeWholeRecords(t *testing.T) {
	const producers, perProducer = 8, 200
	con, net := &recSink{}, &recSink{}
	r := New(Options{Console: con, Sender: net, LinkUp: up, LockWait: 5 * time.Second})
	r.MarkRunning()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for m := 0; m < perProducer; m++ {
				loc := Location{File: "worker.go", Func: "loop", Line: p}
				r.Emit(types.SubsystemApp, types.LevelInfo, loc, uint8(p%2), "p%d m%d %s", p, m, strings.Repeat("x", (p+m)%17))
			}
		}(p)
	}
	wg.Wait()

	re := regexp.MustCompile(`^\x1b\[32m-I- C([01]) worker\.go:loop\.(\d+)\x1b\[0m: p(\d+) m(\d+) (x*)\n$`)
	for _, sink := range [][]string{con.records(), net.records()} {
		require.Len(t, sink, producers*perProducer)
		seen := make(map[string]bool, len(sink))
		for _, rec := range sink {
			m := re.FindStringSubmatch(rec)
			require.NotNil(t, m, "malformed record %q", rec)
			p, _ := strconv.Atoi(m[3])
			n, _ := strconv.Atoi(m[4])
			require.Equal(t, m[2], m[3])
			require.Equal(t, strconv.Itoa(p%2), m[1])
			require.Len(t, m[5], (p+n)%17)
			seen[rec] = true
		}
		require.Len(t, seen, producers*perProducer)
	}
	assert.Zero(t, r.Stats().LockTimeouts)
}

func TestEmit_LockTimeoutDropsSilently(t *testing.T) {
	con := &recSink{}
	r := New(Options{Console: con, LockWait: 5 * time.Millisecond})
	r.MarkRunning()

	r.lock <- struct{}{} // another producer holds the buffer
	start := time.Now()
	r.Emit(types.SubsystemMain, types.LevelError, here, 0, "dropped")
	waited := time.Since(start)
	r.release()

	assert.Empty(t, con.records())
	assert.EqualValues(t, 1, r.Stats().LockTimeouts)
	assert.Less(t, waited, time.Second)

	r.Emit(types.SubsystemMain, types.LevelError, here, 0, "kept")
	assert.Len(t, con.records(), 1)
}

func TestEmit_BeforeRunningSkipsLock(t *testing.T) {
	con := &recSink{}
	r := New(Options{Console: con, LockWait: time.Millisecond})

	r.lock <- struct{}{} // would time out if the lock were taken
	r.Emit(types.SubsystemMain, types.LevelInfo, here, 0, "bring-up")
	r.release()

	assert.Len(t, con.records(), 1)
	assert.Zero(t, r.Stats().LockTimeouts)
}

// ---- deferred relay ----

func TestDeferredRelay_PumpSendsOutsideLock(t *testing.T) {
	con, net := &recSink{}, &recSink{}
	r := New(Options{Console: con, Sender: net, LinkUp: up, DeferRelay: true, QueueSize: 256})
	r.MarkRunning()

	for i := 0; i < 3; i++ {
		r.Emit(types.SubsystemMain, types.LevelInfo, here, 0, "n=%d", i)
	}
	assert.Len(t, con.records(), 3)
	assert.Empty(t, net.records(), "nothing is sent before the pump runs")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { r.Run(ctx); close(done) }()

	require.Eventually(t, func() bool { return len(net.records()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, con.records(), net.records())

	r.Emit(types.SubsystemMain, types.LevelInfo, here, 0, "late")
	require.Eventually(t, func() bool { return len(net.records()) == 4 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.EqualValues(t, 4, r.Stats().Relayed)
}

func TestDeferredRelay_FullQueueDropsWholeRecords(t *testing.T) {
	net := &recSink{}
	r := New(Options{Sender: net, LinkUp: up, DeferRelay: true, QueueSize: 64})

	for i := 0; i < 10; i++ {
		r.Emit(types.SubsystemMain, types.LevelInfo, here, 0, "record %d", i)
	}
	st := r.Stats()
	require.NotZero(t, st.RelayDrops)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	kept := 10 - int(st.RelayDrops)
	require.Eventually(t, func() bool { return len(net.records()) == kept }, time.Second, 5*time.Millisecond)
	for i, rec := range net.records() {
		assert.True(t, strings.HasSuffix(rec, fmt.Sprintf("record %d\n", i)), "%q", rec)
	}
}

func TestDeferredRelay_ConcurrentProducersKeepWholeRecordsInOrder(t *testing.T) {
	const producers, perProducer = 8, 300
	con, net := &recSink{}, &recSink{}
	r := New(Options{Console: con, Sender: net, LinkUp: up, LockWait: 5 * time.Second, DeferRelay: true})
	r.MarkRunning()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { r.Run(ctx); close(done) }()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for m := 0; m < perProducer; m++ {
				loc := Location{File: "worker.go", Func: "loop", Line: p}
				r.Emit(types.SubsystemApp, types.LevelInfo, loc, 0, "p%d m%d %s", p, m, strings.Repeat("y", (p*m)%23))
			}
		}(p)
	}
	wg.Wait()

	const total = producers * perProducer
	require.Eventually(t, func() bool {
		return len(net.records())+int(r.Stats().RelayDrops) == total
	}, 5*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	require.Len(t, con.records(), total)
	re := regexp.MustCompile(`^\x1b\[32m-I- C0 worker\.go:loop\.(\d+)\x1b\[0m: p(\d+) m(\d+) (y*)\n$`)
	sent := net.records()
	for _, rec := range sent {
		m := re.FindStringSubmatch(rec)
		require.NotNil(t, m, "malformed record %q", rec)
		require.Equal(t, m[1], m[2])
	}

	// The pump forwards frames in enqueue order, which is console order.
	ci := 0
	all := con.records()
	for _, rec := range sent {
		for ci < len(all) && all[ci] != rec {
			ci++
		}
		require.Less(t, ci, len(all), "record %q relayed out of order", rec)
		ci++
	}
	st := r.Stats()
	assert.EqualValues(t, len(sent), st.Relayed)
	assert.Zero(t, st.LockTimeouts)
}
