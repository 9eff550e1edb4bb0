package wlan

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"devicelink-go/bus"
	"devicelink-go/errcode"
	"devicelink-go/services/logrelay"
	"devicelink-go/types"
	"devicelink-go/x/timex"
)

// -----------------------------------------------------------------------------
// Collaborators
// -----------------------------------------------------------------------------

// LinkStatusProbe reports the two independent status tiers.
type LinkStatusProbe interface {
	WifiStatus() types.WifiStatus
	TCPIPStatus() types.TCPIPStatus
}

// RadioControl drives the wireless interface. Connect blocks for up to timeout.
type RadioControl interface {
	EnableStationMode()
	Connect(ssid, password string, auth types.AuthKind, timeout time.Duration) error
	Deinitialize()
	Reinitialize(country string) error
}

// TimeSync is the dependent time client. Both calls are idempotent.
type TimeSync interface {
	Start()
	Stop()
}

// SideChannel is opened after every successful join so diagnostics can be
// relayed.
type SideChannel interface {
	Open(port uint16) error
}

type Deps struct {
	Probe       LinkStatusProbe
	Radio       RadioControl
	TimeSync    TimeSync
	SideChannel SideChannel      // optional
	Log         *logrelay.Logger // required
	Conn        *bus.Connection  // optional; state is published here
}

// -----------------------------------------------------------------------------
// Wake events
// -----------------------------------------------------------------------------

type WakeEvent uint8

const (
	WakeTimer WakeEvent = iota + 1
	WakeShutdown
)

var topicState = bus.T("wlan", "state")

// linkUnset is outside every LinkState so the first evaluation always
// publishes.
const linkUnset types.LinkState = 0xFF

// Stats is a snapshot of the supervisor counters.
type Stats struct {
	Ticks             uint64
	Reconnects        uint64
	ConnectFailures   uint64
	Faults            uint64
	RadioInitFailures uint64
	UnknownWakes      uint64
	State             types.LinkState
	Connected         bool
	LastFault         error // LinkFault of the most recent fault, nil before any
}

// -----------------------------------------------------------------------------
// Supervisor
// -----------------------------------------------------------------------------

// Supervisor keeps the link usable and the time client in step with it.
// The radio is only ever touched from the run goroutine.
type Supervisor struct {
	cfg  Config
	deps Deps
	log  *logrelay.Logger

	wake    chan WakeEvent // capacity 1: a pending event absorbs new ones
	started atomic.Bool
	done    chan struct{}
	timer   *TimerDriver

	connected atomic.Bool
	state     atomic.Uint32 // last derived types.LinkState

	lastFault atomic.Pointer[errcode.E]

	// run goroutine only
	radioReady bool
	last       types.LinkState // linkUnset until the first evaluation

	ticks, reconnects, connectFailures atomic.Uint64
	faults, radioInitFailures          atomic.Uint64
	unknownWakes                       atomic.Uint64
}

func New(cfg Config, deps Deps) (*Supervisor, error) {
	const op = "wlan.New"
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if deps.Probe == nil || deps.Radio == nil || deps.TimeSync == nil || deps.Log == nil {
		return nil, errcode.New(errcode.InvalidParams, op, "probe, radio, timesync and log are required")
	}
	s := &Supervisor{
		cfg:  cfg,
		deps: deps,
		log:  deps.Log.In("supervisor.go"),
		wake: make(chan WakeEvent, 1),
		done: make(chan struct{}),
		last: linkUnset,
	}
	s.state.Store(uint32(types.LinkDisconnected))
	return s, nil
}

// Initialize starts the run goroutine and the periodic timer. It may be
// called once; a failure here is fatal to startup.
func (s *Supervisor) Initialize(ctx context.Context) error {
	const op = "wlan.Initialize"
	if !s.started.CompareAndSwap(false, true) {
		return errcode.New(errcode.AlreadyInit, op, "supervisor already running")
	}
	td, err := NewTimerDriver(s.cfg.PollInterval, s.Wake, s.log)
	if err != nil {
		return errcode.Wrap(errcode.StartupFailed, op, err)
	}
	s.timer = td
	go s.run(ctx)
	if err := td.Start(ctx, s.deps.Conn); err != nil {
		return errcode.Wrap(errcode.StartupFailed, op, err)
	}
	return nil
}

// Wake posts ev without blocking. It reports false when an earlier event is
// still pending, in which case ev is coalesced into it.
func (s *Supervisor) Wake(ev WakeEvent) bool {
	select {
	case s.wake <- ev:
		return true
	default:
		return false
	}
}

// Shutdown stops the run goroutine and waits for it. Host use only; the
// device never stops supervising.
func (s *Supervisor) Shutdown() {
	if !s.started.Load() {
		return
	}
	select {
	case s.wake <- WakeShutdown:
	case <-s.done:
		return
	}
	<-s.done
}

// IsConnected is safe from any goroutine.
func (s *Supervisor) IsConnected() bool { return s.connected.Load() }

func (s *Supervisor) State() types.LinkState { return types.LinkState(s.state.Load()) }

func (s *Supervisor) Stats() Stats {
	st := Stats{
		Ticks:             s.ticks.Load(),
		Reconnects:        s.reconnects.Load(),
		ConnectFailures:   s.connectFailures.Load(),
		Faults:            s.faults.Load(),
		RadioInitFailures: s.radioInitFailures.Load(),
		UnknownWakes:      s.unknownWakes.Load(),
		State:             s.State(),
		Connected:         s.IsConnected(),
	}
	if e := s.lastFault.Load(); e != nil {
		st.LastFault = e
	}
	return st
}

// ---- run goroutine ----

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)

	s.initRadio()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.wake:
			switch ev {
			case WakeTimer:
				s.tick()
			case WakeShutdown:
				s.log.At("run", 216).Infof("Supervisor stopping.")
				return
			default:
				s.unknownWakes.Add(1)
				s.log.At("run", 220).Errorf("Unknown wake event (%d)!", int(ev))
			}
		}
	}
}

func (s *Supervisor) initRadio() bool {
	if err := s.deps.Radio.Reinitialize(s.cfg.Country); err != nil {
		s.radioInitFailures.Add(1)
		s.log.At("initRadio", 229).Infof("Failed to initialise.")
		s.radioReady = false
		return false
	}
	s.radioReady = true
	return true
}

// evaluateLink queries the radio tier and, only while it reports Join, the
// IP tier.
func (s *Supervisor) evaluateLink() Probe {
	p := Probe{Wifi: s.deps.Probe.WifiStatus()}
	if p.Wifi == types.WifiJoin {
		p.TCPIP = s.deps.Probe.TCPIPStatus()
		p.HasTCPIP = true
	}
	return p
}

func (s *Supervisor) tick() {
	s.ticks.Add(1)
	p := s.evaluateLink()
	next, acts := Step(s.last, p)
	if next == types.LinkFaulted {
		s.faults.Add(1)
		s.lastFault.Store(linkFault(p))
		if p.HasTCPIP {
			s.log.At("tick", 256).Errorf("Unknown tcpip_link_status (%d)!", int(p.TCPIP))
		} else {
			s.log.At("tick", 258).Errorf("Unknown wifi_link_status (%d)!", int(p.Wifi))
		}
	}
	s.apply(next, p, acts)
}

// linkFault describes the code that sent the link to Faulted.
func linkFault(p Probe) *errcode.E {
	const op = "wlan.tick"
	if p.HasTCPIP {
		return errcode.New(errcode.LinkFault, op, "tcpip_link_status "+strconv.Itoa(int(p.TCPIP)))
	}
	return errcode.New(errcode.LinkFault, op, "wifi_link_status "+strconv.Itoa(int(p.Wifi)))
}

func (s *Supervisor) apply(next types.LinkState, p Probe, acts Actions) {
	s.last = next
	s.state.Store(uint32(next))
	s.connected.Store(next == types.LinkHealthy)

	if acts.Has(ActStopTimeSync) {
		s.deps.TimeSync.Stop()
	}
	if acts.Has(ActDeinit) {
		s.deps.Radio.Deinitialize()
		s.radioReady = false
	}
	if acts.Has(ActPublish) {
		s.publish(next, p)
	}
	if acts.Has(ActConnect) {
		s.connect()
	}
}

func (s *Supervisor) connect() {
	s.reconnects.Add(1)
	if !s.radioReady && !s.initRadio() {
		return
	}
	r := s.deps.Radio
	r.EnableStationMode()
	s.log.At("connect", 300).Infof("Connecting to Wi-Fi...")
	if err := r.Connect(s.cfg.SSID, s.cfg.Password, s.cfg.Auth, s.cfg.ConnectTimeout); err != nil {
		s.connectFailures.Add(1)
		s.log.At("connect", 303).Infof("Failed to connect.")
		s.log.At("connect", 304).Debugf("connect: %v", err)
		r.Deinitialize()
		s.radioReady = false
		s.connected.Store(false)
		s.deps.TimeSync.Stop()
		return
	}
	s.log.At("connect", 311).Infof("Connected.")
	s.connected.Store(true)
	if sc := s.deps.SideChannel; sc != nil {
		if err := sc.Open(s.cfg.LogPort); err != nil {
			s.log.At("connect", 315).Warnf("Log channel not opened: %v", err)
		}
	}
	s.deps.TimeSync.Start()
}

func (s *Supervisor) publish(st types.LinkState, p Probe) {
	if s.deps.Conn == nil {
		return
	}
	s.deps.Conn.Publish(s.deps.Conn.NewMessage(topicState, types.WLANState{
		State: st.String(),
		Wifi:  int(p.Wifi),
		TCPIP: int(p.TCPIP),
		TS:    timex.NowMs(),
	}, true))
}
