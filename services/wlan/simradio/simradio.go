// Package simradio is a host stand-in for the wireless interface. It serves
// one access point, joins after a delay and can drop or corrupt the link on
// demand so the supervisor's paths can be exercised without hardware.
package simradio

import (
	"math/rand"
	"sync"
	"time"

	"devicelink-go/errcode"
	"devicelink-go/types"
)

type Options struct {
	SSID     string // network the simulated access point serves
	Password string

	JoinDelay time.Duration // time a join takes, capped by the connect timeout
	FailRate  float64       // probability in [0,1] that a join attempt fails
	DropAfter time.Duration // link goes down this long after each join; 0 never
	Seed      int64
}

type Radio struct {
	mu       sync.Mutex
	opts     Options
	rng      *rand.Rand
	now      func() time.Time
	sleep    func(time.Duration)
	ready    bool
	country  string
	wifi     types.WifiStatus
	tcpip    types.TCPIPStatus
	joinedAt time.Time

	joins, failures, deinits int
}

func New(opts Options) *Radio {
	return &Radio{
		opts:  opts,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		now:   time.Now,
		sleep: time.Sleep,
		wifi:  types.WifiDown,
		tcpip: types.TCPIPDown,
	}
}

// ---- LinkStatusProbe ----

func (r *Radio) WifiStatus() types.WifiStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expire()
	return r.wifi
}

func (r *Radio) TCPIPStatus() types.TCPIPStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expire()
	return r.tcpip
}

func (r *Radio) expire() {
	if r.opts.DropAfter <= 0 || r.wifi != types.WifiJoin || r.joinedAt.IsZero() {
		return
	}
	if r.now().Sub(r.joinedAt) >= r.opts.DropAfter {
		r.wifi, r.tcpip = types.WifiDown, types.TCPIPDown
		r.joinedAt = time.Time{}
	}
}

// Inject forces the next status reads, including codes no driver would
// report.
func (r *Radio) Inject(w types.WifiStatus, ip types.TCPIPStatus) {
	r.mu.Lock()
	r.wifi, r.tcpip = w, ip
	r.joinedAt = time.Time{}
	r.mu.Unlock()
}

// ---- RadioControl ----

func (r *Radio) Reinitialize(country string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if country == "" {
		return errcode.New(errcode.RadioInitFailed, "simradio.Reinitialize", "empty country")
	}
	r.country = country
	r.ready = true
	return nil
}

func (r *Radio) EnableStationMode() {}

func (r *Radio) Connect(ssid, password string, auth types.AuthKind, timeout time.Duration) error {
	const op = "simradio.Connect"
	r.mu.Lock()
	if !r.ready {
		r.mu.Unlock()
		return errcode.New(errcode.NotReady, op, "radio not initialised")
	}
	r.joins++
	r.wifi, r.tcpip = types.WifiJoin, types.TCPIPJoin
	delay := r.opts.JoinDelay
	r.mu.Unlock()

	if delay > timeout {
		delay = timeout
	}
	if delay > 0 {
		r.sleep(delay)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.opts.JoinDelay > timeout:
		r.wifi = types.WifiFail
	case ssid != r.opts.SSID:
		r.wifi = types.WifiNoNet
	case auth != types.AuthOpen && password != r.opts.Password:
		r.wifi = types.WifiBadAuth
	case r.opts.FailRate > 0 && r.rng.Float64() < r.opts.FailRate:
		r.wifi = types.WifiFail
	default:
		r.tcpip = types.TCPIPUp
		r.joinedAt = r.now()
		return nil
	}
	r.failures++
	r.tcpip = types.TCPIPDown
	return errcode.New(errcode.ConnectFailed, op, "join failed with status "+statusName(r.wifi))
}

func (r *Radio) Deinitialize() {
	r.mu.Lock()
	r.ready = false
	r.deinits++
	r.wifi, r.tcpip = types.WifiDown, types.TCPIPDown
	r.joinedAt = time.Time{}
	r.mu.Unlock()
}

// Counts reports joins attempted, joins failed and deinitialisations.
func (r *Radio) Counts() (joins, failures, deinits int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joins, r.failures, r.deinits
}

func statusName(w types.WifiStatus) string {
	switch w {
	case types.WifiFail:
		return "fail"
	case types.WifiNoNet:
		return "nonet"
	case types.WifiBadAuth:
		return "badauth"
	}
	return "unknown"
}
