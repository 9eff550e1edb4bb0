package wlan

import (
	"context"
	"time"

	"devicelink-go/bus"
	"devicelink-go/errcode"
	"devicelink-go/services/logrelay"
	"devicelink-go/types"
)

var topicConfigWLAN = bus.T("config", "wlan")

// TimerDriver posts WakeTimer on a fixed period and follows
// poll_interval_ms changes on "config/wlan".
type TimerDriver struct {
	period time.Duration
	post   func(WakeEvent) bool
	log    *logrelay.Logger
}

func NewTimerDriver(period time.Duration, post func(WakeEvent) bool, log *logrelay.Logger) (*TimerDriver, error) {
	if period <= 0 {
		return nil, errcode.New(errcode.InvalidParams, "wlan.NewTimerDriver", "period must be positive")
	}
	if post == nil {
		return nil, errcode.New(errcode.InvalidParams, "wlan.NewTimerDriver", "nil post func")
	}
	if log != nil {
		log = log.In("timer.go")
	}
	return &TimerDriver{period: period, post: post, log: log}, nil
}

func (d *TimerDriver) serviceLoop(ctx context.Context, conn *bus.Connection) {
	var cfgCh <-chan *bus.Message // nil blocks forever
	if conn != nil {
		cfgSub := conn.Subscribe(topicConfigWLAN)
		defer conn.Unsubscribe(cfgSub)
		cfgCh = cfgSub.Channel()
	}

	tick := time.NewTicker(d.period)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			// A pending tick absorbs this one.
			d.post(WakeTimer)
		case msg, ok := <-cfgCh:
			if !ok {
				cfgCh = nil
				continue
			}
			cfg, ok := msg.Payload.(types.WLANConfig)
			if !ok || cfg.PollIntervalMs <= 0 {
				continue
			}
			if p := time.Duration(cfg.PollIntervalMs) * time.Millisecond; p != d.period {
				d.period = p
				tick.Reset(p)
				if d.log != nil {
					d.log.At("serviceLoop", 67).Infof("Poll interval set to %d ms", cfg.PollIntervalMs)
				}
			}
		}
	}
}

// Start runs the timer until ctx is done.
func (d *TimerDriver) Start(ctx context.Context, conn *bus.Connection) error {
	go d.serviceLoop(ctx, conn)
	return nil
}
