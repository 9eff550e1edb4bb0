//go:build !tinygo

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"devicelink-go/bus"
	"devicelink-go/services/config"
	"devicelink-go/services/config/watch"
	"devicelink-go/services/logrelay"
	"devicelink-go/services/metrics"
	"devicelink-go/services/sntp"
	"devicelink-go/services/udplog"
	"devicelink-go/services/wlan"
	"devicelink-go/services/wlan/simradio"
	"devicelink-go/types"
)

func run(parent context.Context, o options) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}

	e, err := loadEnv(o.envFile)
	if err != nil {
		return err
	}

	// ---- configuration ----
	b := bus.NewBus(16)
	cfgConn := b.NewConnection("config")
	devCtx := context.WithValue(ctx, config.CtxDeviceKey, o.device)
	if err := config.NewConfigService().Start(devCtx, cfgConn); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if o.configFile != "" {
		w, err := watch.New(o.configFile, cfgConn, logrus.StandardLogger())
		if err != nil {
			return err
		}
		if err := w.Reload(); err != nil {
			return err
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	raw, _ := config.Lookup[types.WLANConfig](cfgConn, "wlan")
	if e.SSID != "" {
		raw.SSID, raw.Password = e.SSID, e.Password
	}
	if e.LogPort != 0 {
		raw.LogPort = uint16(e.LogPort)
	}
	wcfg := wlan.ConfigFrom(raw)

	// ---- collaborators ----
	radio := simradio.New(simOptions(cfgConn, wcfg, o))

	host := o.logHost
	if e.LogHost != "" {
		host = e.LogHost
	}
	sender := udplog.New(udplog.Options{Host: host})
	defer sender.Close()

	var sup *wlan.Supervisor
	relay := logrelay.New(logrelay.Options{
		Console:    os.Stdout,
		Sender:     sender,
		LinkUp:     func() bool { return sup != nil && sup.IsConnected() },
		DeferRelay: o.deferRelay,
	})
	sntpCfg, _ := config.Lookup[types.SNTPConfig](cfgConn, "sntp")
	ts := sntp.New(sntp.Options{
		Server: sntpCfg.Server,
		Log:    relay.Logger(types.SubsystemSNTP),
		Conn:   b.NewConnection("sntp"),
	})
	defer ts.Stop()

	sup, err = wlan.New(wcfg, wlan.Deps{
		Probe:       radio,
		Radio:       radio,
		TimeSync:    ts,
		SideChannel: sender,
		Log:         relay.Logger(types.SubsystemWLAN),
		Conn:        b.NewConnection("wlan"),
	})
	if err != nil {
		return err
	}

	if err := logrelay.NewService(relay).Start(gctx, b.NewConnection("log")); err != nil {
		return err
	}

	// ---- run ----
	relay.MarkRunning()
	g.Go(func() error { relay.Run(gctx); return nil })

	if err := sup.Initialize(gctx); err != nil {
		return err
	}
	relay.Logger(types.SubsystemMain).Infof("devicesim up: ssid=%q poll=%v relay=%s:%d", wcfg.SSID, wcfg.PollInterval, host, wcfg.LogPort)

	g.Go(func() error { followState(gctx, b.NewConnection("state")); return nil })

	if o.metrics != "" {
		h, err := metrics.Handler(metrics.NewCollector(metrics.Sources{
			Relay:    relay.Stats,
			Link:     sup.Stats,
			TimeSync: ts.Stats,
			Sender:   sender.Stats,
			Severity: relay.Table().Snapshot,
		}))
		if err != nil {
			return err
		}
		srv := &http.Server{Addr: o.metrics, Handler: h, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if o.faultAfter > 0 {
		g.Go(func() error {
			select {
			case <-gctx.Done():
			case <-time.After(o.faultAfter):
				logrus.Warn("injecting out-of-range radio status")
				radio.Inject(99, types.TCPIPUp)
			}
			return nil
		})
	}

	<-gctx.Done()
	sup.Shutdown()
	err = g.Wait()
	logrus.WithFields(logrus.Fields{
		"link":  sup.Stats(),
		"relay": relay.Stats(),
	}).Info("devicesim stopped")
	return err
}

// simOptions reads the optional "sim" config section; flags win when set.
func simOptions(conn *bus.Connection, w wlan.Config, o options) simradio.Options {
	opts := simradio.Options{SSID: w.SSID, Password: w.Password, Seed: time.Now().UnixNano()}
	if sec, ok := config.Lookup[map[string]any](conn, "sim"); ok {
		opts.JoinDelay = msField(sec, "join_delay_ms")
		opts.DropAfter = msField(sec, "drop_after_ms")
		if v, ok := sec["fail_rate"].(float64); ok {
			opts.FailRate = v
		}
	}
	if o.joinDelay >= 0 {
		opts.JoinDelay = o.joinDelay
	}
	if o.dropAfter >= 0 {
		opts.DropAfter = o.dropAfter
	}
	if o.failRate >= 0 {
		opts.FailRate = o.failRate
	}
	return opts
}

func msField(m map[string]any, key string) time.Duration {
	switch v := m[key].(type) {
	case int:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v * float64(time.Millisecond))
	}
	return 0
}

func followState(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(bus.T("wlan", "state"))
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub.Channel():
			if st, ok := msg.Payload.(types.WLANState); ok {
				logrus.WithFields(logrus.Fields{"wifi": st.Wifi, "tcpip": st.TCPIP}).Infof("link %s", st.State)
			}
		}
	}
}
