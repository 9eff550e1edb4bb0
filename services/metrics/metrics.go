//go:build !tinygo

// Package metrics exposes the relay, supervisor, time client and log
// sender counters to Prometheus. Values are read at scrape time from the
// components' own Stats snapshots; nothing is double counted.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"devicelink-go/services/logrelay"
	"devicelink-go/services/sntp"
	"devicelink-go/services/udplog"
	"devicelink-go/services/wlan"
	"devicelink-go/types"
)

const namespace = "devicelink"

// Sources are the snapshot funcs scraped on every collection. Nil entries
// are skipped.
type Sources struct {
	Relay    func() logrelay.Stats
	Link     func() wlan.Stats
	TimeSync func() sntp.Stats
	Sender   func() udplog.Stats
	Severity func() [types.NumSubsystems]types.Level
}

type Collector struct {
	src Sources

	logRecords   *prometheus.Desc
	linkEvents   *prometheus.Desc
	linkState    *prometheus.Desc
	linkUp       *prometheus.Desc
	timeSyncs    *prometheus.Desc
	timeOffset   *prometheus.Desc
	timeRunning  *prometheus.Desc
	udpDatagrams *prometheus.Desc
	severity     *prometheus.Desc
}

func NewCollector(src Sources) *Collector {
	d := func(sub, name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, sub, name), help, labels, nil)
	}
	return &Collector{
		src:          src,
		logRecords:   d("log", "records_total", "Log records by outcome.", "outcome"),
		linkEvents:   d("wlan", "events_total", "Supervisor events by kind.", "event"),
		linkState:    d("wlan", "state", "1 for the current derived link state.", "state"),
		linkUp:       d("wlan", "connected", "1 while the link is usable."),
		timeSyncs:    d("sntp", "queries_total", "SNTP queries by result.", "result"),
		timeOffset:   d("sntp", "offset_seconds", "Last measured clock offset."),
		timeRunning:  d("sntp", "running", "1 while the time client is polling."),
		udpDatagrams: d("udplog", "datagrams_total", "Relayed datagrams by outcome.", "outcome"),
		severity:     d("log", "threshold", "Current severity threshold per subsystem.", "subsystem"),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.logRecords, c.linkEvents, c.linkState, c.linkUp,
		c.timeSyncs, c.timeOffset, c.timeRunning, c.udpDatagrams, c.severity,
	} {
		ch <- d
	}
}

func counter(ch chan<- prometheus.Metric, d *prometheus.Desc, v uint64, label string) {
	ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), label)
}

func gauge(ch chan<- prometheus.Metric, d *prometheus.Desc, v float64, labels ...string) {
	ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.src.Relay != nil {
		s := c.src.Relay()
		counter(ch, c.logRecords, s.Emitted, "emitted")
		counter(ch, c.logRecords, s.Gated, "gated")
		counter(ch, c.logRecords, s.LockTimeouts, "lock_timeout")
		counter(ch, c.logRecords, s.Truncated, "truncated")
		counter(ch, c.logRecords, s.Relayed, "relayed")
		counter(ch, c.logRecords, s.RelayFailures, "relay_failed")
		counter(ch, c.logRecords, s.RelayDrops, "relay_dropped")
	}
	if c.src.Link != nil {
		s := c.src.Link()
		counter(ch, c.linkEvents, s.Ticks, "tick")
		counter(ch, c.linkEvents, s.Reconnects, "reconnect")
		counter(ch, c.linkEvents, s.ConnectFailures, "connect_failure")
		counter(ch, c.linkEvents, s.Faults, "fault")
		counter(ch, c.linkEvents, s.RadioInitFailures, "radio_init_failure")
		counter(ch, c.linkEvents, s.UnknownWakes, "unknown_wake")
		for st := types.LinkDisconnected; st <= types.LinkFaulted; st++ {
			gauge(ch, c.linkState, b2f(st == s.State), st.String())
		}
		gauge(ch, c.linkUp, b2f(s.Connected))
	}
	if c.src.TimeSync != nil {
		s := c.src.TimeSync()
		counter(ch, c.timeSyncs, s.Syncs, "ok")
		counter(ch, c.timeSyncs, s.Failures, "failed")
		gauge(ch, c.timeOffset, s.LastOffset.Seconds())
		gauge(ch, c.timeRunning, b2f(s.Enabled))
	}
	if c.src.Sender != nil {
		s := c.src.Sender()
		counter(ch, c.udpDatagrams, s.Sent, "sent")
		counter(ch, c.udpDatagrams, s.Failed, "failed")
		counter(ch, c.udpDatagrams, s.Limited, "rate_limited")
	}
	if c.src.Severity != nil {
		for sub, lvl := range c.src.Severity() {
			gauge(ch, c.severity, float64(lvl), types.Subsystem(sub).String())
		}
	}
}

// Handler registers c on a fresh registry and serves it.
func Handler(c *Collector) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}
