//go:build !tinygo

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devicelink-go/services/logrelay"
	"devicelink-go/services/sntp"
	"devicelink-go/services/wlan"
	"devicelink-go/types"
)

func testSources() Sources {
	return Sources{
		Relay: func() logrelay.Stats { return logrelay.Stats{Emitted: 7, Gated: 3, LockTimeouts: 1} },
		Link: func() wlan.Stats {
			return wlan.Stats{Ticks: 10, Reconnects: 2, State: types.LinkHealthy, Connected: true}
		},
		TimeSync: func() sntp.Stats { return sntp.Stats{Syncs: 4, LastOffset: 250 * time.Millisecond, Enabled: true} },
	}
}

func TestCollector_Values(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(testSources())))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, l := range m.GetLabel() {
				key += "{" + l.GetValue() + "}"
			}
			if m.GetCounter() != nil {
				values[key] = m.GetCounter().GetValue()
			} else {
				values[key] = m.GetGauge().GetValue()
			}
		}
	}

	assert.Equal(t, 7.0, values["devicelink_log_records_total{emitted}"])
	assert.Equal(t, 3.0, values["devicelink_log_records_total{gated}"])
	assert.Equal(t, 10.0, values["devicelink_wlan_events_total{tick}"])
	assert.Equal(t, 1.0, values["devicelink_wlan_state{healthy}"])
	assert.Equal(t, 0.0, values["devicelink_wlan_state{faulted}"])
	assert.Equal(t, 1.0, values["devicelink_wlan_connected"])
	assert.Equal(t, 0.25, values["devicelink_sntp_offset_seconds"])
	_, hasUDP := values["devicelink_udplog_datagrams_total{sent}"]
	assert.False(t, hasUDP, "nil sources are skipped")
}

func TestHandler_Serves(t *testing.T) {
	h, err := Handler(NewCollector(testSources()))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `devicelink_wlan_events_total{event="reconnect"} 2`)
}
