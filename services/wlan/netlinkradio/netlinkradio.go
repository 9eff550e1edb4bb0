// Package netlinkradio drives a TinyGo netlink device as the supervisor's
// radio and reports its status in the two-tier link codes.
package netlinkradio

import (
	"errors"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers/netlink"

	"devicelink-go/errcode"
	"devicelink-go/types"
)

// Radio adapts a netlink.Netlinker. Status is tracked from connect results
// and link events, so probing never touches the device.
type Radio struct {
	link    netlink.Netlinker
	country string
	ready   bool

	wifi  atomic.Int32
	tcpip atomic.Int32
}

func New(link netlink.Netlinker) *Radio {
	r := &Radio{link: link}
	r.set(types.WifiDown, types.TCPIPDown)
	return r
}

func (r *Radio) set(w types.WifiStatus, ip types.TCPIPStatus) {
	r.wifi.Store(int32(w))
	r.tcpip.Store(int32(ip))
}

func (r *Radio) WifiStatus() types.WifiStatus   { return types.WifiStatus(r.wifi.Load()) }
func (r *Radio) TCPIPStatus() types.TCPIPStatus { return types.TCPIPStatus(r.tcpip.Load()) }

// Reinitialize records the regulatory country and hooks link events.
func (r *Radio) Reinitialize(country string) error {
	if r.link == nil {
		return errcode.New(errcode.RadioInitFailed, "netlinkradio.Reinitialize", "no device")
	}
	r.country = country
	r.link.NetNotify(r.onEvent)
	r.ready = true
	return nil
}

func (r *Radio) onEvent(ev netlink.Event) {
	switch ev {
	case netlink.EventNetUp:
		r.set(types.WifiJoin, types.TCPIPUp)
	case netlink.EventNetDown:
		r.set(types.WifiDown, types.TCPIPDown)
	}
}

// EnableStationMode is implied by ConnectModeSTA on every connect.
func (r *Radio) EnableStationMode() {}

func authType(a types.AuthKind) netlink.AuthType {
	switch a {
	case types.AuthOpen:
		return netlink.AuthTypeOpen
	case types.AuthWPA:
		return netlink.AuthTypeWPA
	case types.AuthWPA2Mixed:
		return netlink.AuthTypeWPA2Mixed
	}
	return netlink.AuthTypeWPA2
}

// Connect makes a single join attempt bounded by timeout.
func (r *Radio) Connect(ssid, password string, auth types.AuthKind, timeout time.Duration) error {
	const op = "netlinkradio.Connect"
	if !r.ready {
		return errcode.New(errcode.NotReady, op, "radio not initialised")
	}
	r.set(types.WifiJoin, types.TCPIPJoin)
	err := r.link.NetConnect(&netlink.ConnectParams{
		ConnectMode:    netlink.ConnectModeSTA,
		Ssid:           ssid,
		Passphrase:     password,
		AuthType:       authType(auth),
		Country:        r.country,
		Retries:        1,
		ConnectTimeout: timeout,
	})
	if err != nil && !errors.Is(err, netlink.ErrConnected) {
		r.set(failureStatus(err), types.TCPIPDown)
		return errcode.Wrap(errcode.ConnectFailed, op, err)
	}
	r.set(types.WifiJoin, types.TCPIPUp)
	return nil
}

func failureStatus(err error) types.WifiStatus {
	switch {
	case errors.Is(err, netlink.ErrAuthFailure), errors.Is(err, netlink.ErrShortPassphrase):
		return types.WifiBadAuth
	case errors.Is(err, netlink.ErrMissingSSID):
		return types.WifiNoNet
	}
	return types.WifiFail
}

// Deinitialize drops the association; the next connect needs Reinitialize.
func (r *Radio) Deinitialize() {
	if r.link != nil && r.ready {
		r.link.NetDisconnect()
	}
	r.ready = false
	r.set(types.WifiDown, types.TCPIPDown)
}
