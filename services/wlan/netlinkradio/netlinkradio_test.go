package netlinkradio

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers/netlink"

	"devicelink-go/errcode"
	"devicelink-go/types"
)

type fakeLink struct {
	params      *netlink.ConnectParams
	err         error
	disconnects int
	notify      func(netlink.Event)
}

func (f *fakeLink) NetConnect(p *netlink.ConnectParams) error { f.params = p; return f.err }
func (f *fakeLink) NetDisconnect()                            { f.disconnects++ }
func (f *fakeLink) NetNotify(cb func(netlink.Event))          { f.notify = cb }
func (f *fakeLink) GetHardwareAddr() (net.HardwareAddr, error) {
	return net.HardwareAddr{0, 1, 2, 3, 4, 5}, nil
}

func TestConnect_PassesParamsAndReportsUp(t *testing.T) {
	link := &fakeLink{}
	r := New(link)
	require.NoError(t, r.Reinitialize("DE"))

	require.NoError(t, r.Connect("lab", "secret123", types.AuthWPA2AESPSK, 30*time.Second))

	require.NotNil(t, link.params)
	assert.Equal(t, "lab", link.params.Ssid)
	assert.Equal(t, "secret123", link.params.Passphrase)
	assert.Equal(t, "DE", link.params.Country)
	assert.Equal(t, 30*time.Second, link.params.ConnectTimeout)
	assert.EqualValues(t, netlink.AuthTypeWPA2, link.params.AuthType)
	assert.EqualValues(t, netlink.ConnectModeSTA, link.params.ConnectMode)
	assert.Equal(t, types.WifiJoin, r.WifiStatus())
	assert.Equal(t, types.TCPIPUp, r.TCPIPStatus())
}

func TestConnect_FailureMapsStatus(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want types.WifiStatus
	}{
		{netlink.ErrAuthFailure, types.WifiBadAuth},
		{netlink.ErrMissingSSID, types.WifiNoNet},
		{netlink.ErrConnectTimeout, types.WifiFail},
	} {
		link := &fakeLink{err: tc.err}
		r := New(link)
		require.NoError(t, r.Reinitialize("DE"))

		err := r.Connect("lab", "pw", types.AuthWPA2AESPSK, time.Second)
		assert.Equal(t, errcode.ConnectFailed, errcode.Of(err))
		assert.ErrorIs(t, err, tc.err)
		assert.Equal(t, tc.want, r.WifiStatus())
	}
}

func TestConnect_RequiresInit(t *testing.T) {
	r := New(&fakeLink{})
	err := r.Connect("lab", "pw", types.AuthOpen, time.Second)
	assert.Equal(t, errcode.NotReady, errcode.Of(err))

	assert.Equal(t, errcode.RadioInitFailed, errcode.Of(New(nil).Reinitialize("DE")))
}

func TestEventsAndDeinit(t *testing.T) {
	link := &fakeLink{}
	r := New(link)
	require.NoError(t, r.Reinitialize("DE"))
	require.NotNil(t, link.notify)

	link.notify(netlink.EventNetUp)
	assert.Equal(t, types.TCPIPUp, r.TCPIPStatus())
	link.notify(netlink.EventNetDown)
	assert.Equal(t, types.WifiDown, r.WifiStatus())

	r.Deinitialize()
	r.Deinitialize()
	assert.Equal(t, 1, link.disconnects)
	assert.Error(t, r.Connect("lab", "pw", types.AuthOpen, time.Second))
}
