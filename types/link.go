package types

// ---- Raw driver status codes ----
//
// Both tiers share the CYW43 numbering. Values outside the named set are
// representable on purpose: the supervisor must see them to take the fault path.

// WifiStatus is the radio association status.
type WifiStatus int

const (
	WifiDown    WifiStatus = 0
	WifiJoin    WifiStatus = 1
	WifiNoIP    WifiStatus = 2
	WifiUp      WifiStatus = 3
	WifiFail    WifiStatus = -1
	WifiNoNet   WifiStatus = -2
	WifiBadAuth WifiStatus = -3
)

// TCPIPStatus is the IP acquisition status of the station interface.
type TCPIPStatus int

const (
	TCPIPDown    TCPIPStatus = 0
	TCPIPJoin    TCPIPStatus = 1
	TCPIPNoIP    TCPIPStatus = 2
	TCPIPUp      TCPIPStatus = 3
	TCPIPFail    TCPIPStatus = -1
	TCPIPNoNet   TCPIPStatus = -2
	TCPIPBadAuth TCPIPStatus = -3
)

// ---- Derived link state ----

// LinkState is recomputed from the two raw codes on every evaluation.
type LinkState uint8

const (
	LinkDisconnected LinkState = iota
	LinkConnecting
	LinkJoinedNoIP
	LinkHealthy
	LinkFaulted
)

func (s LinkState) String() string {
	switch s {
	case LinkDisconnected:
		return "disconnected"
	case LinkConnecting:
		return "connecting"
	case LinkJoinedNoIP:
		return "joined_no_ip"
	case LinkHealthy:
		return "healthy"
	case LinkFaulted:
		return "faulted"
	}
	return "invalid"
}

// AuthKind selects the join security mode.
type AuthKind uint8

const (
	AuthWPA2AESPSK AuthKind = iota
	AuthOpen
	AuthWPA
	AuthWPA2Mixed
)

// ---- Retained state payload ----

// WLANState is published retained on "wlan/state" whenever the derived state changes.
type WLANState struct {
	State string `yaml:"state" json:"state"`
	Wifi  int    `yaml:"wifi" json:"wifi"`
	TCPIP int    `yaml:"tcpip" json:"tcpip"`
	TS    int64  `yaml:"ts_ms" json:"ts_ms"`
}
