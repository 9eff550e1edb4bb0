package wlan

import "devicelink-go/types"

// Probe is one evaluation's raw codes. TCPIP is only meaningful when
// HasTCPIP is set; the IP tier is queried only while the radio reports Join.
type Probe struct {
	Wifi     types.WifiStatus
	TCPIP    types.TCPIPStatus
	HasTCPIP bool
}

// Actions is a set of side effects the supervisor carries out after an
// evaluation, in the order the constants are declared.
type Actions uint8

const (
	ActStopTimeSync Actions = 1 << iota
	ActDeinit
	ActPublish
	ActConnect

	ActNone Actions = 0
)

func (a Actions) Has(x Actions) bool { return a&x == x }

// Classify derives the link state from the two raw tiers.
func Classify(p Probe) types.LinkState {
	switch p.Wifi {
	case types.WifiDown, types.WifiFail, types.WifiNoNet, types.WifiBadAuth:
		return types.LinkDisconnected
	case types.WifiJoin:
		if !p.HasTCPIP {
			return types.LinkFaulted
		}
		switch p.TCPIP {
		case types.TCPIPUp:
			return types.LinkHealthy
		case types.TCPIPJoin:
			return types.LinkConnecting
		case types.TCPIPDown, types.TCPIPNoIP, types.TCPIPFail, types.TCPIPNoNet, types.TCPIPBadAuth:
			return types.LinkJoinedNoIP
		}
	}
	// Anything else, including radio codes that never belong to the
	// association tier, is a fault.
	return types.LinkFaulted
}

// Plan maps a state to its actions. Every state but Healthy needs a
// reconnect; Faulted first tears the radio down.
func Plan(s types.LinkState) Actions {
	switch s {
	case types.LinkHealthy:
		return ActNone
	case types.LinkDisconnected, types.LinkConnecting, types.LinkJoinedNoIP:
		return ActConnect
	}
	return ActStopTimeSync | ActDeinit | ActConnect
}

// Step is the transition function: the next state depends only on the
// probe; prev only decides whether the change is published.
func Step(prev types.LinkState, p Probe) (types.LinkState, Actions) {
	next := Classify(p)
	acts := Plan(next)
	if next != prev {
		acts |= ActPublish
	}
	return next, acts
}
