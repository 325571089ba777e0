// Package rtc is the client-side call engine: a call lifecycle state
// machine, a participant roster, one peer session per remote party, and the
// signaling socket that feeds them.
package rtc

import "github.com/samber/lo"

// State is one step of a call's lifecycle on this client.
type State uint8

const (
	StateIdle State = iota
	StateRingingOutgoing
	StateRingingIncoming
	StateConnecting
	StateInCall
	StateReconnecting
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRingingOutgoing:
		return "ringing_outgoing"
	case StateRingingIncoming:
		return "ringing_incoming"
	case StateConnecting:
		return "connecting"
	case StateInCall:
		return "in_call"
	case StateReconnecting:
		return "reconnecting"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// transitions is the closed lifecycle graph; anything not listed here is
// rejected. Ringing and connecting states can always fall straight to
// ended (remote hangup, signaling loss), and ended only leads back to idle
// through an explicit reset.
var transitions = map[State][]State{
	StateIdle:            {StateRingingOutgoing, StateRingingIncoming},
	StateRingingOutgoing: {StateConnecting, StateEnded},
	StateRingingIncoming: {StateConnecting, StateIdle, StateEnded},
	StateConnecting:      {StateInCall, StateEnded},
	StateInCall:          {StateReconnecting, StateEnded},
	StateReconnecting:    {StateInCall, StateEnded},
	StateEnded:           {StateIdle},
}

func (s State) canEnter(to State) bool {
	return lo.Contains(transitions[s], to)
}

// Live reports whether participant mutations are meaningful in this state.
func (s State) Live() bool {
	return s == StateConnecting || s == StateInCall || s == StateReconnecting
}
