package proto

import (
	"encoding/json"
	"time"
)

// SessionDescription mirrors the WebRTC session description JSON so the relay
// can pass it along untouched.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

type PresenceUpdate struct {
	AccountID  uint       `json:"account_id"`
	Status     string     `json:"status"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

type TypingUpdate struct {
	ChannelID *uint  `json:"channel_id,omitempty"`
	ThreadID  *uint  `json:"thread_id,omitempty"`
	AccountID uint   `json:"account_id"`
	Nick      string `json:"nick,omitempty"`
}

type CallRinging struct {
	CallID    uint   `json:"call_id"`
	Room      string `json:"room"`
	ChannelID *uint  `json:"channel_id,omitempty"`
	ThreadID  *uint  `json:"thread_id,omitempty"`
	FromID    uint   `json:"from_id"`
	FromNick  string `json:"from_nick,omitempty"`
}

type CallDeclined struct {
	CallID    uint `json:"call_id"`
	AccountID uint `json:"account_id"`
}

type CallParticipantUpdate struct {
	CallID    uint   `json:"call_id"`
	AccountID uint   `json:"account_id"`
	Nick      string `json:"nick,omitempty"`
}

// CallRoster is pushed to an account right after it joins a call: joined
// events only reach accounts already inside the call room, so the snapshot
// is how a joiner learns who is there, itself included.
type CallRoster struct {
	CallID       uint              `json:"call_id"`
	Participants []CallRosterEntry `json:"participants"`
}

type CallRosterEntry struct {
	AccountID uint   `json:"account_id"`
	Nick      string `json:"nick,omitempty"`
}

type CallSignal struct {
	CallID uint               `json:"call_id"`
	FromID uint               `json:"from_id"`
	SDP    SessionDescription `json:"sdp"`
}

type CallCandidateSignal struct {
	CallID    uint            `json:"call_id"`
	FromID    uint            `json:"from_id"`
	Candidate json.RawMessage `json:"candidate"`
}

type CallMediaUpdate struct {
	CallID    uint `json:"call_id"`
	AccountID uint `json:"account_id"`
	Audio     bool `json:"audio"`
	Video     bool `json:"video"`
	Screen    bool `json:"screen"`
}

type CallEnded struct {
	CallID   uint    `json:"call_id"`
	Duration float64 `json:"duration,omitempty"`
}
