package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Engine holds one call's client-side state: the lifecycle machine, the
// roster, and the local media toggles. Every mutation notifies subscribers
// synchronously before it returns, so the UI can never observe signaling
// ahead of state.
type Engine struct {
	mu sync.Mutex

	state     State
	callId    uint
	channelId *uint
	threadId  *uint

	roster *Roster

	localAudio  bool
	localVideo  bool
	localScreen bool

	lastErr error

	observers []func()
}

func NewEngine() *Engine {
	return &Engine{
		state:  StateIdle,
		roster: NewRoster(),
	}
}

// OnUpdate subscribes to every state or roster change. Callbacks run
// synchronously on the mutating goroutine and must not call back into the
// engine.
func (e *Engine) OnUpdate(fn func()) {
	e.mu.Lock()
	e.observers = append(e.observers, fn)
	e.mu.Unlock()
}

func (e *Engine) notifyLocked() {
	for _, fn := range e.observers {
		fn()
	}
}

// Transition moves the lifecycle. Invalid moves are rejected with a false
// return and a log line; the state stays put and nothing is notified.
// Entering ended clears the roster but keeps the call id around for the
// post-call screen; entering idle wipes everything.
func (e *Engine) Transition(to State) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.canEnter(to) {
		log.Warn().
			Str("from", e.state.String()).
			Str("to", to.String()).
			Msg("Rejected an invalid call state transition.")
		return false
	}

	e.state = to
	switch to {
	case StateEnded:
		e.roster.Clear()
	case StateIdle:
		e.callId = 0
		e.channelId = nil
		e.threadId = nil
		e.roster.Clear()
		e.localAudio = false
		e.localVideo = false
		e.localScreen = false
		e.lastErr = nil
	}

	e.notifyLocked()
	return true
}

// RingOutgoing binds the engine to a call this client is starting.
func (e *Engine) RingOutgoing(callId uint, channelId, threadId *uint) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.canEnter(StateRingingOutgoing) {
		return false
	}
	e.state = StateRingingOutgoing
	e.callId = callId
	e.channelId = channelId
	e.threadId = threadId
	e.notifyLocked()
	return true
}

// RingIncoming binds the engine to a call someone else is ringing us into.
func (e *Engine) RingIncoming(callId uint, channelId, threadId *uint) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.canEnter(StateRingingIncoming) {
		return false
	}
	e.state = StateRingingIncoming
	e.callId = callId
	e.channelId = channelId
	e.threadId = threadId
	e.notifyLocked()
	return true
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) CallID() uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callId
}

// Participant mutations only land while the call is live; anything else is
// stale signaling and gets dropped.

func (e *Engine) AddParticipant(id ParticipantID, nick string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Live() {
		return false
	}
	if _, fresh := e.roster.Insert(id, nick); !fresh {
		return false
	}
	e.notifyLocked()
	return true
}

func (e *Engine) RemoveParticipant(id ParticipantID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Live() {
		return false
	}
	if !e.roster.Remove(id) {
		return false
	}
	e.notifyLocked()
	return true
}

func (e *Engine) SetParticipantMedia(id ParticipantID, audio, video, screen bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Live() || !e.roster.SetMedia(id, audio, video, screen) {
		return false
	}
	e.notifyLocked()
	return true
}

func (e *Engine) SetParticipantStream(id ParticipantID, kind TrackKind, track *webrtc.TrackRemote) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Live() || !e.roster.SetStream(id, kind, track) {
		return false
	}
	e.notifyLocked()
	return true
}

func (e *Engine) SetParticipantSpeaking(id ParticipantID, speaking bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Live() || !e.roster.SetSpeaking(id, speaking) {
		return false
	}
	e.notifyLocked()
	return true
}

// SetLocalMedia records the local toggle flags; the peer layer applies them
// to actual tracks.
func (e *Engine) SetLocalMedia(audio, video, screen bool) {
	e.mu.Lock()
	e.localAudio = audio
	e.localVideo = video
	e.localScreen = screen
	e.notifyLocked()
	e.mu.Unlock()
}

func (e *Engine) LocalMedia() (audio, video, screen bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.localAudio, e.localVideo, e.localScreen
}

// Fail records the most recent error for the UI; it does not transition.
func (e *Engine) Fail(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.notifyLocked()
	e.mu.Unlock()
}

func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Participants snapshots the roster in insertion order.
func (e *Engine) Participants() []Participant {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.roster.List()
	out := make([]Participant, 0, len(list))
	for _, participant := range list {
		out = append(out, *participant)
	}
	return out
}
