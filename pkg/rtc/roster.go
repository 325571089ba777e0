package rtc

import (
	"github.com/pion/webrtc/v4"
)

// ParticipantID is a validated remote participant handle; the zero value is
// never a real participant.
type ParticipantID uint

func (id ParticipantID) Valid() bool {
	return id > 0
}

// TrackKind classifies what a media track carries.
type TrackKind uint8

const (
	TrackAudio TrackKind = iota
	TrackVideo
	TrackScreen
)

func (k TrackKind) String() string {
	switch k {
	case TrackAudio:
		return "audio"
	case TrackVideo:
		return "video"
	case TrackScreen:
		return "screen"
	}
	return "unknown"
}

// Participant is one remote party's view state.
type Participant struct {
	ID   ParticipantID
	Nick string

	Audio  bool
	Video  bool
	Screen bool

	Speaking bool

	Stream       *webrtc.TrackRemote
	ScreenStream *webrtc.TrackRemote
}

// Roster is the owned table of remote participants. All mutation goes
// through its methods; callers never poke at a shared map. Iteration order
// is insertion order so UIs stay stable across updates.
type Roster struct {
	order []ParticipantID
	byID  map[ParticipantID]*Participant
}

func NewRoster() *Roster {
	return &Roster{
		byID: make(map[ParticipantID]*Participant),
	}
}

// Insert adds a participant; re-inserting an existing id hands back the
// current record unchanged.
func (r *Roster) Insert(id ParticipantID, nick string) (*Participant, bool) {
	if !id.Valid() {
		return nil, false
	}
	if existing, ok := r.byID[id]; ok {
		return existing, false
	}
	participant := &Participant{ID: id, Nick: nick}
	r.byID[id] = participant
	r.order = append(r.order, id)
	return participant, true
}

func (r *Roster) Remove(id ParticipantID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Roster) Get(id ParticipantID) (*Participant, bool) {
	participant, ok := r.byID[id]
	return participant, ok
}

func (r *Roster) SetMedia(id ParticipantID, audio, video, screen bool) bool {
	participant, ok := r.byID[id]
	if !ok {
		return false
	}
	participant.Audio = audio
	participant.Video = video
	participant.Screen = screen
	return true
}

func (r *Roster) SetStream(id ParticipantID, kind TrackKind, track *webrtc.TrackRemote) bool {
	participant, ok := r.byID[id]
	if !ok {
		return false
	}
	if kind == TrackScreen {
		participant.ScreenStream = track
	} else {
		participant.Stream = track
	}
	return true
}

func (r *Roster) SetSpeaking(id ParticipantID, speaking bool) bool {
	participant, ok := r.byID[id]
	if !ok {
		return false
	}
	participant.Speaking = speaking
	return true
}

// List yields participants in insertion order.
func (r *Roster) List() []*Participant {
	out := make([]*Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Roster) Len() int {
	return len(r.byID)
}

func (r *Roster) Clear() {
	r.order = nil
	r.byID = make(map[ParticipantID]*Participant)
}
