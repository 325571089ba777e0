package rtc

import (
	"strings"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// ClassifyTrack decides what an inbound track carries from its label and
// kind. There is no out-of-band signal for track purpose, so screen shares
// are recognized by the capture-surface names browsers and the desktop
// client put into stream ids.
func ClassifyTrack(label string, kind string) TrackKind {
	lowered := strings.ToLower(label)
	for _, marker := range []string{"screen", "display", "window"} {
		if strings.Contains(lowered, marker) {
			return TrackScreen
		}
	}
	if kind == "audio" {
		return TrackAudio
	}
	return TrackVideo
}

// peerConn is the slice of pion's PeerConnection the session drives,
// extracted so the buffering logic is testable without a live agent.
type peerConn interface {
	CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error)
	CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error)
	Close() error
}

// PeerSession owns the WebRTC connection toward one remote participant.
// Candidates arriving before the remote description are buffered and
// flushed in arrival order the moment the description lands; an ICE failure
// restarts ICE instead of tearing the session down.
type PeerSession struct {
	Remote ParticipantID

	mu        sync.Mutex
	pc        peerConn
	remoteSet bool
	pending   []webrtc.ICECandidateInit
	closed    bool
	enabled   map[TrackKind]bool

	onLocalCandidate func(webrtc.ICECandidateInit)
	onTrack          func(ParticipantID, TrackKind, *webrtc.TrackRemote)
	onRenegotiate    func(webrtc.SessionDescription)
}

// PeerConfig carries what a session needs to reach the outside world.
type PeerConfig struct {
	ICEServers []webrtc.ICEServer

	// OnLocalCandidate receives gathered candidates destined for the remote
	// peer via signaling.
	OnLocalCandidate func(webrtc.ICECandidateInit)
	// OnTrack fires once per classified inbound media track.
	OnTrack func(ParticipantID, TrackKind, *webrtc.TrackRemote)
	// OnRenegotiate receives the fresh offer produced by an ICE restart.
	OnRenegotiate func(webrtc.SessionDescription)
}

func NewPeerSession(remote ParticipantID, cfg PeerConfig) (*PeerSession, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: cfg.ICEServers,
	})
	if err != nil {
		return nil, err
	}

	s := newPeerSession(pc, remote)
	s.onLocalCandidate = cfg.OnLocalCandidate
	s.onTrack = cfg.OnTrack
	s.onRenegotiate = cfg.OnRenegotiate

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil || s.onLocalCandidate == nil {
			return
		}
		s.onLocalCandidate(candidate.ToJSON())
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		if s.onTrack == nil {
			return
		}
		kind := ClassifyTrack(track.StreamID(), track.Kind().String())
		s.onTrack(remote, kind, track)
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		if state == webrtc.ICEConnectionStateFailed {
			log.Warn().Uint("peer", uint(remote)).Msg("ICE failed, restarting negotiation...")
			s.RestartICE()
		}
	})

	return s, nil
}

func newPeerSession(pc peerConn, remote ParticipantID) *PeerSession {
	return &PeerSession{
		Remote: remote,
		pc:     pc,
		enabled: map[TrackKind]bool{
			TrackAudio:  true,
			TrackVideo:  true,
			TrackScreen: true,
		},
	}
}

// CreateOffer produces and installs a local offer for the caller to ship
// over signaling.
func (s *PeerSession) CreateOffer(iceRestart bool) (webrtc.SessionDescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return webrtc.SessionDescription{}, nil
	}

	var opts *webrtc.OfferOptions
	if iceRestart {
		opts = &webrtc.OfferOptions{ICERestart: true}
	}
	offer, err := s.pc.CreateOffer(opts)
	if err != nil {
		return offer, err
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return offer, err
	}
	return offer, nil
}

// HandleOffer applies a remote offer and produces the answer. Buffered
// candidates flush right after the remote description is in.
func (s *PeerSession) HandleOffer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return webrtc.SessionDescription{}, nil
	}

	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	s.remoteSet = true
	s.flushPendingLocked()

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return answer, err
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return answer, err
	}
	return answer, nil
}

// HandleAnswer applies the remote answer to our outstanding offer.
func (s *PeerSession) HandleAnswer(answer webrtc.SessionDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	if err := s.pc.SetRemoteDescription(answer); err != nil {
		return err
	}
	s.remoteSet = true
	s.flushPendingLocked()
	return nil
}

// AddRemoteCandidate feeds one candidate from signaling. Before the remote
// description lands the candidate is buffered, never dropped; afterwards it
// goes straight down.
func (s *PeerSession) AddRemoteCandidate(candidate webrtc.ICECandidateInit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	if !s.remoteSet {
		s.pending = append(s.pending, candidate)
		return nil
	}
	return s.pc.AddICECandidate(candidate)
}

func (s *PeerSession) flushPendingLocked() {
	for _, candidate := range s.pending {
		if err := s.pc.AddICECandidate(candidate); err != nil {
			log.Warn().Err(err).Uint("peer", uint(s.Remote)).Msg("Unable to apply a buffered ICE candidate...")
		}
	}
	s.pending = nil
}

// AddLocalTrack attaches an outbound track to the connection.
func (s *PeerSession) AddLocalTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil
	}
	return s.pc.AddTrack(track)
}

// SetTrackEnabled flips a local media toggle without renegotiating; the
// sample pumps consult Enabled before writing, so muting keeps the track
// and its transceiver alive.
func (s *PeerSession) SetTrackEnabled(kind TrackKind, enabled bool) {
	s.mu.Lock()
	s.enabled[kind] = enabled
	s.mu.Unlock()
}

func (s *PeerSession) Enabled(kind TrackKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled[kind]
}

// RestartICE produces an ICE-restart offer and hands it to the renegotiation
// callback for delivery; the session itself stays up.
func (s *PeerSession) RestartICE() {
	offer, err := s.CreateOffer(true)
	if err != nil {
		log.Error().Err(err).Uint("peer", uint(s.Remote)).Msg("Unable to create an ICE restart offer...")
		return
	}
	if s.onRenegotiate != nil {
		s.onRenegotiate(offer)
	}
}

// Close releases the underlying connection exactly once; every operation
// after it is a silent no-op.
func (s *PeerSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.pending = nil
	if err := s.pc.Close(); err != nil {
		log.Warn().Err(err).Uint("peer", uint(s.Remote)).Msg("Unable to close peer connection cleanly...")
	}
}
