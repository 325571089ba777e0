package rtc

import (
	"encoding/json"
	"sync"

	"github.com/banterhq/banter/pkg/proto"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// CallController binds the signaling connection to the call engine: server
// events mutate engine state and drive one PeerSession per remote
// participant, local operations go out as gateway packets. All dispatch
// happens on the signal client's read loop, so handlers never race each
// other.
type CallController struct {
	mu sync.Mutex

	signal *SignalClient
	engine *Engine
	self   ParticipantID

	iceServers  []webrtc.ICEServer
	peers       map[ParticipantID]*PeerSession
	localTracks []webrtc.TrackLocal
}

func NewCallController(signal *SignalClient, engine *Engine, self ParticipantID, iceServers []webrtc.ICEServer) *CallController {
	ctrl := &CallController{
		signal:     signal,
		engine:     engine,
		self:       self,
		iceServers: iceServers,
		peers:      make(map[ParticipantID]*PeerSession),
	}
	signal.OnPacket(ctrl.dispatch)
	return ctrl
}

// AddLocalTrack registers an outbound track; it is attached to every
// current and future peer session.
func (ctrl *CallController) AddLocalTrack(track webrtc.TrackLocal) {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	ctrl.localTracks = append(ctrl.localTracks, track)
	for id, peer := range ctrl.peers {
		if _, err := peer.AddLocalTrack(track); err != nil {
			log.Warn().Err(err).Uint("peer", uint(id)).Msg("Unable to attach a local track...")
		}
	}
}

// StartCall transitions into an outgoing ring for a call the account just
// created over the REST surface.
func (ctrl *CallController) StartCall(callId uint, channelId, threadId *uint) {
	ctrl.engine.RingOutgoing(callId, channelId, threadId)
	ctrl.Join(callId)
}

// Join asks the gateway for membership in the call; the roster fills in as
// participant events arrive.
func (ctrl *CallController) Join(callId uint) {
	ctrl.engine.Transition(StateConnecting)
	ctrl.signal.Send(proto.Packet{
		Action:  proto.ActionCallJoin,
		Payload: proto.CallJoin{CallID: callId},
	})
}

// Decline rejects an incoming ring without ever joining.
func (ctrl *CallController) Decline(callId uint) {
	ctrl.signal.Send(proto.Packet{
		Action:  proto.ActionCallDecline,
		Payload: proto.CallDecline{CallID: callId},
	})
	ctrl.engine.Transition(StateIdle)
}

// Hangup leaves the call and tears down every peer session.
func (ctrl *CallController) Hangup() {
	callId := ctrl.engine.CallID()
	if callId != 0 {
		ctrl.signal.Send(proto.Packet{
			Action:  proto.ActionCallLeave,
			Payload: proto.CallLeave{CallID: callId},
		})
	}
	ctrl.closePeers()
	ctrl.engine.Transition(StateEnded)
}

// SetMedia flips the local mute toggles and announces them to the room.
// Tracks stay attached, only the flags travel.
func (ctrl *CallController) SetMedia(audio, video, screen bool) {
	ctrl.engine.SetLocalMedia(audio, video, screen)

	ctrl.mu.Lock()
	for _, peer := range ctrl.peers {
		peer.SetTrackEnabled(TrackAudio, audio)
		peer.SetTrackEnabled(TrackVideo, video)
		peer.SetTrackEnabled(TrackScreen, screen)
	}
	ctrl.mu.Unlock()

	callId := ctrl.engine.CallID()
	if callId == 0 {
		return
	}
	ctrl.signal.Send(proto.Packet{
		Action: proto.ActionCallMedia,
		Payload: proto.CallMedia{
			CallID: callId,
			Audio:  audio,
			Video:  video,
			Screen: screen,
		},
	})
}

func (ctrl *CallController) dispatch(pkt proto.Packet) {
	switch pkt.Action {
	case proto.EventCallRinging:
		var payload proto.CallRinging
		if proto.DecodePayload(pkt.Payload, &payload) == nil {
			ctrl.engine.RingIncoming(payload.CallID, payload.ChannelID, payload.ThreadID)
		}
	case proto.EventCallRoster:
		var payload proto.CallRoster
		if proto.DecodePayload(pkt.Payload, &payload) == nil {
			ctrl.handleRoster(payload)
		}
	case proto.EventCallParticipantJoined:
		var payload proto.CallParticipantUpdate
		if proto.DecodePayload(pkt.Payload, &payload) == nil {
			ctrl.handleParticipantJoined(payload)
		}
	case proto.EventCallParticipantLeft:
		var payload proto.CallParticipantUpdate
		if proto.DecodePayload(pkt.Payload, &payload) == nil {
			ctrl.handleParticipantLeft(payload)
		}
	case proto.ActionCallOffer:
		var payload proto.CallSignal
		if proto.DecodePayload(pkt.Payload, &payload) == nil {
			ctrl.handleOffer(payload)
		}
	case proto.ActionCallAnswer:
		var payload proto.CallSignal
		if proto.DecodePayload(pkt.Payload, &payload) == nil {
			ctrl.handleAnswer(payload)
		}
	case proto.ActionCallCandidate:
		var payload proto.CallCandidateSignal
		if proto.DecodePayload(pkt.Payload, &payload) == nil {
			ctrl.handleCandidate(payload)
		}
	case proto.ActionCallMedia:
		var payload proto.CallMediaUpdate
		if proto.DecodePayload(pkt.Payload, &payload) == nil {
			ctrl.engine.SetParticipantMedia(ParticipantID(payload.AccountID), payload.Audio, payload.Video, payload.Screen)
		}
	case proto.EventCallEnded:
		ctrl.closePeers()
		ctrl.engine.Transition(StateEnded)
	}
}

// handleRoster seeds the engine from the server's join snapshot. Seeing
// ourselves in it is the join acknowledgment that promotes connecting to
// in-call; the other entries are participants who were already in the room
// before us, so they will offer to us and we never dial out from here.
func (ctrl *CallController) handleRoster(payload proto.CallRoster) {
	for _, entry := range payload.Participants {
		id := ParticipantID(entry.AccountID)
		if id == ctrl.self {
			continue
		}
		ctrl.engine.AddParticipant(id, entry.Nick)
	}
	if ctrl.engine.State() == StateConnecting {
		ctrl.engine.Transition(StateInCall)
	}
}

// handleParticipantJoined settles the glare question once for the whole
// call: the side already in the room offers to the newcomer, the newcomer
// only answers. Our own join is acknowledged through the roster snapshot,
// never echoed back here.
func (ctrl *CallController) handleParticipantJoined(payload proto.CallParticipantUpdate) {
	id := ParticipantID(payload.AccountID)
	if id == ctrl.self {
		return
	}

	ctrl.engine.AddParticipant(id, payload.Nick)

	peer, err := ctrl.ensurePeer(id)
	if err != nil {
		ctrl.engine.Fail(err)
		return
	}
	offer, err := peer.CreateOffer(false)
	if err != nil {
		ctrl.engine.Fail(err)
		return
	}
	accountId := payload.AccountID
	ctrl.signal.Send(proto.Packet{
		Action: proto.ActionCallOffer,
		Payload: proto.CallOffer{
			CallID:    payload.CallID,
			AccountID: &accountId,
			SDP:       proto.SessionDescription{Type: offer.Type.String(), SDP: offer.SDP},
		},
	})
}

func (ctrl *CallController) handleParticipantLeft(payload proto.CallParticipantUpdate) {
	id := ParticipantID(payload.AccountID)
	if id == ctrl.self {
		return
	}

	ctrl.mu.Lock()
	if peer, ok := ctrl.peers[id]; ok {
		peer.Close()
		delete(ctrl.peers, id)
	}
	ctrl.mu.Unlock()

	ctrl.engine.RemoveParticipant(id)
}

func (ctrl *CallController) handleOffer(payload proto.CallSignal) {
	peer, err := ctrl.ensurePeer(ParticipantID(payload.FromID))
	if err != nil {
		ctrl.engine.Fail(err)
		return
	}

	answer, err := peer.HandleOffer(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(payload.SDP.Type),
		SDP:  payload.SDP.SDP,
	})
	if err != nil {
		ctrl.engine.Fail(err)
		return
	}

	ctrl.signal.Send(proto.Packet{
		Action: proto.ActionCallAnswer,
		Payload: proto.CallAnswer{
			CallID:    payload.CallID,
			AccountID: payload.FromID,
			SDP:       proto.SessionDescription{Type: answer.Type.String(), SDP: answer.SDP},
		},
	})
}

func (ctrl *CallController) handleAnswer(payload proto.CallSignal) {
	ctrl.mu.Lock()
	peer, ok := ctrl.peers[ParticipantID(payload.FromID)]
	ctrl.mu.Unlock()
	if !ok {
		log.Warn().Uint("peer", payload.FromID).Msg("Dropping an answer from an unknown peer...")
		return
	}

	if err := peer.HandleAnswer(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(payload.SDP.Type),
		SDP:  payload.SDP.SDP,
	}); err != nil {
		ctrl.engine.Fail(err)
	}
}

func (ctrl *CallController) handleCandidate(payload proto.CallCandidateSignal) {
	peer, err := ctrl.ensurePeer(ParticipantID(payload.FromID))
	if err != nil {
		ctrl.engine.Fail(err)
		return
	}

	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload.Candidate, &candidate); err != nil {
		log.Warn().Err(err).Uint("peer", payload.FromID).Msg("Unable to decode an ICE candidate...")
		return
	}
	if err := peer.AddRemoteCandidate(candidate); err != nil {
		log.Warn().Err(err).Uint("peer", payload.FromID).Msg("Unable to apply an ICE candidate...")
	}
}

func (ctrl *CallController) ensurePeer(id ParticipantID) (*PeerSession, error) {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if peer, ok := ctrl.peers[id]; ok {
		return peer, nil
	}

	callId := ctrl.engine.CallID()
	peer, err := NewPeerSession(id, PeerConfig{
		ICEServers: ctrl.iceServers,
		OnLocalCandidate: func(candidate webrtc.ICECandidateInit) {
			raw, err := json.Marshal(candidate)
			if err != nil {
				return
			}
			ctrl.signal.Send(proto.Packet{
				Action: proto.ActionCallCandidate,
				Payload: proto.CallCandidate{
					CallID:    callId,
					AccountID: uint(id),
					Candidate: raw,
				},
			})
		},
		OnTrack: func(remote ParticipantID, kind TrackKind, track *webrtc.TrackRemote) {
			ctrl.engine.SetParticipantStream(remote, kind, track)
		},
		OnRenegotiate: func(offer webrtc.SessionDescription) {
			accountId := uint(id)
			ctrl.engine.Transition(StateReconnecting)
			ctrl.signal.Send(proto.Packet{
				Action: proto.ActionCallOffer,
				Payload: proto.CallOffer{
					CallID:    callId,
					AccountID: &accountId,
					SDP:       proto.SessionDescription{Type: offer.Type.String(), SDP: offer.SDP},
				},
			})
		},
	})
	if err != nil {
		return nil, err
	}

	for _, track := range ctrl.localTracks {
		if _, err := peer.AddLocalTrack(track); err != nil {
			log.Warn().Err(err).Uint("peer", uint(id)).Msg("Unable to attach a local track...")
		}
	}

	ctrl.peers[id] = peer
	return peer, nil
}

func (ctrl *CallController) closePeers() {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	for _, peer := range ctrl.peers {
		peer.Close()
	}
	ctrl.peers = make(map[ParticipantID]*PeerSession)
}
