package services

import (
	"github.com/banterhq/banter/pkg/internal/gateway"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/proto"
)

// RelayService forwards call signaling between participants. It keeps no
// state of its own: every message re-validates the sender against the call
// before anything moves, and the invariant that no signal ever names a
// non-participant recipient is enforced right here.
type RelayService struct {
	pusher StreamPusher
}

func NewRelayService(pusher StreamPusher) *RelayService {
	return &RelayService{pusher: pusher}
}

// scopeAllows reports whether the account could legitimately sit in the
// call's scope, used for invite targets and for callees that were rung but
// never joined.
func scopeAllows(accountId uint, call models.CallSession) error {
	if call.ChannelID != nil {
		_, _, err := RequireChannelAccess(accountId, *call.ChannelID)
		return err
	}
	_, _, err := RequireThreadAccess(accountId, *call.ThreadID)
	return err
}

// Invite rings scope-authorized targets on their personal rooms. Targets
// outside the call's scope are skipped silently rather than failing the
// whole batch.
func (s *RelayService) Invite(sender models.Account, data proto.CallInvite) error {
	call, _, err := RequireCallParticipant(sender.ID, data.CallID)
	if err != nil {
		return err
	}

	ringing := proto.Packet{
		Action: proto.EventCallRinging,
		Payload: proto.CallRinging{
			CallID:    call.ID,
			Room:      call.Room,
			ChannelID: call.ChannelID,
			ThreadID:  call.ThreadID,
			FromID:    sender.ID,
			FromNick:  sender.Nick,
		},
	}

	for _, target := range data.AccountIDs {
		if target == sender.ID {
			continue
		}
		if err := scopeAllows(target, call); err != nil {
			continue
		}
		s.pusher.PushUser(target, ringing)
	}
	return nil
}

// Decline answers a ring without joining, so the sender holds no participant
// record yet; scope access stands in for participation here. Only the
// founder hears about it.
func (s *RelayService) Decline(sender models.Account, data proto.CallDecline) error {
	call, err := GetCall(data.CallID)
	if err != nil {
		return err
	}
	if !call.IsOngoing() {
		return NewNotFound("call #%d has already ended", call.ID)
	}
	if err := scopeAllows(sender.ID, call); err != nil {
		return err
	}

	s.pusher.PushUser(call.FounderID, proto.Packet{
		Action: proto.EventCallDeclined,
		Payload: proto.CallDeclined{
			CallID:    call.ID,
			AccountID: sender.ID,
		},
	})
	return nil
}

// requireSignalTarget guards the directed delivery paths: both ends must
// hold open participations in the same ongoing call.
func requireSignalTarget(sender models.Account, callId uint, targetId uint) (models.CallSession, error) {
	call, _, err := RequireCallParticipant(sender.ID, callId)
	if err != nil {
		return call, err
	}
	if _, _, err := RequireCallParticipant(targetId, callId); err != nil {
		return call, NewForbidden("account #%d is not a participant of this call", targetId)
	}
	return call, nil
}

// Offer relays an SDP offer. Directed offers go point-to-point for mesh
// negotiation; undirected ones fan out to everyone else in the call room.
func (s *RelayService) Offer(sender models.Account, data proto.CallOffer) error {
	signal := proto.CallSignal{
		CallID: data.CallID,
		FromID: sender.ID,
		SDP:    data.SDP,
	}

	if data.AccountID != nil {
		if _, err := requireSignalTarget(sender, data.CallID, *data.AccountID); err != nil {
			return err
		}
		s.pusher.PushUser(*data.AccountID, proto.Packet{
			Action:  proto.ActionCallOffer,
			Payload: signal,
		})
		return nil
	}

	call, _, err := RequireCallParticipant(sender.ID, data.CallID)
	if err != nil {
		return err
	}
	s.pusher.PushRoomExcept(gateway.CallRoom(call.ID), sender.ID, proto.Packet{
		Action:  proto.ActionCallOffer,
		Payload: signal,
	})
	return nil
}

// Answer always goes to exactly one peer.
func (s *RelayService) Answer(sender models.Account, data proto.CallAnswer) error {
	if _, err := requireSignalTarget(sender, data.CallID, data.AccountID); err != nil {
		return err
	}

	s.pusher.PushUser(data.AccountID, proto.Packet{
		Action: proto.ActionCallAnswer,
		Payload: proto.CallSignal{
			CallID: data.CallID,
			FromID: sender.ID,
			SDP:    data.SDP,
		},
	})
	return nil
}

// Candidate always goes to exactly one peer; the candidate blob passes
// through untouched.
func (s *RelayService) Candidate(sender models.Account, data proto.CallCandidate) error {
	if _, err := requireSignalTarget(sender, data.CallID, data.AccountID); err != nil {
		return err
	}

	s.pusher.PushUser(data.AccountID, proto.Packet{
		Action: proto.ActionCallCandidate,
		Payload: proto.CallCandidateSignal{
			CallID:    data.CallID,
			FromID:    sender.ID,
			Candidate: data.Candidate,
		},
	})
	return nil
}

// Media broadcasts the sender's media toggles to everyone else in the call.
func (s *RelayService) Media(sender models.Account, data proto.CallMedia) error {
	call, _, err := RequireCallParticipant(sender.ID, data.CallID)
	if err != nil {
		return err
	}

	s.pusher.PushRoomExcept(gateway.CallRoom(call.ID), sender.ID, proto.Packet{
		Action: proto.ActionCallMedia,
		Payload: proto.CallMediaUpdate{
			CallID:    call.ID,
			AccountID: sender.ID,
			Audio:     data.Audio,
			Video:     data.Video,
			Screen:    data.Screen,
		},
	})
	return nil
}
