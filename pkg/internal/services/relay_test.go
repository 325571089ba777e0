package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banterhq/banter/pkg/internal/gateway"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/proto"
)

func newRelayHarness(t *testing.T) (*RelayService, *CallService, *fakePusher, fixture) {
	t.Helper()
	useTestDB(t)
	fx := seedFixture(t)
	pusher := &fakePusher{}
	calls := NewCallService(pusher, NewEventService(pusher))
	return NewRelayService(pusher), calls, pusher, fx
}

func startJoinedCall(t *testing.T, calls *CallService, fx fixture) models.CallSession {
	t.Helper()
	call, err := calls.Start(fx.channelScope(), fx.alice)
	require.NoError(t, err)
	_, err = calls.Join(call, fx.bob)
	require.NoError(t, err)
	return call
}

func TestRelayRejectsNonParticipants(t *testing.T) {
	relay, calls, _, fx := newRelayHarness(t)
	call := startJoinedCall(t, calls, fx)

	sdp := proto.SessionDescription{Type: "offer", SDP: "v=0"}

	// carol never joined, nothing of hers moves
	err := relay.Offer(fx.carol, proto.CallOffer{CallID: call.ID, SDP: sdp})
	requireCode(t, err, ErrCodeForbidden)

	err = relay.Media(fx.carol, proto.CallMedia{CallID: call.ID, Audio: true})
	requireCode(t, err, ErrCodeForbidden)

	// directed signals also validate the target end
	err = relay.Offer(fx.alice, proto.CallOffer{CallID: call.ID, AccountID: &fx.carol.ID, SDP: sdp})
	requireCode(t, err, ErrCodeForbidden)

	err = relay.Answer(fx.alice, proto.CallAnswer{CallID: call.ID, AccountID: fx.carol.ID, SDP: sdp})
	requireCode(t, err, ErrCodeForbidden)

	err = relay.Candidate(fx.alice, proto.CallCandidate{CallID: call.ID, AccountID: fx.carol.ID})
	requireCode(t, err, ErrCodeForbidden)
}

func TestRelayRejectsEndedCalls(t *testing.T) {
	relay, calls, _, fx := newRelayHarness(t)
	call := startJoinedCall(t, calls, fx)
	require.NoError(t, calls.End(call, fx.alice))

	err := relay.Offer(fx.alice, proto.CallOffer{CallID: call.ID, SDP: proto.SessionDescription{Type: "offer", SDP: "v=0"}})
	requireCode(t, err, ErrCodeNotFound)
}

func TestRelayDirectedOffer(t *testing.T) {
	relay, calls, pusher, fx := newRelayHarness(t)
	call := startJoinedCall(t, calls, fx)
	pusher.reset()

	sdp := proto.SessionDescription{Type: "offer", SDP: "v=0 alice"}
	require.NoError(t, relay.Offer(fx.alice, proto.CallOffer{CallID: call.ID, AccountID: &fx.bob.ID, SDP: sdp}))

	offers := pusher.byAction(proto.ActionCallOffer)
	require.Len(t, offers, 1)
	assert.Equal(t, "user", offers[0].Kind)
	assert.Equal(t, fx.bob.ID, offers[0].AccountID)

	signal := offers[0].Packet.Payload.(proto.CallSignal)
	assert.Equal(t, fx.alice.ID, signal.FromID)
	assert.Equal(t, sdp, signal.SDP)
}

func TestRelayUndirectedOfferFansOut(t *testing.T) {
	relay, calls, pusher, fx := newRelayHarness(t)
	call := startJoinedCall(t, calls, fx)
	pusher.reset()

	require.NoError(t, relay.Offer(fx.alice, proto.CallOffer{
		CallID: call.ID,
		SDP:    proto.SessionDescription{Type: "offer", SDP: "v=0"},
	}))

	offers := pusher.byAction(proto.ActionCallOffer)
	require.Len(t, offers, 1)
	assert.Equal(t, "room_except", offers[0].Kind)
	assert.Equal(t, gateway.CallRoom(call.ID), offers[0].Room)
	assert.Equal(t, fx.alice.ID, offers[0].Except, "the sender never hears their own offer")
}

func TestRelayCandidatePassthrough(t *testing.T) {
	relay, calls, pusher, fx := newRelayHarness(t)
	call := startJoinedCall(t, calls, fx)
	pusher.reset()

	blob := json.RawMessage(`{"candidate":"candidate:1 1 udp 2130706431 10.0.0.2 50000 typ host","sdpMid":"0","sdpMLineIndex":0}`)
	require.NoError(t, relay.Candidate(fx.bob, proto.CallCandidate{
		CallID:    call.ID,
		AccountID: fx.alice.ID,
		Candidate: blob,
	}))

	relayed := pusher.byAction(proto.ActionCallCandidate)
	require.Len(t, relayed, 1)
	assert.Equal(t, fx.alice.ID, relayed[0].AccountID)

	signal := relayed[0].Packet.Payload.(proto.CallCandidateSignal)
	assert.Equal(t, fx.bob.ID, signal.FromID)
	assert.JSONEq(t, string(blob), string(signal.Candidate), "the candidate blob is never reinterpreted")
}

func TestRelayMediaUnchangedFlags(t *testing.T) {
	relay, calls, pusher, fx := newRelayHarness(t)
	call := startJoinedCall(t, calls, fx)
	pusher.reset()

	require.NoError(t, relay.Media(fx.bob, proto.CallMedia{
		CallID: call.ID,
		Audio:  true,
		Video:  false,
		Screen: true,
	}))

	relayed := pusher.byAction(proto.ActionCallMedia)
	require.Len(t, relayed, 1)
	assert.Equal(t, "room_except", relayed[0].Kind)
	assert.Equal(t, fx.bob.ID, relayed[0].Except)

	update := relayed[0].Packet.Payload.(proto.CallMediaUpdate)
	assert.Equal(t, proto.CallMediaUpdate{
		CallID:    call.ID,
		AccountID: fx.bob.ID,
		Audio:     true,
		Video:     false,
		Screen:    true,
	}, update)
}

func TestRelayInviteSkipsUnauthorizedTargets(t *testing.T) {
	relay, calls, pusher, fx := newRelayHarness(t)
	call, err := calls.Start(fx.channelScope(), fx.alice)
	require.NoError(t, err)
	pusher.reset()

	// bob is in scope, carol is not, and the sender never rings themself
	require.NoError(t, relay.Invite(fx.alice, proto.CallInvite{
		CallID:     call.ID,
		AccountIDs: []uint{fx.bob.ID, fx.carol.ID, fx.alice.ID},
	}))

	ringing := pusher.byAction(proto.EventCallRinging)
	require.Len(t, ringing, 1)
	assert.Equal(t, fx.bob.ID, ringing[0].AccountID)

	payload := ringing[0].Packet.Payload.(proto.CallRinging)
	assert.Equal(t, call.ID, payload.CallID)
	assert.Equal(t, call.Room, payload.Room)
	assert.Equal(t, fx.alice.ID, payload.FromID)
}

func TestRelayInviteRequiresParticipation(t *testing.T) {
	relay, calls, _, fx := newRelayHarness(t)
	call, err := calls.Start(fx.channelScope(), fx.alice)
	require.NoError(t, err)

	err = relay.Invite(fx.bob, proto.CallInvite{CallID: call.ID, AccountIDs: []uint{fx.carol.ID}})
	requireCode(t, err, ErrCodeForbidden)
}

func TestRelayDecline(t *testing.T) {
	relay, calls, pusher, fx := newRelayHarness(t)
	call, err := calls.Start(fx.channelScope(), fx.alice)
	require.NoError(t, err)
	pusher.reset()

	// bob was rung but never joined; scope access is what admits the decline
	require.NoError(t, relay.Decline(fx.bob, proto.CallDecline{CallID: call.ID}))

	declined := pusher.byAction(proto.EventCallDeclined)
	require.Len(t, declined, 1)
	assert.Equal(t, call.FounderID, declined[0].AccountID, "only the founder hears the decline")

	payload := declined[0].Packet.Payload.(proto.CallDeclined)
	assert.Equal(t, fx.bob.ID, payload.AccountID)

	// outside the scope there is nothing to decline
	err = relay.Decline(fx.carol, proto.CallDecline{CallID: call.ID})
	requireCode(t, err, ErrCodeNotMember)

	require.NoError(t, calls.End(call, fx.alice))
	err = relay.Decline(fx.bob, proto.CallDecline{CallID: call.ID})
	requireCode(t, err, ErrCodeNotFound)
}
