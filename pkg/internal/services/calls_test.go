package services

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/gateway"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/proto"
)

func newCallHarness(t *testing.T) (*CallService, *fakePusher, fixture) {
	t.Helper()
	useTestDB(t)
	fx := seedFixture(t)
	pusher := &fakePusher{}
	return NewCallService(pusher, NewEventService(pusher)), pusher, fx
}

func TestStartCallOncePerScope(t *testing.T) {
	calls, pusher, fx := newCallHarness(t)
	scope := fx.channelScope()

	call, err := calls.Start(scope, fx.alice)
	require.NoError(t, err)
	assert.NotEmpty(t, call.Room)
	assert.Equal(t, fx.alice.ID, call.FounderID)

	// founder already sits in the call
	participants, err := ListCallParticipant(call.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, fx.alice.ID, participants[0].AccountID)

	// the room hears about the call, the timeline records it, nobody is rung:
	// channel members discover it through the ongoing-call fetch
	require.Len(t, pusher.byAction(proto.EventCallNew), 1)
	require.Len(t, pusher.byAction(proto.EventNew), 1)
	assert.Empty(t, pusher.byAction(proto.EventCallRinging))

	ongoing, err := calls.Start(scope, fx.bob)
	requireCode(t, err, ErrCodeConflict)
	assert.Equal(t, call.ID, ongoing.ID, "the conflict hands back the call already running")

	// a thread scope is its own lane, a channel call does not block it
	_, err = calls.Start(fx.threadScope(), fx.alice)
	require.NoError(t, err)
}

func TestJoinCallIsIdempotent(t *testing.T) {
	calls, pusher, fx := newCallHarness(t)
	call, err := calls.Start(fx.channelScope(), fx.alice)
	require.NoError(t, err)
	pusher.reset()

	first, err := calls.Join(call, fx.bob)
	require.NoError(t, err)
	second, err := calls.Join(call, fx.bob)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "rejoining hands back the open record")

	count, err := CountOpenCallParticipant(call.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	joined := pusher.byAction(proto.EventCallParticipantJoined)
	require.Len(t, joined, 1, "double join announces exactly once")
	assert.Equal(t, gateway.CallRoom(call.ID), joined[0].Room)
	assert.Equal(t, fx.bob.ID, joined[0].Except, "the joiner does not hear their own join")
}

func TestJoinCallHandsRosterToJoiner(t *testing.T) {
	calls, pusher, fx := newCallHarness(t)
	call, err := calls.Start(fx.channelScope(), fx.alice)
	require.NoError(t, err)
	pusher.reset()

	// the founder's gateway join lands on the record Start opened; the
	// snapshot is their acknowledgment of being in the call
	_, err = calls.Join(call, fx.alice)
	require.NoError(t, err)

	rosters := pusher.byAction(proto.EventCallRoster)
	require.Len(t, rosters, 1)
	assert.Equal(t, "user", rosters[0].Kind)
	assert.Equal(t, fx.alice.ID, rosters[0].AccountID)
	snapshot := rosters[0].Packet.Payload.(proto.CallRoster)
	require.Len(t, snapshot.Participants, 1)
	assert.Equal(t, fx.alice.ID, snapshot.Participants[0].AccountID)

	pusher.reset()
	_, err = calls.Join(call, fx.bob)
	require.NoError(t, err)

	rosters = pusher.byAction(proto.EventCallRoster)
	require.Len(t, rosters, 1)
	assert.Equal(t, fx.bob.ID, rosters[0].AccountID, "the snapshot goes to the joiner alone")
	snapshot = rosters[0].Packet.Payload.(proto.CallRoster)
	assert.Equal(t, call.ID, snapshot.CallID)

	ids := make([]uint, 0, len(snapshot.Participants))
	for _, entry := range snapshot.Participants {
		ids = append(ids, entry.AccountID)
	}
	assert.ElementsMatch(t, []uint{fx.alice.ID, fx.bob.ID}, ids, "earlier participants ride along")
}

func TestJoinCallCapacity(t *testing.T) {
	calls, _, fx := newCallHarness(t)
	viper.Set("calling.max_participants", 1)
	defer viper.Set("calling.max_participants", 0)

	call, err := calls.Start(fx.channelScope(), fx.alice)
	require.NoError(t, err)

	_, err = calls.Join(call, fx.bob)
	requireCode(t, err, ErrCodeConflict)
}

func TestLeaveCallDoubleLeaveIsSilent(t *testing.T) {
	calls, pusher, fx := newCallHarness(t)
	call, err := calls.Start(fx.channelScope(), fx.alice)
	require.NoError(t, err)
	_, err = calls.Join(call, fx.bob)
	require.NoError(t, err)
	pusher.reset()

	require.NoError(t, calls.Leave(call, fx.bob))
	require.NoError(t, calls.Leave(call, fx.bob))

	left := pusher.byAction(proto.EventCallParticipantLeft)
	require.Len(t, left, 1, "the second leave matches no open record and emits nothing")
	assert.Empty(t, pusher.byAction(proto.EventCallEnded), "alice still holds the call open")
}

func TestLastLeaverEndsCallExactlyOnce(t *testing.T) {
	calls, pusher, fx := newCallHarness(t)
	call, err := calls.Start(fx.channelScope(), fx.alice)
	require.NoError(t, err)
	_, err = calls.Join(call, fx.bob)
	require.NoError(t, err)
	pusher.reset()

	require.NoError(t, calls.Leave(call, fx.bob))
	require.NoError(t, calls.Leave(call, fx.alice))

	ended := pusher.byAction(proto.EventCallEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, gateway.CallRoom(call.ID), ended[0].Room)

	stored, err := GetCall(call.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsOngoing())

	// racing a force end against the final leave still tears down once
	require.NoError(t, calls.End(stored, fx.alice))
	assert.Len(t, pusher.byAction(proto.EventCallEnded), 1)
}

func TestEndCallClosesStragglers(t *testing.T) {
	calls, pusher, fx := newCallHarness(t)
	call, err := calls.Start(fx.channelScope(), fx.alice)
	require.NoError(t, err)
	_, err = calls.Join(call, fx.bob)
	require.NoError(t, err)
	pusher.reset()

	require.NoError(t, calls.End(call, fx.alice))

	count, err := CountOpenCallParticipant(call.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count, "force end closes every open participation")

	require.Len(t, pusher.byAction(proto.EventCallEnded), 1)
	require.Len(t, pusher.byAction(proto.EventNew), 1, "the end lands on the timeline")

	// leaving after the end stays silent: the record is already closed
	pusher.reset()
	require.NoError(t, calls.Leave(call, fx.bob))
	assert.Empty(t, pusher.pushes)
}

func TestLeaveAllClosesEveryParticipation(t *testing.T) {
	calls, pusher, fx := newCallHarness(t)
	channelCall, err := calls.Start(fx.channelScope(), fx.alice)
	require.NoError(t, err)
	threadCall, err := calls.Start(fx.threadScope(), fx.bob)
	require.NoError(t, err)
	_, err = calls.Join(channelCall, fx.bob)
	require.NoError(t, err)
	pusher.reset()

	calls.LeaveAll(fx.bob)

	count, err := CountOpenCallParticipant(channelCall.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "alice stays in the channel call")

	stored, err := GetCall(threadCall.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsOngoing(), "bob was alone in the thread call, so it ended")
}

func TestSweepStaleCalls(t *testing.T) {
	calls, pusher, fx := newCallHarness(t)
	call, err := calls.Start(fx.channelScope(), fx.alice)
	require.NoError(t, err)

	// orphan the call: the participant row closed but finish never ran
	require.NoError(t, database.C.Model(&models.CallParticipant{}).
		Where("call_id = ?", call.ID).
		Update("left_at", time.Now()).Error)
	require.NoError(t, database.C.Model(&models.CallSession{}).
		Where("id = ?", call.ID).
		Update("created_at", time.Now().Add(-5*time.Minute)).Error)
	pusher.reset()

	calls.SweepStaleCalls()

	stored, err := GetCall(call.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsOngoing())
	require.Len(t, pusher.byAction(proto.EventCallEnded), 1)

	// a second sweep finds nothing to do
	pusher.reset()
	calls.SweepStaleCalls()
	assert.Empty(t, pusher.byAction(proto.EventCallEnded))
}

func TestGetOngoingCallScoping(t *testing.T) {
	calls, _, fx := newCallHarness(t)

	_, err := GetOngoingCall(fx.channelScope())
	requireCode(t, err, ErrCodeNotFound)

	call, err := calls.Start(fx.channelScope(), fx.alice)
	require.NoError(t, err)

	found, err := GetOngoingCall(fx.channelScope())
	require.NoError(t, err)
	assert.Equal(t, call.ID, found.ID)

	_, err = GetOngoingCall(fx.threadScope())
	requireCode(t, err, ErrCodeNotFound)
}
