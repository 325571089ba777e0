package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClientPacketVariants(t *testing.T) {
	cases := []struct {
		raw  string
		want ClientPacket
	}{
		{
			raw:  `{"action":"channels.subscribe","payload":{"channel_id":3}}`,
			want: &ChannelSubscribe{ChannelID: 3},
		},
		{
			raw:  `{"action":"channels.unsubscribe","payload":{"channel_id":3}}`,
			want: &ChannelUnsubscribe{ChannelID: 3},
		},
		{
			raw:  `{"action":"threads.subscribe","payload":{"thread_id":9}}`,
			want: &ThreadSubscribe{ThreadID: 9},
		},
		{
			raw:  `{"action":"threads.unsubscribe","payload":{"thread_id":9}}`,
			want: &ThreadUnsubscribe{ThreadID: 9},
		},
		{
			raw:  `{"action":"typing.start","payload":{"channel_id":5}}`,
			want: &TypingStart{ChannelID: ptr(uint(5))},
		},
		{
			raw:  `{"action":"typing.stop","payload":{"thread_id":7}}`,
			want: &TypingStop{ThreadID: ptr(uint(7))},
		},
		{
			raw:  `{"action":"messages.send","payload":{"channel_id":5,"text":"hi"}}`,
			want: &MessageSend{ChannelID: ptr(uint(5)), Text: "hi"},
		},
		{
			raw:  `{"action":"events.read","payload":{"channel_id":5,"event_id":120}}`,
			want: &EventsRead{ChannelID: 5, EventID: 120},
		},
		{
			raw:  `{"action":"calls.join","payload":{"call_id":12}}`,
			want: &CallJoin{CallID: 12},
		},
		{
			raw:  `{"action":"calls.leave","payload":{"call_id":12}}`,
			want: &CallLeave{CallID: 12},
		},
		{
			raw:  `{"action":"calls.invite","payload":{"call_id":12,"account_ids":[4,8]}}`,
			want: &CallInvite{CallID: 12, AccountIDs: []uint{4, 8}},
		},
		{
			raw:  `{"action":"calls.decline","payload":{"call_id":12}}`,
			want: &CallDecline{CallID: 12},
		},
		{
			raw:  `{"action":"calls.offer","payload":{"call_id":12,"account_id":4,"sdp":{"type":"offer","sdp":"v=0"}}}`,
			want: &CallOffer{CallID: 12, AccountID: ptr(uint(4)), SDP: SessionDescription{Type: "offer", SDP: "v=0"}},
		},
		{
			raw:  `{"action":"calls.answer","payload":{"call_id":12,"account_id":4,"sdp":{"type":"answer","sdp":"v=0"}}}`,
			want: &CallAnswer{CallID: 12, AccountID: 4, SDP: SessionDescription{Type: "answer", SDP: "v=0"}},
		},
		{
			raw:  `{"action":"calls.media","payload":{"call_id":12,"audio":true,"video":false,"screen":true}}`,
			want: &CallMedia{CallID: 12, Audio: true, Video: false, Screen: true},
		},
	}

	for _, tc := range cases {
		pkt, err := DecodeClientPacket([]byte(tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, pkt, tc.raw)
	}
}

func TestDecodeClientPacketCandidatePassthrough(t *testing.T) {
	raw := `{"action":"calls.ice","payload":{"call_id":12,"account_id":4,"candidate":{"candidate":"candidate:1 1 udp 2130706431 10.0.0.2 50000 typ host","sdpMid":"0"}}}`

	pkt, err := DecodeClientPacket([]byte(raw))
	require.NoError(t, err)

	candidate, ok := pkt.(*CallCandidate)
	require.True(t, ok)
	assert.EqualValues(t, 12, candidate.CallID)
	assert.EqualValues(t, 4, candidate.AccountID)
	// the candidate blob is relayed opaque, never reinterpreted
	assert.JSONEq(t,
		`{"candidate":"candidate:1 1 udp 2130706431 10.0.0.2 50000 typ host","sdpMid":"0"}`,
		string(candidate.Candidate))
}

func TestDecodeClientPacketRejectsUnknownAction(t *testing.T) {
	_, err := DecodeClientPacket([]byte(`{"action":"calls.hijack","payload":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")
}

func TestDecodeClientPacketEnforcesValidation(t *testing.T) {
	// a join without a call id never reaches a handler
	_, err := DecodeClientPacket([]byte(`{"action":"calls.join"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid payload")

	_, err = DecodeClientPacket([]byte(`{"action":"calls.invite","payload":{"call_id":12,"account_ids":[]}}`))
	require.Error(t, err, "an invite must name at least one account")
}

func TestDecodeClientPacketRejectsGarbage(t *testing.T) {
	_, err := DecodeClientPacket([]byte(`{]`))
	require.Error(t, err)

	_, err = DecodeClientPacket([]byte(`{"action":"calls.join","payload":{"call_id":"not a number"}}`))
	require.Error(t, err)
}

func TestDecodePayloadRemapsGenericMaps(t *testing.T) {
	payload := map[string]any{
		"call_id":    float64(3),
		"account_id": float64(7),
		"audio":      true,
		"video":      true,
		"screen":     false,
	}

	var out CallMediaUpdate
	require.NoError(t, DecodePayload(payload, &out))
	assert.Equal(t, CallMediaUpdate{CallID: 3, AccountID: 7, Audio: true, Video: true, Screen: false}, out)
}

func ptr[T any](v T) *T {
	return &v
}
