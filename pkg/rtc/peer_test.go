package rtc

import (
	"errors"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePeerConn struct {
	remote     *webrtc.SessionDescription
	candidates []string
	closed     int

	candidateErr error
}

func (f *fakePeerConn) CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer"}, nil
}

func (f *fakePeerConn) CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}, nil
}

func (f *fakePeerConn) SetLocalDescription(desc webrtc.SessionDescription) error {
	return nil
}

func (f *fakePeerConn) SetRemoteDescription(desc webrtc.SessionDescription) error {
	f.remote = &desc
	return nil
}

func (f *fakePeerConn) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	if f.candidateErr != nil {
		return f.candidateErr
	}
	f.candidates = append(f.candidates, candidate.Candidate)
	return nil
}

func (f *fakePeerConn) AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	return nil, nil
}

func (f *fakePeerConn) Close() error {
	f.closed++
	return nil
}

func candidateInit(raw string) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{Candidate: raw}
}

func TestPeerBuffersCandidatesUntilRemoteDescription(t *testing.T) {
	conn := &fakePeerConn{}
	session := newPeerSession(conn, 7)

	require.NoError(t, session.AddRemoteCandidate(candidateInit("first")))
	require.NoError(t, session.AddRemoteCandidate(candidateInit("second")))
	require.NoError(t, session.AddRemoteCandidate(candidateInit("third")))
	assert.Empty(t, conn.candidates, "nothing reaches the connection before the remote description")

	require.NoError(t, session.HandleAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"}))
	assert.Equal(t, []string{"first", "second", "third"}, conn.candidates, "buffered candidates flush in arrival order")

	require.NoError(t, session.AddRemoteCandidate(candidateInit("fourth")))
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, conn.candidates, "later candidates go straight down")
}

func TestPeerFlushesBufferedCandidatesAfterOffer(t *testing.T) {
	conn := &fakePeerConn{}
	session := newPeerSession(conn, 7)

	require.NoError(t, session.AddRemoteCandidate(candidateInit("early")))

	answer, err := session.HandleOffer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"})
	require.NoError(t, err)
	assert.Equal(t, webrtc.SDPTypeAnswer, answer.Type)
	assert.Equal(t, []string{"early"}, conn.candidates)
}

func TestPeerFlushSurvivesCandidateErrors(t *testing.T) {
	conn := &fakePeerConn{candidateErr: errors.New("agent gone")}
	session := newPeerSession(conn, 7)

	require.NoError(t, session.AddRemoteCandidate(candidateInit("doomed")))
	require.NoError(t, session.HandleAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"}))

	// the session stays usable even when a buffered candidate is rejected
	conn.candidateErr = nil
	require.NoError(t, session.AddRemoteCandidate(candidateInit("fine")))
	assert.Equal(t, []string{"fine"}, conn.candidates)
}

func TestPeerCloseIsIdempotent(t *testing.T) {
	conn := &fakePeerConn{}
	session := newPeerSession(conn, 7)

	session.Close()
	session.Close()
	assert.Equal(t, 1, conn.closed)

	require.NoError(t, session.AddRemoteCandidate(candidateInit("late")))
	require.NoError(t, session.HandleAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"}))
	assert.Nil(t, conn.remote, "operations after close are silent no-ops")
}

func TestPeerTrackTogglesDefaultOn(t *testing.T) {
	session := newPeerSession(&fakePeerConn{}, 7)

	assert.True(t, session.Enabled(TrackAudio))
	session.SetTrackEnabled(TrackAudio, false)
	assert.False(t, session.Enabled(TrackAudio))
	assert.True(t, session.Enabled(TrackVideo))
}

func TestClassifyTrack(t *testing.T) {
	cases := []struct {
		label string
		kind  string
		want  TrackKind
	}{
		{"microphone-1", "audio", TrackAudio},
		{"camera-front", "video", TrackVideo},
		{"screen:0", "video", TrackScreen},
		{"Display-Capture", "video", TrackScreen},
		{"window-share-42", "video", TrackScreen},
		{"screen-audio", "audio", TrackScreen},
		{"", "video", TrackVideo},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyTrack(tc.label, tc.kind), "%s/%s", tc.label, tc.kind)
	}
}
