package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/proto"
)

func newEventHarness(t *testing.T) (*EventService, *fakePusher, fixture) {
	t.Helper()
	useTestDB(t)
	fx := seedFixture(t)
	pusher := &fakePusher{}
	return NewEventService(pusher), pusher, fx
}

func TestNewMessageFansOutToScopeMembers(t *testing.T) {
	events, pusher, fx := newEventHarness(t)

	event, err := events.NewMessage(fx.channelScope(), fx.alice, models.EventMessageBody{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, models.EventMessageNew, event.Type)
	assert.Equal(t, "plain", event.Body["algorithm"])
	require.NotNil(t, event.ChannelID)
	assert.Equal(t, fx.channel.ID, *event.ChannelID)

	batches := pusher.byAction(proto.EventNew)
	require.Len(t, batches, 1)
	assert.Equal(t, "batch", batches[0].Kind)
	assert.ElementsMatch(t, []uint{fx.alice.ID, fx.bob.ID}, batches[0].AccountIDs)
}

func TestValidateMessageBody(t *testing.T) {
	assert.NoError(t, ValidateMessageBody(models.EventMessageBody{Text: "hi"}))
	assert.NoError(t, ValidateMessageBody(models.EventMessageBody{Attachments: []string{"file-1"}}))
	assert.NoError(t, ValidateMessageBody(models.EventMessageBody{
		Algorithm: models.MessageAlgorithmSealed, Text: "b64cipher", Nonce: "b64nonce",
	}))

	requireCode(t, ValidateMessageBody(models.EventMessageBody{}), ErrCodeValidation)
	requireCode(t, ValidateMessageBody(models.EventMessageBody{
		Algorithm: models.MessageAlgorithmSealed, Text: "b64cipher",
	}), ErrCodeValidation)
	requireCode(t, ValidateMessageBody(models.EventMessageBody{
		Algorithm: "rot13", Text: "hi",
	}), ErrCodeValidation)
}

func TestSealedMessageStaysOpaque(t *testing.T) {
	events, _, fx := newEventHarness(t)

	event, err := events.NewMessage(fx.threadScope(), fx.alice, models.EventMessageBody{
		Algorithm: models.MessageAlgorithmSealed,
		Text:      "Y2lwaGVydGV4dA==",
		Nonce:     "bm9uY2UxMjM0NTY=",
	})
	require.NoError(t, err)
	assert.Equal(t, "Y2lwaGVydGV4dA==", event.Body["text"], "ciphertext is stored exactly as sent")
	assert.Equal(t, models.MessageAlgorithmSealed, event.Body["algorithm"])
}

func TestEditMessageAppendsMarker(t *testing.T) {
	events, pusher, fx := newEventHarness(t)
	scope := fx.channelScope()

	event, err := events.NewMessage(scope, fx.alice, models.EventMessageBody{Text: "draft"})
	require.NoError(t, err)
	pusher.reset()

	edited, err := events.EditMessage(scope, event, models.EventMessageBody{Text: "final"})
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Body["text"])

	list, err := ListEvent(scope, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	marker, err := GetEvent(scope, list[0].ID)
	if marker.Type != models.EventMessageEdit {
		marker, err = GetEvent(scope, list[1].ID)
	}
	require.NoError(t, err)
	require.Equal(t, models.EventMessageEdit, marker.Type)
	require.NotNil(t, marker.RelatedEventID)
	assert.Equal(t, event.ID, *marker.RelatedEventID)

	require.Len(t, pusher.byAction(proto.EventNew), 1, "the marker fans out like any event")
}

func TestDeleteMessageAppendsMarker(t *testing.T) {
	events, _, fx := newEventHarness(t)
	scope := fx.channelScope()

	event, err := events.NewMessage(scope, fx.alice, models.EventMessageBody{Text: "oops"})
	require.NoError(t, err)

	require.NoError(t, events.DeleteMessage(scope, event))

	_, err = GetEvent(scope, event.ID)
	requireCode(t, err, ErrCodeNotFound)

	list, err := ListEvent(scope, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.EventMessageDelete, list[0].Type)
	require.NotNil(t, list[0].RelatedEventID)
	assert.Equal(t, event.ID, *list[0].RelatedEventID)
}

func TestGetEventWithSenderGuardsAuthorship(t *testing.T) {
	events, _, fx := newEventHarness(t)
	scope := fx.channelScope()

	event, err := events.NewMessage(scope, fx.alice, models.EventMessageBody{Text: "mine"})
	require.NoError(t, err)

	_, err = GetEventWithSender(scope, fx.alice, event.ID)
	require.NoError(t, err)

	_, err = GetEventWithSender(scope, fx.bob, event.ID)
	requireCode(t, err, ErrCodeNotFound)
}

func TestListEventScopeIsolation(t *testing.T) {
	events, _, fx := newEventHarness(t)

	_, err := events.NewMessage(fx.channelScope(), fx.alice, models.EventMessageBody{Text: "channel side"})
	require.NoError(t, err)
	_, err = events.NewMessage(fx.threadScope(), fx.bob, models.EventMessageBody{Text: "thread side"})
	require.NoError(t, err)

	channelEvents, err := ListEvent(fx.channelScope(), 10, 0)
	require.NoError(t, err)
	require.Len(t, channelEvents, 1)
	assert.Equal(t, "channel side", channelEvents[0].Body["text"])

	assert.EqualValues(t, 1, CountEvent(fx.threadScope()))
}
