package services

import (
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/banterhq/banter/pkg/internal/models"
)

func EncodeMessageBody(body models.EventMessageBody) map[string]any {
	var parsed map[string]any
	raw, _ := jsoniter.Marshal(body)
	_ = jsoniter.Unmarshal(raw, &parsed)
	return parsed
}

// ValidateMessageBody rejects bodies the server cannot route. Sealed bodies
// stay opaque: the ciphertext is whatever the client produced, only the
// framing is checked here.
func ValidateMessageBody(body models.EventMessageBody) error {
	switch body.Algorithm {
	case "", models.MessageAlgorithmPlain:
		if len(body.Text) == 0 && len(body.Attachments) == 0 {
			return NewValidation("a message needs text or attachments")
		}
	case models.MessageAlgorithmSealed:
		if len(body.Text) == 0 || len(body.Nonce) == 0 {
			return NewValidation("a sealed message needs ciphertext and a nonce")
		}
	default:
		return NewValidation("unsupported message algorithm: %s", body.Algorithm)
	}
	return nil
}

func (s *EventService) NewMessage(scope Scope, sender models.Account, body models.EventMessageBody) (models.Event, error) {
	if err := ValidateMessageBody(body); err != nil {
		return models.Event{}, err
	}
	if len(body.Algorithm) == 0 {
		body.Algorithm = models.MessageAlgorithmPlain
	}

	return s.New(scope, models.Event{
		Uuid:         uuid.NewString(),
		Body:         EncodeMessageBody(body),
		Type:         models.EventMessageNew,
		SenderID:     sender.ID,
		QuoteEventID: body.QuoteEventID,
	})
}

// EditMessage rewrites the original in place and appends an edit marker
// event pointing back at it, so clients that already rendered the original
// can patch it.
func (s *EventService) EditMessage(scope Scope, event models.Event, body models.EventMessageBody) (models.Event, error) {
	if err := ValidateMessageBody(body); err != nil {
		return event, err
	}

	event.Body = EncodeMessageBody(body)
	event, err := s.Edit(scope, event)
	if err != nil {
		return event, err
	}

	_, err = s.New(scope, models.Event{
		Uuid:           uuid.NewString(),
		Body:           EncodeMessageBody(body),
		Type:           models.EventMessageEdit,
		SenderID:       event.SenderID,
		RelatedEventID: &event.ID,
	})
	return event, err
}

func (s *EventService) DeleteMessage(scope Scope, event models.Event) error {
	if err := s.Delete(scope, event); err != nil {
		return err
	}

	_, err := s.New(scope, models.Event{
		Uuid:           uuid.NewString(),
		Body:           map[string]any{},
		Type:           models.EventMessageDelete,
		SenderID:       event.SenderID,
		RelatedEventID: &event.ID,
	})
	return err
}
