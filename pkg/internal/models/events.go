package models

import (
	"gorm.io/datatypes"
)

const (
	EventMessageNew    = "messages.new"
	EventMessageEdit   = "messages.edit"
	EventMessageDelete = "messages.delete"
	EventCallStart     = "calls.start"
	EventCallEnd       = "calls.end"
	EventSystemChanges = "system.changes"
)

type Event struct {
	BaseModel

	Uuid string            `json:"uuid"`
	Body datatypes.JSONMap `json:"body"`
	Type string            `json:"type"`

	ChannelID *uint         `json:"channel_id"`
	ThreadID  *uint         `json:"thread_id"`
	Channel   *Channel      `json:"channel,omitempty"`
	Thread    *DirectThread `json:"thread,omitempty"`

	SenderID uint    `json:"sender_id"`
	Sender   Account `json:"sender"`

	QuoteEventID   *uint  `json:"quote_event_id,omitempty"`
	QuoteEvent     *Event `json:"quote_event,omitempty" gorm:"foreignKey:QuoteEventID"`
	RelatedEventID *uint  `json:"related_event_id,omitempty"`
	RelatedEvent   *Event `json:"related_event,omitempty" gorm:"foreignKey:RelatedEventID"`
}

// Message body algorithms. Sealed messages carry base64 ciphertext in Text
// and the AES-GCM nonce alongside; the server never sees the plaintext.
const (
	MessageAlgorithmPlain  = "plain"
	MessageAlgorithmSealed = "x25519+aes256gcm"
)

// Event Payloads

type EventMessageBody struct {
	Text           string   `json:"text,omitempty"`
	Algorithm      string   `json:"algorithm,omitempty"`
	Nonce          string   `json:"nonce,omitempty"`
	Attachments    []string `json:"attachments,omitempty"`
	QuoteEventID   *uint    `json:"quote_event,omitempty"`
	RelatedEventID *uint    `json:"related_event,omitempty"`
	RelatedUsers   []uint   `json:"related_users,omitempty"`
}

type EventCallBody struct {
	CallID       uint    `json:"call_id"`
	FounderID    uint    `json:"founder_id"`
	Participants []uint  `json:"participants,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
}
