// Package proto carries the websocket wire protocol shared by the server
// gateway and client implementations.
package proto

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
)

var validation = validator.New(validator.WithRequiredStructEnabled())

// Packet is the envelope of every frame on the gateway socket, both
// directions. Payload shapes are fixed per action.
type Packet struct {
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

func (p Packet) Marshal() []byte {
	data, _ := jsoniter.Marshal(p)
	return data
}

// DecodePayload re-maps a decoded payload (usually map[string]any) onto a
// concrete struct.
func DecodePayload(payload any, out any) error {
	raw, err := jsoniter.Marshal(payload)
	if err != nil {
		return err
	}
	return jsoniter.Unmarshal(raw, out)
}

// Client to server actions. The set is closed: every accepted frame decodes
// into one of the ClientPacket variants below, anything else is rejected
// before it reaches a handler.
const (
	ActionChannelSubscribe   = "channels.subscribe"
	ActionChannelUnsubscribe = "channels.unsubscribe"
	ActionThreadSubscribe    = "threads.subscribe"
	ActionThreadUnsubscribe  = "threads.unsubscribe"
	ActionTypingStart        = "typing.start"
	ActionTypingStop         = "typing.stop"
	ActionMessageSend        = "messages.send"
	ActionEventsRead         = "events.read"
	ActionCallJoin           = "calls.join"
	ActionCallLeave          = "calls.leave"
	ActionCallInvite         = "calls.invite"
	ActionCallDecline        = "calls.decline"
	ActionCallOffer          = "calls.offer"
	ActionCallAnswer         = "calls.answer"
	ActionCallCandidate      = "calls.ice"
	ActionCallMedia          = "calls.media"
)

// Server to client actions. Typing updates and call signals are echoed to
// recipients under the same action they came in with.
const (
	EventError                 = "error"
	EventPresenceUpdate        = "presence.update"
	EventNew                   = "events.new"
	EventCallNew               = "calls.new"
	EventCallRinging           = "calls.ringing"
	EventCallDeclined          = "calls.declined"
	EventCallRoster            = "calls.roster"
	EventCallParticipantJoined = "calls.participants.joined"
	EventCallParticipantLeft   = "calls.participants.left"
	EventCallEnded             = "calls.ended"
)

// ClientPacket is the decoded form of a client frame.
type ClientPacket interface {
	clientPacket()
}

type ChannelSubscribe struct {
	ChannelID uint `json:"channel_id" validate:"required"`
}

type ChannelUnsubscribe struct {
	ChannelID uint `json:"channel_id" validate:"required"`
}

type ThreadSubscribe struct {
	ThreadID uint `json:"thread_id" validate:"required"`
}

type ThreadUnsubscribe struct {
	ThreadID uint `json:"thread_id" validate:"required"`
}

type TypingStart struct {
	ChannelID *uint `json:"channel_id"`
	ThreadID  *uint `json:"thread_id"`
}

type TypingStop struct {
	ChannelID *uint `json:"channel_id"`
	ThreadID  *uint `json:"thread_id"`
}

type MessageSend struct {
	ChannelID    *uint    `json:"channel_id"`
	ThreadID     *uint    `json:"thread_id"`
	Text         string   `json:"text"`
	Algorithm    string   `json:"algorithm"`
	Nonce        string   `json:"nonce"`
	Attachments  []string `json:"attachments"`
	QuoteEventID *uint    `json:"quote_event_id"`
}

type EventsRead struct {
	ChannelID uint `json:"channel_id" validate:"required"`
	EventID   uint `json:"event_id" validate:"required"`
}

type CallJoin struct {
	CallID uint `json:"call_id" validate:"required"`
}

type CallLeave struct {
	CallID uint `json:"call_id" validate:"required"`
}

type CallInvite struct {
	CallID     uint   `json:"call_id" validate:"required"`
	AccountIDs []uint `json:"account_ids" validate:"required,min=1"`
}

type CallDecline struct {
	CallID uint `json:"call_id" validate:"required"`
}

// CallOffer is addressed when AccountID is set, otherwise it fans out to the
// whole call room except the sender.
type CallOffer struct {
	CallID    uint               `json:"call_id" validate:"required"`
	AccountID *uint              `json:"account_id"`
	SDP       SessionDescription `json:"sdp"`
}

type CallAnswer struct {
	CallID    uint               `json:"call_id" validate:"required"`
	AccountID uint               `json:"account_id" validate:"required"`
	SDP       SessionDescription `json:"sdp"`
}

type CallCandidate struct {
	CallID    uint            `json:"call_id" validate:"required"`
	AccountID uint            `json:"account_id" validate:"required"`
	Candidate json.RawMessage `json:"candidate"`
}

type CallMedia struct {
	CallID uint `json:"call_id" validate:"required"`
	Audio  bool `json:"audio"`
	Video  bool `json:"video"`
	Screen bool `json:"screen"`
}

func (ChannelSubscribe) clientPacket()   {}
func (ChannelUnsubscribe) clientPacket() {}
func (ThreadSubscribe) clientPacket()    {}
func (ThreadUnsubscribe) clientPacket()  {}
func (TypingStart) clientPacket()        {}
func (TypingStop) clientPacket()         {}
func (MessageSend) clientPacket()        {}
func (EventsRead) clientPacket()         {}
func (CallJoin) clientPacket()           {}
func (CallLeave) clientPacket()          {}
func (CallInvite) clientPacket()         {}
func (CallDecline) clientPacket()        {}
func (CallOffer) clientPacket()          {}
func (CallAnswer) clientPacket()         {}
func (CallCandidate) clientPacket()      {}
func (CallMedia) clientPacket()          {}

// DecodeClientPacket parses one frame into its tagged variant and enforces
// its validate tags, so handlers only ever see well-formed payloads.
func DecodeClientPacket(raw []byte) (ClientPacket, error) {
	var envelope struct {
		Action  string              `json:"action"`
		Payload jsoniter.RawMessage `json:"payload"`
	}
	if err := jsoniter.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unable to parse packet: %v", err)
	}

	var out ClientPacket
	switch envelope.Action {
	case ActionChannelSubscribe:
		out = &ChannelSubscribe{}
	case ActionChannelUnsubscribe:
		out = &ChannelUnsubscribe{}
	case ActionThreadSubscribe:
		out = &ThreadSubscribe{}
	case ActionThreadUnsubscribe:
		out = &ThreadUnsubscribe{}
	case ActionTypingStart:
		out = &TypingStart{}
	case ActionTypingStop:
		out = &TypingStop{}
	case ActionMessageSend:
		out = &MessageSend{}
	case ActionEventsRead:
		out = &EventsRead{}
	case ActionCallJoin:
		out = &CallJoin{}
	case ActionCallLeave:
		out = &CallLeave{}
	case ActionCallInvite:
		out = &CallInvite{}
	case ActionCallDecline:
		out = &CallDecline{}
	case ActionCallOffer:
		out = &CallOffer{}
	case ActionCallAnswer:
		out = &CallAnswer{}
	case ActionCallCandidate:
		out = &CallCandidate{}
	case ActionCallMedia:
		out = &CallMedia{}
	default:
		return nil, fmt.Errorf("unknown action: %s", envelope.Action)
	}

	if len(envelope.Payload) > 0 {
		if err := jsoniter.Unmarshal(envelope.Payload, out); err != nil {
			return nil, fmt.Errorf("unable to parse payload of %s: %v", envelope.Action, err)
		}
	}
	if err := validation.Struct(out); err != nil {
		return nil, fmt.Errorf("invalid payload of %s: %v", envelope.Action, err)
	}

	return out, nil
}
