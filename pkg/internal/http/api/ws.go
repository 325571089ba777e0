package api

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"

	"github.com/banterhq/banter/pkg/internal/gateway"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/internal/services"
	"github.com/banterhq/banter/pkg/proto"
)

// unifiedGateway runs one authenticated realtime connection end to end. The
// read loop dispatches frames in order; when it returns, the disconnect is
// the cancellation signal: rooms are vacated, presence flips offline once
// the last connection is gone, and open call participations close through
// the same path an explicit hangup takes.
func (h *API) unifiedGateway(conn *websocket.Conn) {
	user := conn.Locals("user").(models.Account)

	client := gateway.NewClient(user, conn)
	h.Gateway.Register(client)
	go client.WritePump()

	if err := h.Presence.SetOnline(user); err != nil {
		log.Warn().Err(err).Uint("account", user.ID).Msg("Unable to mark account online...")
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-client.Done():
				return
			case <-ticker.C:
				h.Presence.Heartbeat(user.ID)
			}
		}
	}()

	client.Listen(func(raw []byte) {
		h.dispatch(client, user, raw)
	})

	h.Gateway.Unregister(client)
	if !h.Gateway.IsOnline(user.ID) {
		h.Calls.LeaveAll(user)
		if err := h.Presence.SetOffline(user); err != nil {
			log.Warn().Err(err).Uint("account", user.ID).Msg("Unable to mark account offline...")
		}
	}
}

// dispatch decodes one frame into its tagged variant and routes it. The
// switch is exhaustive over the closed packet set; a failure of any arm
// answers the sender alone and never touches other connections.
func (h *API) dispatch(client *gateway.Client, user models.Account, raw []byte) {
	pkt, err := proto.DecodeClientPacket(raw)
	if err != nil {
		client.Push(proto.Packet{Action: proto.EventError, Message: err.Error()})
		return
	}

	switch data := pkt.(type) {
	case *proto.ChannelSubscribe:
		if _, _, err = services.RequireChannelAccess(user.ID, data.ChannelID); err == nil {
			h.Gateway.Join(client, gateway.ChannelRoom(data.ChannelID))
		}
	case *proto.ChannelUnsubscribe:
		h.Gateway.Leave(client, gateway.ChannelRoom(data.ChannelID))
	case *proto.ThreadSubscribe:
		if _, _, err = services.RequireThreadAccess(user.ID, data.ThreadID); err == nil {
			h.Gateway.Join(client, gateway.ThreadRoom(data.ThreadID))
		}
	case *proto.ThreadUnsubscribe:
		h.Gateway.Leave(client, gateway.ThreadRoom(data.ThreadID))
	case *proto.TypingStart:
		var scope services.Scope
		if scope, err = services.RequireScopeAccess(user.ID, data.ChannelID, data.ThreadID); err == nil {
			err = h.Presence.SetTyping(scope.Room(), user, proto.TypingUpdate{
				ChannelID: data.ChannelID,
				ThreadID:  data.ThreadID,
			})
		}
	case *proto.TypingStop:
		var scope services.Scope
		if scope, err = services.RequireScopeAccess(user.ID, data.ChannelID, data.ThreadID); err == nil {
			err = h.Presence.ClearTyping(scope.Room(), user, proto.TypingUpdate{
				ChannelID: data.ChannelID,
				ThreadID:  data.ThreadID,
			})
		}
	case *proto.MessageSend:
		var scope services.Scope
		if scope, err = services.RequireScopeAccess(user.ID, data.ChannelID, data.ThreadID); err == nil {
			_, err = h.Events.NewMessage(scope, user, models.EventMessageBody{
				Text:         data.Text,
				Algorithm:    data.Algorithm,
				Nonce:        data.Nonce,
				Attachments:  data.Attachments,
				QuoteEventID: data.QuoteEventID,
			})
		}
	case *proto.EventsRead:
		var member *models.ChannelMember
		if _, member, err = services.RequireChannelAccess(user.ID, data.ChannelID); err == nil && member != nil {
			services.SetReadingAnchor(member.ID, data.EventID)
		}
	case *proto.CallJoin:
		err = h.handleCallJoin(client, user, data.CallID)
	case *proto.CallLeave:
		err = h.handleCallLeave(client, user, data.CallID)
	case *proto.CallInvite:
		err = h.Relay.Invite(user, *data)
	case *proto.CallDecline:
		err = h.Relay.Decline(user, *data)
	case *proto.CallOffer:
		err = h.Relay.Offer(user, *data)
	case *proto.CallAnswer:
		err = h.Relay.Answer(user, *data)
	case *proto.CallCandidate:
		err = h.Relay.Candidate(user, *data)
	case *proto.CallMedia:
		err = h.Relay.Media(user, *data)
	}

	if err != nil {
		client.Push(proto.Packet{Action: proto.EventError, Message: err.Error()})
	}
}

func (h *API) handleCallJoin(client *gateway.Client, user models.Account, callId uint) error {
	call, err := services.GetCall(callId)
	if err != nil {
		return err
	}
	if _, err := services.RequireScopeAccess(user.ID, call.ChannelID, call.ThreadID); err != nil {
		return err
	}

	if _, err := h.Calls.Join(call, user); err != nil {
		return err
	}
	h.Gateway.Join(client, gateway.CallRoom(call.ID))
	return nil
}

// handleCallLeave broadcasts the departure before the sender drops out of
// the room, matching the relay's leave-then-remove ordering.
func (h *API) handleCallLeave(client *gateway.Client, user models.Account, callId uint) error {
	call, err := services.GetCall(callId)
	if err != nil {
		return err
	}

	if err := h.Calls.Leave(call, user); err != nil {
		return err
	}
	h.Gateway.Leave(client, gateway.CallRoom(call.ID))
	return nil
}
