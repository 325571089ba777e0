package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/banterhq/banter/pkg/internal/http/exts"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/internal/services"
)

func queryScope(c *fiber.Ctx, user models.Account) (services.Scope, error) {
	var channelId, threadId *uint
	if val := c.QueryInt("channel_id", 0); val > 0 {
		id := uint(val)
		channelId = &id
	}
	if val := c.QueryInt("thread_id", 0); val > 0 {
		id := uint(val)
		threadId = &id
	}
	return services.RequireScopeAccess(user.ID, channelId, threadId)
}

func (h *API) startCall(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	var data struct {
		ChannelID *uint `json:"channel_id"`
		ThreadID  *uint `json:"thread_id"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	scope, err := services.RequireScopeAccess(user.ID, data.ChannelID, data.ThreadID)
	if err != nil {
		return err
	}

	call, err := h.Calls.Start(scope, user)
	if err != nil {
		return err
	}
	return c.JSON(call)
}

func (h *API) getOngoingCall(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	scope, err := queryScope(c, user)
	if err != nil {
		return err
	}

	call, err := services.GetOngoingCall(scope)
	if err != nil {
		return err
	}

	participants, err := services.ListCallParticipant(call.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"call":         call,
		"participants": participants,
	})
}

// resolveCall loads the call off the route and checks the caller could sit
// in its scope; being a participant is not required yet at this point.
func resolveCall(c *fiber.Ctx, user models.Account) (models.CallSession, error) {
	callId, err := c.ParamsInt("callId")
	if err != nil {
		return models.CallSession{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	call, err := services.GetCall(uint(callId))
	if err != nil {
		return call, err
	}

	if _, err := services.RequireScopeAccess(user.ID, call.ChannelID, call.ThreadID); err != nil {
		return call, err
	}
	return call, nil
}

func (h *API) joinCall(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	call, err := resolveCall(c, user)
	if err != nil {
		return err
	}

	participant, err := h.Calls.Join(call, user)
	if err != nil {
		return err
	}
	return c.JSON(participant)
}

func (h *API) leaveCall(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	call, err := resolveCall(c, user)
	if err != nil {
		return err
	}

	if err := h.Calls.Leave(call, user); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *API) endCall(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	call, err := resolveCall(c, user)
	if err != nil {
		return err
	}
	if !call.IsOngoing() {
		return services.NewNotFound("call #%d has already ended", call.ID)
	}

	if call.FounderID != user.ID {
		member, err := services.RequireWorkspaceMember(user.ID, call.WorkspaceID)
		if err != nil {
			return err
		}
		if member.PowerLevel < 50 {
			return services.NewForbidden("only the founder or a workspace moderator can end this call")
		}
	}

	if err := h.Calls.End(call, user); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *API) listCallParticipants(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	call, err := resolveCall(c, user)
	if err != nil {
		return err
	}

	participants, err := services.ListCallParticipant(call.ID)
	if err != nil {
		return err
	}
	return c.JSON(participants)
}

// exchangeCallToken mints a media-plane credential plus the ICE server list;
// only open participants can trade for one.
func (h *API) exchangeCallToken(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	callId, err := c.ParamsInt("callId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	call, _, err := services.RequireCallParticipant(user.ID, uint(callId))
	if err != nil {
		return err
	}

	tk, err := services.EncodeCallToken(user, call)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"token":       tk,
		"ice_servers": services.GetIceServers(),
	})
}

func (h *API) listChannelCall(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	take := c.QueryInt("take", 10)
	offset := c.QueryInt("offset", 0)

	channel, _, err := resolveChannel(c, user)
	if err != nil {
		return err
	}

	calls, err := services.ListCall(channelScope(channel), take, offset)
	if err != nil {
		return err
	}
	return c.JSON(calls)
}
