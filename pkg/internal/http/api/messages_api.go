package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/banterhq/banter/pkg/internal/http/exts"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/internal/services"
)

type messageRequest struct {
	Text         string   `json:"text"`
	Algorithm    string   `json:"algorithm"`
	Nonce        string   `json:"nonce"`
	Attachments  []string `json:"attachments"`
	QuoteEventID *uint    `json:"quote_event_id"`
	RelatedUsers []uint   `json:"related_users"`
}

func (r messageRequest) body() models.EventMessageBody {
	return models.EventMessageBody{
		Text:         r.Text,
		Algorithm:    r.Algorithm,
		Nonce:        r.Nonce,
		Attachments:  r.Attachments,
		QuoteEventID: r.QuoteEventID,
		RelatedUsers: r.RelatedUsers,
	}
}

func (h *API) newChannelMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	var data messageRequest
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	channel, _, err := resolveChannel(c, user)
	if err != nil {
		return err
	}

	event, err := h.Events.NewMessage(channelScope(channel), user, data.body())
	if err != nil {
		return err
	}
	return c.JSON(event)
}

func (h *API) editChannelMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	messageId, err := c.ParamsInt("messageId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var data messageRequest
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	channel, _, err := resolveChannel(c, user)
	if err != nil {
		return err
	}

	scope := channelScope(channel)
	event, err := services.GetEventWithSender(scope, user, uint(messageId))
	if err != nil {
		return err
	}

	event, err = h.Events.EditMessage(scope, event, data.body())
	if err != nil {
		return err
	}
	return c.JSON(event)
}

func (h *API) deleteChannelMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	messageId, err := c.ParamsInt("messageId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	channel, _, err := resolveChannel(c, user)
	if err != nil {
		return err
	}

	scope := channelScope(channel)
	event, err := services.GetEventWithSender(scope, user, uint(messageId))
	if err != nil {
		return err
	}

	if err := h.Events.DeleteMessage(scope, event); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *API) newThreadMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	threadId, err := c.ParamsInt("threadId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var data messageRequest
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	thread, _, err := services.RequireThreadAccess(user.ID, uint(threadId))
	if err != nil {
		return err
	}

	event, err := h.Events.NewMessage(threadScope(thread), user, data.body())
	if err != nil {
		return err
	}
	return c.JSON(event)
}
