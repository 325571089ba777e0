package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/internal/services"
)

func channelScope(channel models.Channel) services.Scope {
	return services.Scope{
		WorkspaceID: channel.WorkspaceID,
		ChannelID:   &channel.ID,
		Channel:     &channel,
	}
}

func threadScope(thread models.DirectThread) services.Scope {
	return services.Scope{
		WorkspaceID: thread.WorkspaceID,
		ThreadID:    &thread.ID,
		Thread:      &thread,
	}
}

func (h *API) listChannelEvent(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	take := c.QueryInt("take", 50)
	offset := c.QueryInt("offset", 0)

	channel, _, err := resolveChannel(c, user)
	if err != nil {
		return err
	}

	scope := channelScope(channel)
	count := services.CountEvent(scope)
	events, err := services.ListEvent(scope, take, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count": count,
		"data":  events,
	})
}

func (h *API) getChannelEvent(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	eventId, err := c.ParamsInt("eventId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	channel, _, err := resolveChannel(c, user)
	if err != nil {
		return err
	}

	event, err := services.GetEvent(channelScope(channel), uint(eventId))
	if err != nil {
		return err
	}
	return c.JSON(event)
}

func (h *API) listThreadEvent(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	take := c.QueryInt("take", 50)
	offset := c.QueryInt("offset", 0)
	threadId, err := c.ParamsInt("threadId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	thread, _, err := services.RequireThreadAccess(user.ID, uint(threadId))
	if err != nil {
		return err
	}

	scope := threadScope(thread)
	count := services.CountEvent(scope)
	events, err := services.ListEvent(scope, take, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count": count,
		"data":  events,
	})
}
