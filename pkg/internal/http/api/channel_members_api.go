package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/banterhq/banter/pkg/internal/http/exts"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/internal/services"
)

func (h *API) listChannelMembers(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	take := c.QueryInt("take", 100)
	offset := c.QueryInt("offset", 0)

	channel, _, err := resolveChannel(c, user)
	if err != nil {
		return err
	}

	count, err := services.CountChannelMember(channel.ID)
	if err != nil {
		return err
	}
	members, err := services.ListChannelMember(channel.ID, take, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count": count,
		"data":  members,
	})
}

// addChannelMember joins the caller, or adds another account when the
// caller moderates the channel. Private channels only take members through a
// moderator.
func (h *API) addChannelMember(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	workspaceId, err := c.ParamsInt("workspaceId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var data struct {
		AccountID *uint `json:"account_id"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	channel, err := services.GetChannelWithAlias(uint(workspaceId), c.Params("channel"))
	if err != nil {
		return err
	}
	if _, err := services.RequireWorkspaceMember(user.ID, channel.WorkspaceID); err != nil {
		return err
	}

	target := user
	if data.AccountID != nil && *data.AccountID != user.ID {
		member, err := services.GetChannelMember(user, channel.ID)
		if err != nil || member.PowerLevel < 50 {
			return services.NewForbidden("you must be a channel moderator to add others")
		}
		if target, err = services.GetAccount(*data.AccountID); err != nil {
			return err
		}
	} else if !channel.IsPublic {
		return services.NewForbidden("this channel is invitation only")
	}

	if err := services.AddChannelMember(target, channel); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *API) removeOwnChannelMember(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	channel, member, err := resolveChannel(c, user)
	if err != nil {
		return err
	}
	if member == nil {
		return services.NewNotFound("you have no membership in this channel")
	}
	if channel.AccountID == user.ID {
		return services.NewForbidden("the channel owner cannot leave their own channel")
	}

	if err := services.RemoveChannelMember(*member, channel); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}
