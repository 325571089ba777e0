package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/banterhq/banter/pkg/internal/http/exts"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/internal/services"
)

// resolveChannel parses the workspace id and channel alias off the route and
// authorizes the caller in one go.
func resolveChannel(c *fiber.Ctx, user models.Account) (models.Channel, *models.ChannelMember, error) {
	workspaceId, err := c.ParamsInt("workspaceId")
	if err != nil {
		return models.Channel{}, nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	channel, err := services.GetChannelWithAlias(uint(workspaceId), c.Params("channel"))
	if err != nil {
		return channel, nil, err
	}

	return services.RequireChannelAccess(user.ID, channel.ID)
}

func (h *API) listChannel(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	workspaceId, err := c.ParamsInt("workspaceId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if _, err := services.RequireWorkspaceMember(user.ID, uint(workspaceId)); err != nil {
		return err
	}

	channels, err := services.ListWorkspaceChannel(user, uint(workspaceId))
	if err != nil {
		return err
	}
	return c.JSON(channels)
}

func (h *API) createChannel(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	workspaceId, err := c.ParamsInt("workspaceId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var data struct {
		Alias       string `json:"alias" validate:"required,lowercase,min=2,max=32"`
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
		IsPublic    bool   `json:"is_public"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if _, err := services.RequireWorkspaceMember(user.ID, uint(workspaceId)); err != nil {
		return err
	}

	channel, err := services.NewChannel(models.Channel{
		Alias:       data.Alias,
		Name:        data.Name,
		Description: data.Description,
		IsPublic:    data.IsPublic,
		AccountID:   user.ID,
		WorkspaceID: uint(workspaceId),
	})
	if err != nil {
		return err
	}
	return c.JSON(channel)
}

func (h *API) getChannel(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	channel, _, err := resolveChannel(c, user)
	if err != nil {
		return err
	}
	return c.JSON(channel)
}

// getChannelIdentity answers with the caller's own membership in a channel.
func (h *API) getChannelIdentity(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	_, member, err := resolveChannel(c, user)
	if err != nil {
		return err
	}
	if member == nil {
		return services.NewNotFound("you have no membership in this channel")
	}
	return c.JSON(member)
}

func (h *API) editChannel(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	var data struct {
		Alias       string `json:"alias" validate:"required,lowercase,min=2,max=32"`
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
		IsPublic    bool   `json:"is_public"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	channel, member, err := resolveChannel(c, user)
	if err != nil {
		return err
	}
	if channel.AccountID != user.ID && (member == nil || member.PowerLevel < 50) {
		return services.NewForbidden("you cannot edit this channel")
	}

	if channel.Alias != data.Alias {
		if err := services.GetChannelAliasAvailability(channel.WorkspaceID, data.Alias); err != nil {
			return err
		}
	}

	channel, err = services.EditChannel(channel, data.Alias, data.Name, data.Description, data.IsPublic)
	if err != nil {
		return err
	}
	return c.JSON(channel)
}

func (h *API) deleteChannel(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	channel, _, err := resolveChannel(c, user)
	if err != nil {
		return err
	}
	if channel.AccountID != user.ID {
		return services.NewForbidden("only the channel owner can delete it")
	}

	if err := services.DeleteChannel(channel); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}
