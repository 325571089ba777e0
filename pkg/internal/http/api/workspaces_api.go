package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/banterhq/banter/pkg/internal/http/exts"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/internal/services"
)

func (h *API) createWorkspace(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	var data struct {
		Alias       string `json:"alias" validate:"required,lowercase,min=4,max=32"`
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
		IsPublic    bool   `json:"is_public"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	workspace, err := services.NewWorkspace(models.Workspace{
		Alias:       data.Alias,
		Name:        data.Name,
		Description: data.Description,
		IsPublic:    data.IsPublic,
		AccountID:   user.ID,
	})
	if err != nil {
		return err
	}
	return c.JSON(workspace)
}

func (h *API) listOwnedWorkspace(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	workspaces, err := services.ListAvailableWorkspace(user)
	if err != nil {
		return err
	}
	return c.JSON(workspaces)
}

func (h *API) getWorkspace(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	workspaceId, err := c.ParamsInt("workspaceId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	workspace, err := services.GetWorkspace(uint(workspaceId))
	if err != nil {
		return err
	}
	if !workspace.IsPublic {
		if _, err := services.RequireWorkspaceMember(user.ID, workspace.ID); err != nil {
			return err
		}
	}
	return c.JSON(workspace)
}

func (h *API) listWorkspaceMembers(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	workspaceId, err := c.ParamsInt("workspaceId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	take := c.QueryInt("take", 100)
	offset := c.QueryInt("offset", 0)

	if _, err := services.RequireWorkspaceMember(user.ID, uint(workspaceId)); err != nil {
		return err
	}

	count, err := services.CountWorkspaceMember(uint(workspaceId))
	if err != nil {
		return err
	}
	members, err := services.ListWorkspaceMember(uint(workspaceId), take, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count": count,
		"data":  members,
	})
}

// addWorkspaceMember enrolls oneself into a public workspace, or any account
// when the caller moderates the workspace.
func (h *API) addWorkspaceMember(c *fiber.Ctx) error {
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

	workspace, err := services.GetWorkspace(uint(workspaceId))
	if err != nil {
		return err
	}

	target := user
	if data.AccountID != nil && *data.AccountID != user.ID {
		member, err := services.RequireWorkspaceMember(user.ID, workspace.ID)
		if err != nil {
			return err
		}
		if member.PowerLevel < 50 {
			return services.NewForbidden("you must be a moderator to enroll others")
		}
		if target, err = services.GetAccount(*data.AccountID); err != nil {
			return err
		}
	} else if !workspace.IsPublic {
		return services.NewForbidden("this workspace is invitation only")
	}

	if err := services.AddWorkspaceMember(target, workspace); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}
