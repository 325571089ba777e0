package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/banterhq/banter/pkg/internal/http/exts"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/internal/services"
)

func (h *API) createThread(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	var data struct {
		WorkspaceID uint   `json:"workspace_id" validate:"required"`
		AccountIDs  []uint `json:"account_ids" validate:"required,min=1"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	workspace, err := services.GetWorkspace(data.WorkspaceID)
	if err != nil {
		return err
	}
	if _, err := services.RequireWorkspaceMember(user.ID, workspace.ID); err != nil {
		return err
	}

	others, err := services.ListAccount(lo.Uniq(lo.Filter(data.AccountIDs, func(item uint, index int) bool {
		return item != user.ID
	})))
	if err != nil {
		return err
	}
	if len(others) == 0 {
		return services.NewValidation("a direct thread needs at least one other participant")
	}

	thread, err := services.NewThread(workspace, user, others)
	if err != nil {
		return err
	}
	return c.JSON(thread)
}

func (h *API) listOwnedThread(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	workspaceId := c.QueryInt("workspace_id", 0)
	if workspaceId == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "workspace_id query parameter is required")
	}

	threads, err := services.ListAvailableThread(user, uint(workspaceId))
	if err != nil {
		return err
	}
	return c.JSON(threads)
}

func (h *API) getThread(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	threadId, err := c.ParamsInt("threadId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	thread, _, err := services.RequireThreadAccess(user.ID, uint(threadId))
	if err != nil {
		return err
	}
	return c.JSON(thread)
}

func (h *API) leaveThread(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	threadId, err := c.ParamsInt("threadId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	thread, participant, err := services.RequireThreadAccess(user.ID, uint(threadId))
	if err != nil {
		return err
	}

	if err := services.RemoveThreadParticipant(participant, thread); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}
