package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/internal/services"
)

func (h *API) getUserinfo(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	return c.JSON(user)
}

func (h *API) getOthersInfo(c *fiber.Ctx) error {
	accountId, err := c.ParamsInt("accountId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	account, err := services.GetAccount(uint(accountId))
	if err != nil {
		return err
	}
	return c.JSON(account)
}
