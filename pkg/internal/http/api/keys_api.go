package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/banterhq/banter/pkg/internal/http/exts"
	"github.com/banterhq/banter/pkg/internal/models"
	"github.com/banterhq/banter/pkg/internal/services"
)

func (h *API) publishKeyBundle(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	var data struct {
		PublicKey string `json:"public_key" validate:"required"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	bundle, err := services.PublishKeyBundle(user, data.PublicKey)
	if err != nil {
		return err
	}
	return c.JSON(bundle)
}

func (h *API) getKeyBundle(c *fiber.Ctx) error {
	accountId, err := c.ParamsInt("accountId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	bundle, err := services.GetKeyBundle(uint(accountId))
	if err != nil {
		return err
	}
	return c.JSON(bundle)
}
