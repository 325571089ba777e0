// Package http mounts the REST surface and the websocket gateway onto one
// fiber app.
package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/idempotency"
	"github.com/gofiber/fiber/v2/middleware/logger"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/banterhq/banter/pkg/internal/http/api"
	"github.com/banterhq/banter/pkg/internal/services"
)

// NewServer builds the fiber app around the injected API surface. The error
// handler is the single place the service error taxonomy meets HTTP status
// codes.
func NewServer(h *api.API) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		EnableIPValidation:    true,
		ServerHeader:          "Banter",
		AppName:               "Banter",
		ProxyHeader:           fiber.HeaderXForwardedFor,
		JSONEncoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
		BodyLimit:             4 * 1024 * 1024,
		EnablePrintRoutes:     viper.GetBool("debug.print_routes"),
		ErrorHandler:          mapServiceError,
	})

	app.Use(idempotency.New())
	app.Use(cors.New(cors.Config{
		AllowCredentials: true,
		AllowMethods: strings.Join([]string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodHead,
			fiber.MethodOptions,
			fiber.MethodPut,
			fiber.MethodDelete,
			fiber.MethodPatch,
		}, ","),
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
	}))

	app.Use(logger.New(logger.Config{
		Format: "${status} | ${latency} | ${method} ${path}\n",
		Output: log.Logger,
	}))

	h.MapAPIs(app, "/api")

	return app
}

func mapServiceError(c *fiber.Ctx, err error) error {
	if svcErr, ok := services.AsError(err); ok {
		status := fiber.StatusInternalServerError
		switch svcErr.Code {
		case services.ErrCodeNotFound:
			status = fiber.StatusNotFound
		case services.ErrCodeForbidden, services.ErrCodeNotMember:
			status = fiber.StatusForbidden
		case services.ErrCodeValidation:
			status = fiber.StatusUnprocessableEntity
		case services.ErrCodeConflict:
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(svcErr)
	}

	return fiber.DefaultErrorHandler(c, err)
}

func Listen(app *fiber.App) {
	if err := app.Listen(viper.GetString("bind")); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when starting server...")
	}
}
