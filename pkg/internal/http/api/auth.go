package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/banterhq/banter/pkg/internal/services"
)

// authMiddleware admits bearer credentials from the Authorization header or,
// for websocket dialers that cannot set headers, the tk query parameter. A
// bad credential is fatal to the request; there is no anonymous fallback.
func authMiddleware(c *fiber.Ctx) error {
	tk := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if len(tk) == 0 {
		tk = c.Query("tk")
	}
	if len(tk) == 0 {
		return fiber.NewError(fiber.StatusUnauthorized, "missing bearer credential")
	}

	user, err := services.Authenticate(tk)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}

	c.Locals("user", user)
	return c.Next()
}
