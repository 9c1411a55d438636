package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders every handler error as a JSON body instead of
// fiber's plain-text default. The text travels under both "error" and
// "message": admin clients read the former, validation consumers the
// latter.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"statusCode": code,
		"error":      err.Error(),
		"message":    err.Error(),
	})
}
