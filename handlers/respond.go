package handlers

import (
	"github.com/NIU1603490/eraswap-sub000/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// respondError maps the service error taxonomy to HTTP status codes.
// Unclassified errors are reported as opaque 500s.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case apperr.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case apperr.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case apperr.IsConflict(err):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case apperr.IsForbidden(err):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

// currentUserID reads the authenticated user from Locals, set by
// utils.AuthMiddleware.
func currentUserID(c *fiber.Ctx) uint {
	if id, ok := c.Locals("user_id").(uint); ok {
		return id
	}
	if id, ok := c.Locals("user_id").(float64); ok {
		return uint(id)
	}
	return 0
}
