package handlers

import (
	"errors"

	"github.com/NIU1603490/eraswap-sub000/models"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type CategoryHandler struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

func NewCategoryHandler(db *gorm.DB, logger zerolog.Logger) *CategoryHandler {
	return &CategoryHandler{DB: db, Log: logger}
}

// GetCategories - GET /api/categories
// The taxonomy is seeded at startup, so this is a plain ordered read.
func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := h.DB.Order("name").Find(&categories).Error; err != nil {
		h.Log.Error().Err(err).Msg("Failed to list categories")
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": categories})
}

// GetCategory - GET /api/categories/:slug
func (h *CategoryHandler) GetCategory(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var category models.Category
	if err := h.DB.Where("slug = ?", slug).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Category not found"})
		}
		h.Log.Error().Err(err).Str("slug", slug).Msg("Failed to load category")
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": category})
}
