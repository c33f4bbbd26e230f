package config

import (
	"errors"

	"github.com/NIU1603490/eraswap-sub000/models"
	"github.com/NIU1603490/eraswap-sub000/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func SeedCategories(db *gorm.DB) {
	categories := []models.Category{
		{Name: "Electronics", Slug: "electronics"},
		{Name: "Furniture", Slug: "furniture"},
		{Name: "Books", Slug: "books"},
		{Name: "Clothing", Slug: "clothing"},
		{Name: "Sports", Slug: "sports"},
		{Name: "Kitchen", Slug: "kitchen"},
		{Name: "Other", Slug: "other"},
	}

	for _, category := range categories {
		var existing models.Category
		err := db.Where("slug = ?", category.Slug).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&category).Error; err != nil {
				log.Warn().Err(err).Str("slug", category.Slug).Msg("Failed to seed category")
			}
		}
	}
}

func SeedUsers(db *gorm.DB) {
	log.Info().Msg("Seeding users")

	password, _ := utils.HashPassword("password123")

	users := []models.User{
		{
			Username:   "anna",
			Email:      "anna@example.com",
			Password:   password,
			FullName:   "Anna Serra",
			City:       "Barcelona",
			Country:    "Spain",
			University: "UAB",
			Role:       "user",
		},
		{
			Username:   "marc",
			Email:      "marc@example.com",
			Password:   password,
			FullName:   "Marc Puig",
			City:       "Barcelona",
			Country:    "Spain",
			University: "UAB",
			Role:       "user",
		},
	}

	for _, user := range users {
		var existing models.User
		err := db.Where("email = ?", user.Email).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&user).Error; err != nil {
				log.Warn().Err(err).Str("username", user.Username).Msg("Failed to seed user")
			} else {
				log.Info().Str("username", user.Username).Uint("id", user.ID).Msg("User seeded")
			}
		}
	}
}
