package config

import (
	"github.com/NIU1603490/eraswap-sub000/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Transaction{},
		&models.Conversation{},
		&models.Message{},
	)

	if err != nil {
		log.Error().Err(err).Msg("Failed to migrate database schema")
		return err
	}

	log.Info().Msg("Database migrations completed")

	// Ensure categories are seeded even on normal migration
	SeedCategories(db)

	return nil
}

func ResetAndMigrate(db *gorm.DB) error {
	tables := []interface{}{
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Transaction{},
		&models.Conversation{},
		&models.Message{},
	}

	if err := db.Migrator().DropTable(tables...); err != nil {
		log.Error().Err(err).Msg("Failed to drop tables")
		return err
	}

	if err := db.AutoMigrate(tables...); err != nil {
		log.Error().Err(err).Msg("Failed to auto migrate")
		return err
	}

	SeedCategories(db)
	SeedUsers(db)

	log.Info().Msg("Database reset and migration completed")
	return nil
}
