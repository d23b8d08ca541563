package database

import (
	"gorm.io/gorm"

	"github.com/djhunter67/study-site/internal/models"
)

// AutoMigrate applies the schema for all persistent models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.CacheEntry{},
	)
}
