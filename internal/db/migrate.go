package db

import (
	"fmt"

	"github.com/zulandar/arena/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.AgentRun{},
		&models.Battle{},
		&models.Rating{},
		&models.DemoUsage{},
	}
}

// AutoMigrate creates or updates all arena tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
