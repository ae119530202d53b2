package db

import (
	"fmt"

	"github.com/zulandar/showrunner/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.ProjectRecord{},
		&models.ImageBlob{},
		&models.ImageHash{},
		&models.SweepRun{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// OpenMigrated opens an in-memory SQLite database with every table created.
// Tests across packages use it instead of a file-backed store.
func OpenMigrated() (*gorm.DB, error) {
	gdb, err := OpenSQLite(":memory:")
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}
