package database

import (
	"fmt"

	"gorm.io/gorm"

	"medialift/internal/logging"
	"medialift/internal/models"
)

// MigrationManager manages catalog schema migrations
type MigrationManager struct {
	db     *gorm.DB
	logger *logging.Logger
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(db *gorm.DB, logger *logging.Logger) *MigrationManager {
	return &MigrationManager{
		db:     db,
		logger: logger,
	}
}

// Migrate runs catalog schema migrations
func (m *MigrationManager) Migrate() error {
	// Let GORM create the table from the Go model
	if err := m.db.AutoMigrate(&models.MediaFile{}); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	if m.logger != nil {
		m.logger.Info().Msg("Catalog migrations completed successfully")
	}
	return nil
}
