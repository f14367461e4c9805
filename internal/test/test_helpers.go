// Package test provides shared fixtures for package tests.
package test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"medialift/internal/database"
	"medialift/internal/models"
)

// GetTestDB creates an isolated in-memory database with the catalog schema.
// The pool is pinned to a single connection so every statement sees the same
// in-memory database and concurrent test goroutines serialize cleanly.
func GetTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.MediaFile{}))

	tearDown := func() {
		_ = sqlDB.Close()
	}

	return db, tearDown
}

// GetTestManager wraps an in-memory database in a DatabaseManager so store
// code paths run against the same handle type they use in production
func GetTestManager(t *testing.T) (*database.DatabaseManager, func()) {
	t.Helper()

	db, tearDown := GetTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	return database.NewDatabaseManagerFromExisting(db, sqlDB), tearDown
}

// CreateTestFile inserts a catalog record with sensible defaults
func CreateTestFile(t *testing.T, db *gorm.DB, filepath string, status models.UploadStatus) *models.MediaFile {
	t.Helper()

	record := &models.MediaFile{
		Filepath:     filepath,
		Filename:     filepath,
		Directory:    "/photos",
		FileSize:     1024,
		Hash:         "deadbeef",
		Extension:    "jpg",
		UploadStatus: status,
	}
	require.NoError(t, db.Create(record).Error)

	return record
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if condition() {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}

	return timeoutError{}
}

type timeoutError struct{}

func (timeoutError) Error() string {
	return "timeout waiting for condition"
}
