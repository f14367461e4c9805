// Package catalog persists the inventory of discovered media files and
// tracks each file through its upload lifecycle.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"gorm.io/gorm"

	"medialift/internal/database"
	"medialift/internal/logging"
	"medialift/internal/models"
)

// Stats summarizes the catalog contents
type Stats struct {
	ByStatus      map[models.UploadStatus]int64 `json:"by_status"`
	Total         int64                         `json:"total"`
	PendingUpload int64                         `json:"pending_upload"`
	WithMetadata  int64                         `json:"with_metadata"`
}

// Store provides catalog operations over the shared database manager.
// Reads run as single statements; mutations open their own transaction.
type Store struct {
	manager *database.DatabaseManager
	logger  *logging.Logger
}

// NewStore creates a new catalog store
func NewStore(manager *database.DatabaseManager, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewLogger(logging.ErrorLevel, io.Discard)
	}
	return &Store{
		manager: manager,
		logger:  logger,
	}
}

// db verifies the connection and returns a context-scoped handle
func (s *Store) db(ctx context.Context) (*gorm.DB, error) {
	if err := s.manager.EnsureConnection(ctx); err != nil {
		return nil, fmt.Errorf("database unavailable: %w", err)
	}
	return s.manager.GetGormDB().WithContext(ctx), nil
}

// InsertIfAbsent catalogs a newly discovered file. A record already present
// under the same path is left untouched regardless of its status, so
// re-scanning a tree never disturbs upload history.
func (s *Store) InsertIfAbsent(ctx context.Context, record *models.MediaFile) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var existing models.MediaFile
		err := tx.Select("id").Where("filepath = ?", record.Filepath).Take(&existing).Error
		if err == nil {
			s.logger.Debug().Str("file_path", record.Filepath).Msg("File already cataloged")
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up %s: %w", record.Filepath, err)
		}

		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to insert record for %s: %w", record.Filepath, err)
		}
		s.logger.Debug().Str("file_path", record.Filepath).Msg("File cataloged")
		return nil
	})
}

// InsertOrAdvance catalogs a file for the combined scan-and-upload flow and
// reports the status the caller should act on. A record in a terminal state
// is returned untouched. A retryable record gets its descriptive fields
// refreshed (the file on disk may have changed since the last scan) and is
// reported as pending. An unknown path is inserted as pending.
func (s *Store) InsertOrAdvance(ctx context.Context, record *models.MediaFile) (models.UploadStatus, uint, error) {
	db, err := s.db(ctx)
	if err != nil {
		return "", 0, err
	}

	var (
		status models.UploadStatus
		id     uint
	)

	err = db.Transaction(func(tx *gorm.DB) error {
		var existing models.MediaFile
		err := tx.Select("id", "upload_status").Where("filepath = ?", record.Filepath).Take(&existing).Error

		switch {
		case err == nil && existing.UploadStatus.IsTerminal():
			s.logger.Debug().Str("file_path", record.Filepath).
				Str("status", string(existing.UploadStatus)).
				Msg("File already uploaded")
			status, id = existing.UploadStatus, existing.ID
			return nil

		case err == nil:
			updates := map[string]interface{}{
				"filename":      record.Filename,
				"directory":     record.Directory,
				"file_size":     record.FileSize,
				"hash":          record.Hash,
				"extension":     record.Extension,
				"metadata_info": record.MetadataInfo,
			}
			if err := tx.Model(&models.MediaFile{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to refresh record for %s: %w", record.Filepath, err)
			}
			s.logger.Debug().Str("file_path", record.Filepath).Msg("Record refreshed")
			status, id = models.StatusPending, existing.ID
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("failed to insert record for %s: %w", record.Filepath, err)
			}
			s.logger.Debug().Str("file_path", record.Filepath).Msg("New record cataloged")
			status, id = models.StatusPending, record.ID
			return nil

		default:
			return fmt.Errorf("failed to look up %s: %w", record.Filepath, err)
		}
	})
	if err != nil {
		return "", 0, err
	}
	return status, id, nil
}

// UpdateStatus records an upload outcome. It is the only writer of terminal
// states; every call stamps the upload date so retries are traceable.
func (s *Store) UpdateStatus(ctx context.Context, id uint, status models.UploadStatus, apiResponse *string) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"upload_status": status,
			"api_response":  apiResponse,
			"upload_date":   time.Now(),
		}
		result := tx.Model(&models.MediaFile{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update status for id %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("no record with id %d", id)
		}
		s.logger.Debug().Uint("id", id).Str("status", string(status)).Msg("Status updated")
		return nil
	})
}

// GetPending returns the files still awaiting upload, newest capture first.
// Errored files are included so a later run retries them. The ordering key
// lives inside the serialized metadata, so sorting happens here rather than
// in SQL; the sort is stable to keep equal-key runs in insertion order.
func (s *Store) GetPending(ctx context.Context) ([]models.MediaFile, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	var files []models.MediaFile
	err = db.Where("upload_status IN ?", []models.UploadStatus{models.StatusPending, models.StatusError}).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query pending files: %w", err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].CaptureTimestamp() > files[j].CaptureTimestamp()
	})

	s.logger.Info().Int("count", len(files)).Msg("Pending files loaded")
	return files, nil
}

// GetStats computes catalog statistics in a single pass of grouped counts
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{ByStatus: make(map[models.UploadStatus]int64)}

	var grouped []struct {
		UploadStatus models.UploadStatus
		Count        int64
	}
	err = db.Model(&models.MediaFile{}).
		Select("upload_status, COUNT(*) as count").
		Group("upload_status").
		Scan(&grouped).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	for _, row := range grouped {
		stats.ByStatus[row.UploadStatus] = row.Count
		stats.Total += row.Count
		if row.UploadStatus == models.StatusPending || row.UploadStatus == models.StatusError {
			stats.PendingUpload += row.Count
		}
	}

	err = db.Model(&models.MediaFile{}).
		Where("metadata_info IS NOT NULL AND metadata_info != ?", "null").
		Count(&stats.WithMetadata).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count metadata coverage: %w", err)
	}

	return stats, nil
}
