// Package scanner discovers media files under a source tree.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"medialift/internal/logging"
	"medialift/internal/media"
)

// Candidate is a media file discovered during a walk. The modification time
// is captured during the traversal so ordering needs no second stat pass.
type Candidate struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Scanner walks a directory tree and keeps the media files
type Scanner struct {
	classifier *media.Classifier
	logger     *logging.Logger
}

// NewScanner creates a new scanner
func NewScanner(classifier *media.Classifier, logger *logging.Logger) *Scanner {
	return &Scanner{
		classifier: classifier,
		logger:     logger,
	}
}

// Scan walks root (narrowed to folderFilter when set) and returns the media
// files ordered oldest modification first, so uploads replay the tree in
// rough chronological order. Unreadable entries below the root are logged
// and skipped. Cancellation discards the partial list.
func (s *Scanner) Scan(ctx context.Context, root, folderFilter string) ([]Candidate, error) {
	base := root
	if folderFilter != "" {
		base = filepath.Join(root, folderFilter)
	}

	var found []Candidate
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == base {
				return walkErr
			}
			s.logger.Warn().Str("file_path", path).Err(walkErr).Msg("Skipping unreadable entry")
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !s.classifier.IsMedia(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.logger.Warn().Str("file_path", path).Err(err).Msg("Skipping file without readable attributes")
			return nil
		}

		found = append(found, Candidate{Path: path, Size: info.Size(), ModTime: info.ModTime()})
		if len(found)%1000 == 0 {
			s.logger.Debug().Int("count", len(found)).Msg("Scan in progress")
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to scan %s: %w", base, err)
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].ModTime.Before(found[j].ModTime)
	})

	s.logger.Info().Int("count", len(found)).Str("directory", base).Msg("Media files discovered")
	return found, nil
}
