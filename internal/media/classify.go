package media

import (
	"path/filepath"
	"strings"
)

// Kind classifies a path by its extension
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindVideo
)

// String returns the kind name used in logs and metrics labels
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Classifier recognizes media files by extension, case-insensitively
type Classifier struct {
	images map[string]struct{}
	videos map[string]struct{}
}

// NewClassifier builds a classifier from extension lists. Entries are
// normalized (lowercased, leading dot stripped) so callers may pass raw
// configuration values.
func NewClassifier(imageExtensions, videoExtensions []string) *Classifier {
	return &Classifier{
		images: toExtensionSet(imageExtensions),
		videos: toExtensionSet(videoExtensions),
	}
}

func toExtensionSet(extensions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		ext = strings.TrimPrefix(ext, ".")
		if ext != "" {
			set[ext] = struct{}{}
		}
	}
	return set
}

// Classify reports the media kind of path
func (c *Classifier) Classify(path string) Kind {
	ext := NormalizedExtension(path)
	if ext == "" {
		return KindUnknown
	}
	if _, ok := c.images[ext]; ok {
		return KindImage
	}
	if _, ok := c.videos[ext]; ok {
		return KindVideo
	}
	return KindUnknown
}

// IsMedia reports whether path has a recognized image or video extension
func (c *Classifier) IsMedia(path string) bool {
	return c.Classify(path) != KindUnknown
}

// NormalizedExtension returns the lowercased extension of path without the
// leading dot, or "" when the path has none.
func NormalizedExtension(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
