package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadStatus represents the upload lifecycle state of a media file
type UploadStatus string

const (
	StatusPending   UploadStatus = "pending"
	StatusSuccess   UploadStatus = "success"
	StatusDuplicate UploadStatus = "duplicate"
	StatusError     UploadStatus = "error"
)

// IsTerminal reports whether the status permits no further automatic transition
func (s UploadStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusDuplicate
}

// Valid reports whether s is a recognized status value
func (s UploadStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusDuplicate, StatusError:
		return true
	}
	return false
}

// dateTakenLayout is the capture timestamp form written by cameras
const dateTakenLayout = "2006:01:02 15:04:05"

// Metadata represents the descriptive attributes extracted from a media file.
// Every field is optional; absent fields are omitted from the serialized form
// and absence never signals an error by itself.
type Metadata struct {
	FileSize     *int64   `json:"file_size,omitempty"`
	CreatedTime  *float64 `json:"created_time,omitempty"`
	ModifiedTime *float64 `json:"modified_time,omitempty"`
	CameraMake   *string  `json:"camera_make,omitempty"`
	CameraModel  *string  `json:"camera_model,omitempty"`
	LensModel    *string  `json:"lens_model,omitempty"`
	DateTaken    *string  `json:"date_taken,omitempty"`
	ExposureTime *string  `json:"exposure_time,omitempty"`
	FNumber      *string  `json:"f_number,omitempty"`
	ISO          *string  `json:"iso,omitempty"`
	FocalLength  *string  `json:"focal_length,omitempty"`
	Flash        *string  `json:"flash,omitempty"`
	GPSLatitude  *string  `json:"gps_latitude,omitempty"`
	GPSLongitude *string  `json:"gps_longitude,omitempty"`
	ImageWidth   *int     `json:"image_width,omitempty"`
	ImageHeight  *int     `json:"image_height,omitempty"`
	ImageMode    *string  `json:"image_mode,omitempty"`
	Error        *string  `json:"error,omitempty"`

	// Extra carries forward tags with no dedicated field
	Extra map[string]string `json:"extra,omitempty"`
}

// CaptureTimestamp returns the best-known capture time as unix seconds: the
// date_taken tag when parsable (a trailing fractional-seconds suffix is
// tolerated), otherwise the recorded filesystem modification time, otherwise
// zero.
func (m *Metadata) CaptureTimestamp() float64 {
	if m == nil {
		return 0
	}

	if m.DateTaken != nil {
		raw := strings.TrimSpace(*m.DateTaken)
		if t, err := time.ParseInLocation(dateTakenLayout, raw, time.Local); err == nil {
			return float64(t.Unix())
		}
		if idx := strings.Index(raw, "."); idx > 0 {
			if t, err := time.ParseInLocation(dateTakenLayout, raw[:idx], time.Local); err == nil {
				return float64(t.Unix())
			}
		}
	}

	return m.modifiedOrZero()
}

func (m *Metadata) modifiedOrZero() float64 {
	if m.ModifiedTime == nil {
		return 0
	}
	return *m.ModifiedTime
}

// MediaFile represents the media_files table: one row per unique filesystem
// path ever seen. Filepath is the natural identity of a record; the content
// hash is informational only.
type MediaFile struct {
	ID           uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	AssetKey     uuid.UUID    `gorm:"type:varchar(36);uniqueIndex" json:"asset_key"`
	Filepath     string       `gorm:"size:500;uniqueIndex;not null" json:"filepath"`
	Filename     string       `gorm:"size:255;not null" json:"filename"`
	Directory    string       `gorm:"size:500" json:"directory"`
	FileSize     int64        `gorm:"not null;default:0" json:"file_size"`
	Hash         string       `gorm:"size:64" json:"hash"` // SHA-256 hex; empty when the file was unreadable
	Extension    string       `gorm:"size:16;index" json:"extension"`
	MetadataInfo *string      `gorm:"type:text" json:"metadata_info"`
	UploadStatus UploadStatus `gorm:"size:16;not null;default:'pending';index" json:"upload_status"`
	APIResponse  *string      `gorm:"type:text" json:"api_response"`
	UploadDate   *time.Time   `json:"upload_date"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (MediaFile) TableName() string {
	return "media_files"
}

// BeforeCreate sets the asset key before creating a media file record
func (m *MediaFile) BeforeCreate(tx *gorm.DB) error {
	if m.AssetKey == uuid.Nil {
		m.AssetKey = uuid.New()
	}
	return nil
}

// SetMetadata serializes meta into the metadata_info column; nil clears it
func (m *MediaFile) SetMetadata(meta *Metadata) error {
	if meta == nil {
		m.MetadataInfo = nil
		return nil
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	serialized := string(data)
	m.MetadataInfo = &serialized
	return nil
}

// Metadata deserializes the metadata_info column. Absent, empty, or
// unparseable content yields nil rather than an error.
func (m *MediaFile) Metadata() *Metadata {
	if m.MetadataInfo == nil {
		return nil
	}

	raw := strings.TrimSpace(*m.MetadataInfo)
	if raw == "" || raw == "null" {
		return nil
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil
	}
	return &meta
}

// CaptureTimestamp returns the record's best-known capture time, used to
// order pending uploads newest-first.
func (m *MediaFile) CaptureTimestamp() float64 {
	return m.Metadata().CaptureTimestamp()
}
