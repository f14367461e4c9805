package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

func int64Ptr(i int64) *int64 { return &i }

func TestUploadStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusError.IsTerminal())
	assert.True(t, StatusSuccess.IsTerminal())
	assert.True(t, StatusDuplicate.IsTerminal())
}

func TestUploadStatus_Valid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusError.Valid())
	assert.False(t, UploadStatus("uploading").Valid())
	assert.False(t, UploadStatus("").Valid())
}

func TestMetadata_CaptureTimestamp(t *testing.T) {
	// Parsable date_taken wins over modified_time
	meta := &Metadata{
		DateTaken:    strPtr("2020:01:01 10:00:00"),
		ModifiedTime: floatPtr(9_999_999_999),
	}
	expected := float64(time.Date(2020, 1, 1, 10, 0, 0, 0, time.Local).Unix())
	assert.Equal(t, expected, meta.CaptureTimestamp())

	// Trailing fractional seconds are tolerated
	meta = &Metadata{DateTaken: strPtr("2021:06:15 12:00:00.123")}
	expected = float64(time.Date(2021, 6, 15, 12, 0, 0, 0, time.Local).Unix())
	assert.Equal(t, expected, meta.CaptureTimestamp())

	// Unparseable date_taken falls back to modified_time
	meta = &Metadata{
		DateTaken:    strPtr("not a date"),
		ModifiedTime: floatPtr(1600000000),
	}
	assert.Equal(t, float64(1600000000), meta.CaptureTimestamp())

	// No date_taken falls back to modified_time
	meta = &Metadata{ModifiedTime: floatPtr(1500000000)}
	assert.Equal(t, float64(1500000000), meta.CaptureTimestamp())

	// Nothing known ranks as oldest
	assert.Equal(t, float64(0), (&Metadata{}).CaptureTimestamp())
	assert.Equal(t, float64(0), (*Metadata)(nil).CaptureTimestamp())
}

func TestMetadata_SerializationOmitsAbsentFields(t *testing.T) {
	record := &MediaFile{}
	err := record.SetMetadata(&Metadata{
		FileSize:     int64Ptr(1024),
		ModifiedTime: floatPtr(1600000000),
		ImageWidth:   intPtr(800),
		ImageHeight:  intPtr(600),
	})
	assert.NoError(t, err)
	assert.NotNil(t, record.MetadataInfo)

	serialized := *record.MetadataInfo
	assert.Contains(t, serialized, `"file_size":1024`)
	assert.Contains(t, serialized, `"image_width":800`)
	assert.NotContains(t, serialized, "camera_make")
	assert.NotContains(t, serialized, "date_taken")
	assert.NotContains(t, serialized, "error")
}

func TestMediaFile_MetadataRoundTrip(t *testing.T) {
	record := &MediaFile{}

	original := &Metadata{
		CameraMake:  strPtr("Canon"),
		CameraModel: strPtr("EOS R5"),
		DateTaken:   strPtr("2021:06:15 12:00:00"),
		ISO:         strPtr("100"),
	}
	assert.NoError(t, record.SetMetadata(original))

	parsed := record.Metadata()
	assert.NotNil(t, parsed)
	assert.Equal(t, "Canon", *parsed.CameraMake)
	assert.Equal(t, "EOS R5", *parsed.CameraModel)
	assert.Equal(t, "2021:06:15 12:00:00", *parsed.DateTaken)
	assert.Equal(t, "100", *parsed.ISO)
	assert.Nil(t, parsed.LensModel)
	assert.Nil(t, parsed.Error)
}

func TestMediaFile_MetadataDegenerateValues(t *testing.T) {
	record := &MediaFile{}
	assert.Nil(t, record.Metadata())

	assert.NoError(t, record.SetMetadata(nil))
	assert.Nil(t, record.MetadataInfo)
	assert.Nil(t, record.Metadata())

	// The SQL value "null" counts as no metadata, matching the stats query
	record.MetadataInfo = strPtr("null")
	assert.Nil(t, record.Metadata())

	record.MetadataInfo = strPtr("{not json")
	assert.Nil(t, record.Metadata())
}

func TestMediaFile_CaptureTimestampWithoutMetadata(t *testing.T) {
	record := &MediaFile{}
	assert.Equal(t, float64(0), record.CaptureTimestamp())
}
