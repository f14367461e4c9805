package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0.00B", FormatSize(0))
	assert.Equal(t, "512.00B", FormatSize(512))
	assert.Equal(t, "1.00KB", FormatSize(1024))
	assert.Equal(t, "1.50MB", FormatSize(1572864))
	assert.Equal(t, "2.00GB", FormatSize(2147483648))
	assert.Equal(t, "1.00TB", FormatSize(1099511627776))
	assert.Equal(t, "1.00PB", FormatSize(1125899906842624))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "0.0s", FormatTime(0))
	assert.Equal(t, "42.0s", FormatTime(42))
	assert.Equal(t, "59.9s", FormatTime(59.9))
	assert.Equal(t, "1m 0s", FormatTime(60))
	assert.Equal(t, "4m 5s", FormatTime(245))
	assert.Equal(t, "59m 59s", FormatTime(3599))
	assert.Equal(t, "1h 0m", FormatTime(3600))
	assert.Equal(t, "2h 7m", FormatTime(7620))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m 30s", FormatDuration(150*time.Second))
}
