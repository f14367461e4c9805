package utils

import (
	"fmt"
	"time"
)

// FormatSize renders a byte count in human-readable form, stepping through
// binary units with two decimals (e.g. "1.50MB").
func FormatSize(bytes int64) string {
	size := float64(bytes)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if size < 1024.0 {
			return fmt.Sprintf("%.2f%s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.2fPB", size)
}

// FormatTime renders a number of seconds in human-readable form:
// "42.0s", "4m 5s", or "2h 7m".
func FormatTime(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	if seconds < 3600 {
		minutes := int(seconds) / 60
		secs := int(seconds) % 60
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// FormatDuration renders a duration with FormatTime semantics
func FormatDuration(d time.Duration) string {
	return FormatTime(d.Seconds())
}
