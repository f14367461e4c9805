//go:build !linux

package media

import "os"

// createdTime falls back to the modification time on platforms without a
// portable change-time field
func createdTime(info os.FileInfo) float64 {
	return float64(info.ModTime().UnixNano()) / 1e9
}
