//go:build linux

package media

import (
	"os"
	"syscall"
)

// createdTime reads the inode change time, the closest analogue to a
// creation timestamp the platform records
func createdTime(info os.FileInfo) float64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return float64(stat.Ctim.Sec) + float64(stat.Ctim.Nsec)/1e9
	}
	return float64(info.ModTime().UnixNano()) / 1e9
}
