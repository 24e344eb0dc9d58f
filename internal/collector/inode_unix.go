//go:build !windows

package collector

import (
	"os"
	"syscall"
)

func inodeKey(_ string, info os.FileInfo) (visitedKey, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return visitedKey{}, false
	}
	return visitedKey{dev: uint64(stat.Dev), ino: stat.Ino}, true
}
