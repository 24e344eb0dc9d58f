//go:build windows

package collector

import (
	"os"

	"golang.org/x/sys/windows"
)

// inodeKey on Windows reads the NTFS file index via
// GetFileInformationByHandle, the closest analogue to a POSIX inode for
// symlink-cycle detection.
func inodeKey(path string, _ os.FileInfo) (visitedKey, bool) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return visitedKey{}, false
	}

	handle, err := windows.CreateFile(
		p,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return visitedKey{}, false
	}
	defer windows.CloseHandle(handle)

	var fi windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(handle, &fi); err != nil {
		return visitedKey{}, false
	}

	dev := uint64(fi.VolumeSerialNumber)
	ino := uint64(fi.FileIndexHigh)<<32 | uint64(fi.FileIndexLow)
	return visitedKey{dev: dev, ino: ino}, true
}
