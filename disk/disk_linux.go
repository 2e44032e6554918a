//go:build linux

package disk

import (
	"os"
	"syscall"
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// flush durably persists pending writes. Fdatasync avoids the metadata
// flush (mtime, etc.) that Sync implies, matching what a single-writer
// block device needs.
func flush(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}

// logGeometry probes and logs the container's block-device geometry, if
// it is in fact a block special file, the way diskfs_linux.go queries
// BLKGETSIZE64/BLKSSZGET. VSFS never changes its fixed BlockSize based on
// this — it's purely diagnostic, surfaced so an operator pointing mkfs at
// a raw device instead of a regular file sees what was detected.
func logGeometry(log *logrus.Entry, f *os.File, info os.FileInfo) {
	if info.Mode()&os.ModeDevice == 0 {
		return
	}

	fd := int(f.Fd())
	var sizeBytes uint64
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&sizeBytes))); errno != 0 {
		log.WithError(errno).Debug("BLKGETSIZE64 failed, not a raw block device or insufficient permission")
		return
	}
	logical, logicalErr := unix.IoctlGetInt(fd, unix.BLKSSZGET)
	physical, physicalErr := unix.IoctlGetInt(fd, unix.BLKPBSZGET)
	fields := logrus.Fields{"device_size_bytes": sizeBytes}
	if logicalErr == nil {
		fields["logical_sector_size"] = logical
	}
	if physicalErr == nil {
		fields["physical_sector_size"] = physical
	}
	log.WithFields(fields).Debug("detected block device geometry")
}
