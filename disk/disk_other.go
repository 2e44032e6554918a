//go:build !linux

package disk

import (
	"os"

	"github.com/sirupsen/logrus"
)

// flush durably persists pending writes on platforms without Fdatasync.
func flush(f *os.File) error {
	return f.Sync()
}

// logGeometry is a no-op off Linux: the BLKGETSIZE64/BLKSSZGET ioctls are
// Linux-specific, and VSFS only ever targets regular container files on
// other platforms.
func logGeometry(log *logrus.Entry, f *os.File, info os.FileInfo) {}
