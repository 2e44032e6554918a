// Package disk implements the block device abstraction VSFS is built on:
// random-access, fixed-size-block reads and writes over a single backing
// container file. There is no caching — every call hits the container.
package disk

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// BlockSize is the fixed granule of every transfer. VSFS addresses the
// container purely in units of BlockSize regardless of the underlying
// medium's physical sector size.
const BlockSize = 4096

// Device is a random-access block device backed by a single file.
type Device struct {
	file *os.File
	path string
	log  *logrus.Entry
}

// Open opens the container at path for reading and writing. The container
// must already exist; Open does not create or truncate it (mkfs does that
// separately, before formatting).
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}

	log := logrus.WithFields(logrus.Fields{"component": "disk", "path": path})
	if info, statErr := f.Stat(); statErr == nil {
		logGeometry(log, f, info)
	}

	return &Device{file: f, path: path, log: log}, nil
}

// Close releases the container. Safe to call on an already-closed Device.
func (d *Device) Close() error {
	if d == nil || d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// ReadBlock reads exactly BlockSize bytes from block index into buf.
func (d *Device) ReadBlock(index uint32, buf []byte) error {
	if d == nil || d.file == nil {
		return fmt.Errorf("disk: read block %d: %w", index, errNotOpen)
	}
	if len(buf) != BlockSize {
		return fmt.Errorf("disk: read block %d: buffer of %d bytes, want %d", index, len(buf), BlockSize)
	}
	n, err := d.file.ReadAt(buf, int64(index)*BlockSize)
	if err != nil {
		return fmt.Errorf("disk: read block %d: %w", index, err)
	}
	if n != BlockSize {
		return fmt.Errorf("disk: read block %d: short read of %d bytes, want %d", index, n, BlockSize)
	}
	d.log.WithField("block", index).Debug("read block")
	return nil
}

// WriteBlock writes exactly BlockSize bytes from buf to block index,
// durably: the write is flushed to the container before returning.
func (d *Device) WriteBlock(index uint32, buf []byte) error {
	if d == nil || d.file == nil {
		return fmt.Errorf("disk: write block %d: %w", index, errNotOpen)
	}
	if len(buf) != BlockSize {
		return fmt.Errorf("disk: write block %d: buffer of %d bytes, want %d", index, len(buf), BlockSize)
	}
	n, err := d.file.WriteAt(buf, int64(index)*BlockSize)
	if err != nil {
		return fmt.Errorf("disk: write block %d: %w", index, err)
	}
	if n != BlockSize {
		return fmt.Errorf("disk: write block %d: short write of %d bytes, want %d", index, n, BlockSize)
	}
	if err := flush(d.file); err != nil {
		return fmt.Errorf("disk: write block %d: flush: %w", index, err)
	}
	d.log.WithField("block", index).Debug("wrote block")
	return nil
}

var errNotOpen = fmt.Errorf("container not open")
