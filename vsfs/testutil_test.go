package vsfs

import (
	"path/filepath"
	"testing"

	"github.com/vsfs/vsfs/disk"
)

// newFormatted creates and formats a fresh container in a temp directory
// and returns its path.
func newFormatted(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")
	if err := CreateContainer(path); err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if err := Format(path); err != nil {
		t.Fatalf("Format: %v", err)
	}
	return path
}

func openDevice(t *testing.T, path string) *disk.Device {
	t.Helper()
	dev, err := disk.Open(path)
	if err != nil {
		t.Fatalf("disk.Open: %v", err)
	}
	t.Cleanup(func() { dev.Close() })
	return dev
}
