package disk

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func newTestContainer(t *testing.T, blocks int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "container.img")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create container: %v", err)
	}
	defer f.Close()
	if err := f.Truncate(int64(blocks) * BlockSize); err != nil {
		t.Fatalf("truncate container: %v", err)
	}
	return path
}

func TestOpenMissingContainer(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.img")); err == nil {
		t.Fatal("expected error opening a nonexistent container")
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	path := newTestContainer(t, 4)
	dev, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dev.Close()

	want := bytes.Repeat([]byte{0xAB}, BlockSize)
	if err := dev.WriteBlock(2, want); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	got := make([]byte, BlockSize)
	if err := dev.ReadBlock(2, got); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("read back %x..., want %x...", got[:4], want[:4])
	}

	other := make([]byte, BlockSize)
	if err := dev.ReadBlock(0, other); err != nil {
		t.Fatalf("ReadBlock(0): %v", err)
	}
	if !bytes.Equal(other, make([]byte, BlockSize)) {
		t.Fatal("unrelated block 0 should remain zero")
	}
}

func TestReadWriteWrongBufferSize(t *testing.T) {
	path := newTestContainer(t, 2)
	dev, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dev.Close()

	if err := dev.WriteBlock(0, make([]byte, BlockSize-1)); err == nil {
		t.Fatal("expected error writing an undersized buffer")
	}
	if err := dev.ReadBlock(0, make([]byte, BlockSize+1)); err == nil {
		t.Fatal("expected error reading into an oversized buffer")
	}
}

func TestReadWriteUnreachableOffset(t *testing.T) {
	path := newTestContainer(t, 1)
	dev, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dev.Close()

	if err := dev.ReadBlock(50, make([]byte, BlockSize)); err == nil {
		t.Fatal("expected error reading beyond the container")
	}
}

func TestOperationsAfterClose(t *testing.T) {
	path := newTestContainer(t, 1)
	dev, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
	if err := dev.ReadBlock(0, make([]byte, BlockSize)); err == nil {
		t.Fatal("expected error reading from a closed device")
	}
	if err := dev.WriteBlock(0, make([]byte, BlockSize)); err == nil {
		t.Fatal("expected error writing to a closed device")
	}
}
