package vsfs

import "testing"

func TestCheckConsistencyAcrossCreateInstallPairs(t *testing.T) {
	path := newFormatted(t)
	dev := openDevice(t, path)

	names := []string{"alpha", "beta", "gamma", "delta"}
	for _, name := range names {
		if err := Create(dev, name); err != nil {
			t.Fatalf("Create(%q): %v", name, err)
		}
		if _, err := NewJournal(dev).Install(); err != nil {
			t.Fatalf("Install after Create(%q): %v", name, err)
		}
		report, err := Check(dev)
		if err != nil {
			t.Fatalf("Check after Create(%q): %v", name, err)
		}
		if len(report.Errors) != 0 {
			t.Fatalf("Check after Create(%q) found errors: %v", name, report.Errors)
		}
	}
}

func TestCheckDetectsDanglingDirectoryEntry(t *testing.T) {
	path := newFormatted(t)
	dev := openDevice(t, path)

	if err := Create(dev, "hello"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := NewJournal(dev).Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}

	// Corrupt the inode bitmap directly: clear bit 1 (hello's inode),
	// simulating a dangling directory entry.
	inodeBitmap := make([]byte, B)
	if err := dev.ReadBlock(InodeBitmapBlock, inodeBitmap); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	inodeBitmap[0] &^= 1 << 1
	if err := dev.WriteBlock(InodeBitmapBlock, inodeBitmap); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	report, err := Check(dev)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(report.Errors) == 0 {
		t.Fatal("expected Check to detect the dangling directory entry")
	}
}

func TestCheckDetectsLeakedInode(t *testing.T) {
	path := newFormatted(t)
	dev := openDevice(t, path)

	if err := Create(dev, "hello"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := NewJournal(dev).Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}

	// Remove the directory entry referencing inode 1 without clearing the
	// inode bitmap: inode 1 becomes allocated but unreferenced (a leak).
	rootDirBlock := make([]byte, B)
	if err := dev.ReadBlock(DataBlocksStart, rootDirBlock); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	dir, err := NewDirectory(rootDirBlock)
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	if err := dir.Set(0, DirEntry{}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := dev.WriteBlock(DataBlocksStart, dir.Block()); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	report, err := Check(dev)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(report.Errors) == 0 {
		t.Fatal("expected Check to detect the leaked inode")
	}
}
