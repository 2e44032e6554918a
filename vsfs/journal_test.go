package vsfs

import (
	"bytes"
	"testing"

	"github.com/vsfs/vsfs/disk"
)

func TestInstallOnEmptyJournalIsNoOp(t *testing.T) {
	path := newFormatted(t)
	dev := openDevice(t, path)

	before := snapshotDataRegion(t, dev)
	result, err := NewJournal(dev).Install()
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if result.Transactions != 0 || result.RecordsApplied != 0 {
		t.Fatalf("Install on empty journal = %+v, want zero counts", result)
	}
	after := snapshotDataRegion(t, dev)
	if !bytes.Equal(before, after) {
		t.Fatal("data region changed after installing an empty journal")
	}
}

func TestInstallTwiceIsIdempotent(t *testing.T) {
	path := newFormatted(t)
	dev := openDevice(t, path)

	if err := Create(dev, "hello"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := NewJournal(dev).Install(); err != nil {
		t.Fatalf("first Install: %v", err)
	}
	afterFirst := snapshotDataRegion(t, dev)

	result, err := NewJournal(dev).Install()
	if err != nil {
		t.Fatalf("second Install: %v", err)
	}
	if result.Transactions != 0 {
		t.Fatalf("second Install found %d transactions, want 0 (journal already cleared)", result.Transactions)
	}
	afterSecond := snapshotDataRegion(t, dev)
	if !bytes.Equal(afterFirst, afterSecond) {
		t.Fatal("installing twice in a row changed the container a second time")
	}
}

func TestFindEndOnFreshJournal(t *testing.T) {
	path := newFormatted(t)
	dev := openDevice(t, path)

	pos, err := NewJournal(dev).FindEnd()
	if err != nil {
		t.Fatalf("FindEnd: %v", err)
	}
	if pos != 0 {
		t.Fatalf("FindEnd on empty journal = %d, want 0", pos)
	}
}

func TestAppendFillsJournalThenFails(t *testing.T) {
	path := newFormatted(t)
	dev := openDevice(t, path)
	j := NewJournal(dev)

	// 7 DATA records (14 blocks) + 1 COMMIT = 15 blocks, fits in 16.
	// Payloads are non-zero: FindEnd treats any all-zero journal block,
	// payload or header, as the end of the log.
	writes := make([]BlockWrite, 7)
	for i := range writes {
		writes[i] = BlockWrite{Block: DataBlocksStart, Payload: bytes.Repeat([]byte{0xFF}, B)}
	}
	if err := j.Append(Transaction{Writes: writes}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	pos, err := j.FindEnd()
	if err != nil {
		t.Fatalf("FindEnd: %v", err)
	}
	if pos != 15 {
		t.Fatalf("FindEnd after 7 DATA + COMMIT = %d, want 15", pos)
	}

	// One more single-record transaction needs 3 more blocks; only 1 is left.
	err = j.Append(Transaction{Writes: []BlockWrite{{Block: DataBlocksStart, Payload: make([]byte, B)}}})
	if err == nil {
		t.Fatal("expected JournalFull appending past capacity")
	}
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindJournalFull {
		t.Fatalf("expected KindJournalFull, got %v", err)
	}

	// No partial write should have occurred: FindEnd is unchanged.
	posAfter, err := j.FindEnd()
	if err != nil {
		t.Fatalf("FindEnd after failed append: %v", err)
	}
	if posAfter != pos {
		t.Fatalf("FindEnd after failed append = %d, want unchanged %d", posAfter, pos)
	}
}

func TestInstallRejectsUnrecognizedRecordType(t *testing.T) {
	path := newFormatted(t)
	dev := openDevice(t, path)

	// Hand-craft a corrupt header (type=99) at the start of the journal.
	header := journalHeader{Type: 99, BlockNum: 0, Size: 0}
	block := make([]byte, B)
	if err := header.marshalVSFS(block); err != nil {
		t.Fatalf("marshalVSFS: %v", err)
	}
	if err := dev.WriteBlock(JournalStart, block); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	result, err := NewJournal(dev).Install()
	if err == nil {
		t.Fatal("expected CorruptJournal error on unrecognized record type")
	}
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindCorruptJournal {
		t.Fatalf("expected KindCorruptJournal, got %v", err)
	}
	if result.Transactions != 0 || result.RecordsApplied != 0 {
		t.Fatalf("Install on corrupt journal = %+v, want zero counts", result)
	}

	// The scan stops at the corrupt header, but the journal is still cleared.
	got := make([]byte, B)
	if err := dev.ReadBlock(JournalStart, got); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if !bytes.Equal(got, make([]byte, B)) {
		t.Fatal("journal block not cleared after rejecting a corrupt record")
	}
}

func snapshotDataRegion(t *testing.T, dev *disk.Device) []byte {
	t.Helper()
	var out []byte
	block := make([]byte, B)
	for i := 0; i < DataBlocksCount; i++ {
		if err := dev.ReadBlock(uint32(DataBlocksStart+i), block); err != nil {
			t.Fatalf("ReadBlock(%d): %v", DataBlocksStart+i, err)
		}
		out = append(out, block...)
	}
	return out
}
