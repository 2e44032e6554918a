package bitmap

import "testing"

func TestSetGetClearRoundTrip(t *testing.T) {
	buf := make([]byte, 512)
	for i := uint32(0); i < uint32(len(buf))*8; i++ {
		if got := Get(buf, i); got != 0 {
			t.Fatalf("bit %d: got %d before set, want 0", i, got)
		}
		Set(buf, i)
		if got := Get(buf, i); got != 1 {
			t.Fatalf("bit %d: got %d after set, want 1", i, got)
		}
		Clear(buf, i)
		if got := Get(buf, i); got != 0 {
			t.Fatalf("bit %d: got %d after clear, want 0", i, got)
		}
	}
}

func TestBitOrderingIsLSBFirst(t *testing.T) {
	buf := make([]byte, 1)
	Set(buf, 0)
	if buf[0] != 0x01 {
		t.Fatalf("bit 0 set: byte = %#x, want 0x01", buf[0])
	}
	Set(buf, 3)
	if buf[0] != 0x09 {
		t.Fatalf("bits 0,3 set: byte = %#x, want 0x09", buf[0])
	}
}

func TestFindFreeAllOnes(t *testing.T) {
	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = 0xFF
	}
	if _, ok := FindFree(buf, 64); ok {
		t.Fatal("expected no free bit in an all-ones buffer")
	}
}

func TestFindFreeSingleGap(t *testing.T) {
	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = 0xFF
	}
	const k = 37
	Clear(buf, k)
	got, ok := FindFree(buf, 64)
	if !ok {
		t.Fatal("expected a free bit")
	}
	if got != k {
		t.Fatalf("FindFree = %d, want %d", got, k)
	}
}

func TestFindFreeReturnsSmallestIndex(t *testing.T) {
	buf := make([]byte, 8)
	got, ok := FindFree(buf, 64)
	if !ok || got != 0 {
		t.Fatalf("FindFree on empty buffer = (%d, %v), want (0, true)", got, ok)
	}
}
