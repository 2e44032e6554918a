package vsfs

import (
	"errors"
	"testing"
)

func TestErrorIsMatchesSentinel(t *testing.T) {
	err := newErr(KindExists, "file %q already exists", "hello")
	if !errors.Is(err, ErrExists) {
		t.Fatal("expected errors.Is to match ErrExists by Kind")
	}
	if errors.Is(err, ErrNoInodes) {
		t.Fatal("did not expect errors.Is to match a different Kind")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := wrapErr(KindIO, cause, "reading block %d", 3)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to see through the wrapped cause")
	}
}
