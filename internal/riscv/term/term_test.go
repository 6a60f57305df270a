package term

import (
	"os"
	"testing"
)

func TestNonTTYDescriptorIsInert(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	c := New(int(r.Fd()))
	if c.IsTTY() {
		t.Fatal("a pipe should never report as a terminal")
	}
	if err := c.EnterRaw(); err != nil {
		t.Errorf("EnterRaw() on a non-tty should be a no-op, got error: %v", err)
	}
	if err := c.Restore(); err != nil {
		t.Errorf("Restore() with nothing entered should be a no-op, got error: %v", err)
	}
}
