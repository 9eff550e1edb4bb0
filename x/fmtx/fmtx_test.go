package fmtx

import "testing"

func TestBounded_CutsAtCapacity(t *testing.T) {
	var buf [8]byte
	b := NewBounded(buf[:])
	n, err := Fprintf(b, "%s-%d", "abcdef", 12345)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len("abcdef-12345") {
		t.Fatalf("reported %d bytes, want full length", n)
	}
	if got := string(b.Bytes()); got != "abcdef-1" {
		t.Fatalf("got %q", got)
	}
	if !b.Truncated() || !b.Full() {
		t.Fatalf("expected truncated and full")
	}
}

func TestBounded_ExactFitIsNotTruncated(t *testing.T) {
	var buf [4]byte
	b := NewBounded(buf[:])
	b.WriteString("ab")
	b.Write([]byte("cd"))
	if b.Truncated() {
		t.Fatalf("exact fit reported truncation")
	}
	if got := string(b.Bytes()); got != "abcd" {
		t.Fatalf("got %q", got)
	}
	b.WriteString("")
	if b.Truncated() {
		t.Fatalf("empty write reported truncation")
	}
	b.WriteString("e")
	if !b.Truncated() || b.Len() != 4 {
		t.Fatalf("overflow not detected: len=%d", b.Len())
	}
}

func TestBounded_Reset(t *testing.T) {
	var a, c [3]byte
	b := NewBounded(a[:])
	b.WriteString("xyzw")
	b.Reset(c[:])
	if b.Len() != 0 || b.Truncated() || b.Cap() != 3 {
		t.Fatalf("reset left state: len=%d trunc=%v", b.Len(), b.Truncated())
	}
}

// Runs against both printers: go test ./x/fmtx and go test -tags rp2040 ./x/fmtx.
func TestFprintf_PreambleAndHex(t *testing.T) {
	var buf [64]byte
	b := NewBounded(buf[:])
	Fprintf(b, "C%d %s:%s.%d %X %x %X", 1, "main.go", "run", 42, uint16(0xbeef), 255, -255)
	if got := string(b.Bytes()); got != "C1 main.go:run.42 BEEF ff -FF" {
		t.Fatalf("got %q", got)
	}
}
