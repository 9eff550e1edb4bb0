package fmtx

// Bounded is an io.Writer over a caller-owned fixed buffer. Writes past the
// end are cut, never grown; Truncated reports whether anything was cut.
// Write always reports full success so formatters keep going and the cut is
// applied at exactly the capacity boundary.
type Bounded struct {
	buf       []byte
	n         int
	truncated bool
}

// NewBounded wraps buf; its length is the capacity.
func NewBounded(buf []byte) *Bounded { return &Bounded{buf: buf} }

// Reset rewinds to empty over buf.
func (b *Bounded) Reset(buf []byte) {
	b.buf = buf
	b.n = 0
	b.truncated = false
}

func (b *Bounded) Write(p []byte) (int, error) {
	room := len(b.buf) - b.n
	if len(p) > room {
		b.truncated = true
		copy(b.buf[b.n:], p[:room])
		b.n = len(b.buf)
		return len(p), nil
	}
	copy(b.buf[b.n:], p)
	b.n += len(p)
	return len(p), nil
}

func (b *Bounded) WriteString(s string) (int, error) {
	room := len(b.buf) - b.n
	if len(s) > room {
		b.truncated = true
		copy(b.buf[b.n:], s[:room])
		b.n = len(b.buf)
		return len(s), nil
	}
	copy(b.buf[b.n:], s)
	b.n += len(s)
	return len(s), nil
}

func (b *Bounded) Bytes() []byte   { return b.buf[:b.n] }
func (b *Bounded) Len() int        { return b.n }
func (b *Bounded) Cap() int        { return len(b.buf) }
func (b *Bounded) Full() bool      { return b.n == len(b.buf) }
func (b *Bounded) Truncated() bool { return b.truncated }
