package shmring

import (
	"sync/atomic"
)

// Ring is a single-producer, single-consumer byte ring.
// Producer and consumer may run on different goroutines without further locking;
// multiple producers must serialise among themselves.
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)

	readable chan struct{} // 0->>0 available edge
	writable chan struct{} // full->not full edge
}

// New allocates a ring of the given power-of-two size (>= 2).
func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("shmring: size must be power of two >= 2")
	}
	return &Ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

func (r *Ring) Space() int {
	return int(r.size() - (r.wr.Load() - r.rd.Load()))
}

func (r *Ring) Available() int {
	return int(r.wr.Load() - r.rd.Load())
}

func (r *Ring) Readable() <-chan struct{} { return r.readable }
func (r *Ring) Writable() <-chan struct{} { return r.writable }

// ---- producer side ----

// put copies src at logical index wr without publishing it.
func (r *Ring) put(wr uint32, src []byte) {
	idx := wr & r.mask
	first := int(r.size() - idx)
	if first > len(src) {
		first = len(src)
	}
	copy(r.buf[idx:idx+uint32(first)], src[:first])
	if first < len(src) {
		copy(r.buf, src[first:])
	}
}

func (r *Ring) publish(wr, rd uint32, n int) {
	r.wr.Store(wr + uint32(n)) // release
	if wr == rd {
		select {
		case r.readable <- struct{}{}:
		default:
		}
	}
}

// TryWriteFrom copies as much of src as fits and returns the count.
func (r *Ring) TryWriteFrom(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	space := int(r.size() - (wr - rd))
	if space <= 0 {
		return 0
	}
	n := len(src)
	if n > space {
		n = space
	}
	r.put(wr, src[:n])
	r.publish(wr, rd, n)
	return n
}

// ---- consumer side ----

// get copies n bytes from logical index rd without consuming them.
func (r *Ring) get(rd uint32, dst []byte) {
	idx := rd & r.mask
	first := int(r.size() - idx)
	if first > len(dst) {
		first = len(dst)
	}
	copy(dst[:first], r.buf[idx:idx+uint32(first)])
	if first < len(dst) {
		copy(dst[first:], r.buf[:len(dst)-first])
	}
}

func (r *Ring) consume(rd, wr uint32, n int) {
	r.rd.Store(rd + uint32(n)) // release
	if wr-rd == r.size() {
		select {
		case r.writable <- struct{}{}:
		default:
		}
	}
}

// TryReadInto copies up to len(dst) available bytes and returns the count.
func (r *Ring) TryReadInto(dst []byte) int {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	n := int(wr - rd)
	if n <= 0 {
		return 0
	}
	if n > len(dst) {
		n = len(dst)
	}
	r.get(rd, dst[:n])
	r.consume(rd, wr, n)
	return n
}
