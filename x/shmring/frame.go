package shmring

// Frames are a 2-byte big-endian length followed by the payload. A frame is
// published with a single index store, so the consumer never observes half of one.

const frameHdr = 2

// MaxFrame is the largest payload a frame can carry.
const MaxFrame = 0xFFFF

// WriteFrame enqueues p as one frame. It is all-or-nothing: when the ring lacks
// space for the whole frame nothing is written and false is returned.
func (r *Ring) WriteFrame(p []byte) bool {
	if len(p) > MaxFrame {
		return false
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	need := frameHdr + len(p)
	if int(r.size()-(wr-rd)) < need {
		return false
	}
	hdr := [frameHdr]byte{byte(len(p) >> 8), byte(len(p))}
	r.put(wr, hdr[:])
	r.put(wr+frameHdr, p)
	r.publish(wr, rd, need)
	return true
}

// ReadFrame dequeues the next frame into dst and returns the payload length
// copied. A payload longer than dst is cut to len(dst); the rest of that frame
// is discarded. ok is false when no frame is queued.
func (r *Ring) ReadFrame(dst []byte) (n int, ok bool) {
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	if int(wr-rd) < frameHdr {
		return 0, false
	}
	var hdr [frameHdr]byte
	r.get(rd, hdr[:])
	size := int(hdr[0])<<8 | int(hdr[1])
	if int(wr-rd) < frameHdr+size {
		return 0, false
	}
	n = size
	if n > len(dst) {
		n = len(dst)
	}
	r.get(rd+frameHdr, dst[:n])
	r.consume(rd, wr, frameHdr+size)
	return n, true
}
