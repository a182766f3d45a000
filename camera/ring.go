package camera

import "sync"

// RingBuffer is a fixed-capacity circular frame buffer.  The streamer
// pushes frames in; a viewer polls Last at its own cadence.  When the
// producer outruns the consumer the oldest frames are overwritten and
// the overflow flag latches.
type RingBuffer struct {
	mu       sync.Mutex
	frames   [][]uint16
	capacity int
	head     int // next write position
	size     int

	pushSeq  int
	seenSeq  int
	overflow bool
}

// NewRingBuffer returns a ring holding up to capacity frames.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{frames: make([][]uint16, capacity), capacity: capacity}
}

// Push stores a frame, overwriting the oldest if the ring is full.
// The ring takes ownership of the slice.
func (r *RingBuffer) Push(frame []uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == r.capacity && r.pushSeq-r.seenSeq >= r.capacity {
		r.overflow = true
	}
	r.frames[r.head] = frame
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
	r.pushSeq++
}

// Last returns the most recently pushed frame and marks everything up
// to it as seen.  ok is false if the ring is empty.
func (r *RingBuffer) Last() (frame []uint16, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return nil, false
	}
	idx := (r.head - 1 + r.capacity) % r.capacity
	r.seenSeq = r.pushSeq
	return r.frames[idx], true
}

// Remaining reports how many frames arrived since the last call to
// Last.  A poller uses this to skip redundant redraws.
func (r *RingBuffer) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushSeq - r.seenSeq
}

// Overflowed reports whether any unseen frame was overwritten.  The
// flag latches until Reset.
func (r *RingBuffer) Overflowed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overflow
}

// Reset empties the ring and clears the overflow flag.
func (r *RingBuffer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.frames {
		r.frames[i] = nil
	}
	r.head = 0
	r.size = 0
	r.pushSeq = 0
	r.seenSeq = 0
	r.overflow = false
}
