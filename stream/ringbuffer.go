// SPDX-License-Identifier: EPL-2.0

package stream

import "sync"

// RingBuffer is a thread-safe circular byte buffer shared between a writer
// goroutine and a device callback.
type RingBuffer struct {
	mtx      sync.Mutex
	buffer   []byte
	readPos  int
	writePos int
	count    int
}

// NewRingBuffer creates a ring buffer with the given capacity in bytes.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{buffer: make([]byte, capacity)}
}

// Write copies as much of p as fits and returns the number of bytes taken.
func (rb *RingBuffer) Write(p []byte) int {
	rb.mtx.Lock()
	defer rb.mtx.Unlock()

	n := min(len(p), len(rb.buffer)-rb.count)
	first := min(n, len(rb.buffer)-rb.writePos)
	copy(rb.buffer[rb.writePos:], p[:first])
	copy(rb.buffer, p[first:n])
	rb.writePos = (rb.writePos + n) % len(rb.buffer)
	rb.count += n
	return n
}

// Read fills p from the buffer and zero-fills whatever is left, so an
// underrun plays silence. It returns the number of real bytes read.
func (rb *RingBuffer) Read(p []byte) int {
	rb.mtx.Lock()
	defer rb.mtx.Unlock()

	n := min(len(p), rb.count)
	first := min(n, len(rb.buffer)-rb.readPos)
	copy(p, rb.buffer[rb.readPos:rb.readPos+first])
	copy(p[first:n], rb.buffer[:n-first])
	rb.readPos = (rb.readPos + n) % len(rb.buffer)
	rb.count -= n

	clear(p[n:])
	return n
}

// Len returns the number of bytes waiting to be read.
func (rb *RingBuffer) Len() int {
	rb.mtx.Lock()
	defer rb.mtx.Unlock()
	return rb.count
}

// Free returns the number of bytes that can be written without loss.
func (rb *RingBuffer) Free() int {
	rb.mtx.Lock()
	defer rb.mtx.Unlock()
	return len(rb.buffer) - rb.count
}

func (rb *RingBuffer) Cap() int { return len(rb.buffer) }

// Reset drops all buffered data.
func (rb *RingBuffer) Reset() {
	rb.mtx.Lock()
	defer rb.mtx.Unlock()
	rb.readPos, rb.writePos, rb.count = 0, 0, 0
}
