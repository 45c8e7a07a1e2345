// Package supervisor provides the process registry, lifecycle engine, and
// daemon request handler for procd.
package supervisor

import (
	"strings"
	"sync"
)

// DefaultBufferChars is the default per-stream ring buffer budget.
const DefaultBufferChars = 100_000

// RingBuffer is a thread-safe bounded append log for process output.
// It stores an ordered sequence of text chunks and evicts the oldest
// chunks (FIFO) once the total size exceeds the character budget.
type RingBuffer struct {
	mu sync.RWMutex
	// +checklocks:mu
	chunks []string
	// +checklocks:mu
	head int // Index of the oldest live chunk
	// +checklocks:mu
	total int // Total characters across live chunks
	// +checklocks:mu
	seq int64 // Monotonic append counter, informational only
	max int   // Character budget (immutable after creation)
}

// NewRingBuffer creates a ring buffer with the given character budget.
// If max <= 0, DefaultBufferChars is used.
func NewRingBuffer(max int) *RingBuffer {
	if max <= 0 {
		max = DefaultBufferChars
	}
	return &RingBuffer{max: max}
}

// Append adds a chunk and evicts the oldest chunks until the buffer is
// back within budget. Each call increments the sequence counter once.
func (rb *RingBuffer) Append(data string) {
	if data == "" {
		return
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.chunks = append(rb.chunks, data)
	rb.total += len(data)
	rb.seq++

	for rb.total > rb.max && rb.head < len(rb.chunks) {
		rb.total -= len(rb.chunks[rb.head])
		rb.chunks[rb.head] = ""
		rb.head++
	}

	// Compact once the dead prefix dominates the backing array.
	if rb.head > len(rb.chunks)/2 {
		rb.chunks = append(rb.chunks[:0], rb.chunks[rb.head:]...)
		rb.head = 0
	}
}

// Seq returns the number of appends performed so far. Callers can use it
// as a cheap "has new data arrived" signal; it carries no ordering
// guarantee inside the buffer.
func (rb *RingBuffer) Seq() int64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.seq
}

// Tail returns the last n characters of buffered output, honoring exact
// boundaries within the oldest included chunk.
func (rb *RingBuffer) Tail(n int) string {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n <= 0 {
		return ""
	}

	parts := make([]string, 0, 8)
	remaining := n
	for i := len(rb.chunks) - 1; i >= rb.head && remaining > 0; i-- {
		chunk := rb.chunks[i]
		if len(chunk) <= remaining {
			parts = append(parts, chunk)
			remaining -= len(chunk)
		} else {
			parts = append(parts, chunk[len(chunk)-remaining:])
			remaining = 0
		}
	}

	// Collected newest-first; reverse for chronological order.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "")
}

// All returns the full current contents, oldest to newest.
func (rb *RingBuffer) All() string {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return strings.Join(rb.chunks[rb.head:], "")
}

// Len returns the total characters currently buffered.
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.total
}

// Cap returns the character budget.
func (rb *RingBuffer) Cap() int {
	return rb.max
}
