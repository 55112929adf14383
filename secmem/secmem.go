// Package secmem provides byte buffers for secret material with two
// guarantees: contents are overwritten with zeros when the buffer is
// destroyed, and equality between two buffers takes time depending only
// on their lengths.
package secmem

import (
	"crypto/subtle"
	"sync"
)

// Buffer holds secret bytes on the heap.
//
// Destroy must be called on every exit path once the secret is no longer
// needed; it is safe to call more than once.
type Buffer struct {
	mu        sync.Mutex
	b         []byte
	destroyed bool
}

// New allocates a zeroed secret buffer of n bytes.
func New(n int) *Buffer {
	return &Buffer{b: make([]byte, n)}
}

// From copies bs into a fresh secret buffer and wipes the original slice.
func From(bs []byte) *Buffer {
	buf := &Buffer{b: make([]byte, len(bs))}
	copy(buf.b, bs)
	Wipe(bs)

	return buf
}

// Bytes returns the backing slice. The slice must not outlive the buffer;
// callers needing a long-lived copy must take one explicitly.
func (s *Buffer) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return nil
	}

	return s.b
}

// Len returns the buffer length, or 0 after Destroy.
func (s *Buffer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return 0
	}

	return len(s.b)
}

// Equal compares two buffers in constant time for equal lengths.
func (s *Buffer) Equal(other *Buffer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()

	if s.destroyed || other.destroyed {
		return false
	}

	return subtle.ConstantTimeCompare(s.b, other.b) == 1
}

// Destroy wipes the contents and marks the buffer unusable.
func (s *Buffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}

	Wipe(s.b)

	s.b = nil
	s.destroyed = true
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Equal compares two byte slices in constant time for equal lengths.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
