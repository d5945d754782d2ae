package hostfuncs

import (
	"bytes"
	"sync"
)

// DefaultMaxOutputSize is the default capture limit for console output (1MB).
const DefaultMaxOutputSize = 1 << 20

// BoundedBuffer is an io.Writer that keeps at most limit bytes. It serves as
// a console sink when script output is captured rather than streamed, so a
// chatty update loop cannot exhaust memory.
type BoundedBuffer struct {
	mu        sync.Mutex
	buffer    bytes.Buffer
	limit     int
	truncated bool
}

// NewBoundedBuffer creates a BoundedBuffer with the specified limit.
// A non-positive limit selects DefaultMaxOutputSize.
func NewBoundedBuffer(limit int) *BoundedBuffer {
	if limit <= 0 {
		limit = DefaultMaxOutputSize
	}
	return &BoundedBuffer{limit: limit}
}

// Write implements io.Writer. Data past the limit is discarded but reported
// as written, so writers never see a short write.
func (b *BoundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.limit - b.buffer.Len()
	if remaining <= 0 {
		b.truncated = len(p) > 0 || b.truncated
		return len(p), nil
	}
	if len(p) > remaining {
		b.truncated = true
		if _, err := b.buffer.Write(p[:remaining]); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	return b.buffer.Write(p)
}

// String returns the captured output.
func (b *BoundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}

// Len returns the number of captured bytes.
func (b *BoundedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.Len()
}

// Truncated reports whether any output was dropped.
func (b *BoundedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

// Reset clears the buffer and the truncation flag.
func (b *BoundedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer.Reset()
	b.truncated = false
}
