package harness

import (
	"sync"
)

// truncationMarker is appended to a capped stream so the model knows the
// output is partial.
const truncationMarker = "\n... [output truncated]"

// capBuffer is an io.Writer that keeps at most max bytes and drops the
// rest, so runaway output from executed code cannot grow without bound.
type capBuffer struct {
	mu        sync.Mutex
	buf       []byte
	max       int
	truncated bool
}

func newCapBuffer(max int) *capBuffer {
	return &capBuffer{max: max}
}

// Write implements io.Writer. It always reports the full length as
// written so the child process never sees a pipe error from our capping.
func (b *capBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.max - len(b.buf)
	if remaining <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf = append(b.buf, p[:remaining]...)
		b.truncated = true
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns the captured bytes, with the truncation marker appended
// when the cap was hit.
func (b *capBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return string(b.buf) + truncationMarker
	}
	return string(b.buf)
}

// Truncated reports whether the cap was hit.
func (b *capBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
