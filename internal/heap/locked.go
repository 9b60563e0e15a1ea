package heap

import (
	"io"
	"sync"
	"unsafe"
)

// Locked wraps a Heap with a single coarse mutex enclosing each public
// operation, the escape hatch the spec allows for multi-threaded
// callers while keeping the core allocator itself single-threaded
// (spec.md §5): "a single coarse mutex enclosing each public operation
// is sufficient; finer-grained schemes are out of scope."
type Locked struct {
	mu sync.Mutex
	h  *Heap
}

// NewLocked wraps h for concurrent use.
func NewLocked(h *Heap) *Locked {
	return &Locked{h: h}
}

func (l *Locked) Allocate(size uintptr) (unsafe.Pointer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.h.Allocate(size)
}

func (l *Locked) Release(ptr unsafe.Pointer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.h.Release(ptr)
}

func (l *Locked) Check(strict bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.h.Check(strict)
}

func (l *Locked) Dump(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.h.Dump(w)
}
