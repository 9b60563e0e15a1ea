package heap

import (
	"fmt"
	"unsafe"
)

// Heap is the allocator facade: New, Allocate, and Release compose the
// block layout, implicit/explicit lists, search, split, and coalesce
// components into the two public operations the spec exposes
// (spec.md §4.6). A Heap is not safe for concurrent use; wrap it in
// Locked if callers need a coarse mutex (spec.md §5).
type Heap struct {
	region Provider
	base   unsafe.Pointer

	heapSize     uintptr
	freeListHead blockOffset
	tail         blockOffset

	cfg *Config
}

// New creates a Heap over region. The region is not extended by New;
// the heap starts empty, matching the spec's init() contract (spec.md
// §6): heapSize, freeListHead, and tail all start at their zero/null
// values.
func New(region Provider, opts ...Option) *Heap {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &Heap{
		region:       region,
		base:         region.LowAddress(),
		freeListHead: noBlock,
		tail:         noBlock,
		cfg:          cfg,
	}
}

// Allocate returns a pointer to a body of at least size bytes, or an
// error if size is zero. Panics with ErrOutOfMemory if the region
// provider cannot extend (spec.md §4.6, §7).
func (h *Heap) Allocate(size uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, ErrInvalidSize
	}

	reqSize := roundUpFreeInfo(size)

	b, found := h.searchFreeList(reqSize)
	if !found {
		var err error

		b, err = h.requestMoreSpace(reqSize)
		if err != nil {
			panic(fmt.Errorf("heap: allocate %d bytes: %w", size, err))
		}
		// Freshly grown blocks are never pushed onto the free list —
		// they are about to be flipped to allocated immediately, so
		// pushing then popping would be wasted work (spec.md §9).
	} else {
		if shouldSplit(b.bodyLen(), reqSize) {
			h.split(b, reqSize)
		}

		h.freeListRemove(b)
	}

	b.setRawSize(-b.rawSize()) // flip to allocated (positive)

	h.maybeCheck()

	return b.bodyAddr(), nil
}

// Release returns the block backing ptr to the free list and merges it
// with any free physical neighbors. Returns ErrDoubleFree, without
// mutating state, if the block is already free (spec.md §4.6, §7).
func (h *Heap) Release(ptr unsafe.Pointer) error {
	off := blockOffset(uintptr(ptr) - uintptr(h.base) - headerSize)
	b := h.blockAt(off)

	if b.rawSize() <= 0 {
		h.cfg.Observer.OnDoubleFree(uintptr(off))

		return ErrDoubleFree
	}

	b.setRawSize(-b.rawSize())
	h.freeListPush(b)
	h.coalesce(b)

	h.maybeCheck()

	return nil
}

// requestMoreSpace grows the region by enough bytes to host a new
// block with the given body size and links it onto the end of the
// implicit heap list as the new tail. The returned block is free-sized
// (rawSize negative) but never linked into the free list (spec.md
// §4.7).
func (h *Heap) requestMoreSpace(reqSize int64) (block, error) {
	off := blockOffset(h.heapSize)

	n := headerSize + uintptr(reqSize)

	_, err := h.region.Extend(n)
	if err != nil {
		return block{}, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}

	h.heapSize += n

	b := h.blockAt(off)
	b.setRawSize(-reqSize)
	b.setPrevBlockOffset(h.tail)
	h.tail = off

	return b, nil
}

func (h *Heap) maybeCheck() {
	if h.cfg.StrictCheck {
		if err := h.check(true); err != nil {
			h.cfg.Observer.OnCorruption(err)
		}
	}
}
