// Package heap implements a first-fit, boundary-free explicit-free-list
// allocator over a contiguous, monotonically-growing region obtained from
// an external region.Provider. It is the core of the module: block layout,
// the implicit (address-ordered) block list, the explicit free list, and
// the split/coalesce policies that keep the two consistent.
package heap

import "unsafe"

// headerSize is the size in bytes of a block header (size + prevBlock,
// two int64 fields). freeInfoSize is the size of the free-list overlay
// (nextFree + prevFree) written into the body of a free block. Both are
// 16 bytes on any platform because the fields are fixed-width int64
// offsets rather than native pointers, which keeps the module's notion
// of "aligned to FreeInfoSize" independent of GOARCH.
const (
	headerSize   = 16
	freeInfoSize = 16

	// splitThreshold is the minimum surplus body space, beyond the
	// requested size, required to carve a new free block out of the
	// high end of a larger one (spec.md §4.4): enough for a fresh
	// header plus a minimum free-list overlay.
	splitThreshold = headerSize + freeInfoSize
)

// noBlock is the null sentinel for a blockOffset.
const noBlock blockOffset = -1

// blockOffset is a handle to a block: its byte offset from the region's
// low address. Using offsets instead of raw pointers keeps the
// offset-to-pointer conversion confined to addrOf below, per the
// audited-layer design note; the reverse conversion, from a caller's
// pointer back to an offset, is done in Release.
type blockOffset int64

// block is a lightweight, stateless view over a block living at a given
// offset in a Heap's region. It holds no data of its own; every accessor
// reads or writes through the owning Heap's base address.
type block struct {
	h   *Heap
	off blockOffset
}

func (h *Heap) blockAt(off blockOffset) block {
	return block{h: h, off: off}
}

// addrOf converts a region-relative offset into a live unsafe.Pointer.
// This is the only place in the package that adds an offset to the
// region's base address.
func (h *Heap) addrOf(off blockOffset) unsafe.Pointer {
	return unsafe.Pointer(uintptr(h.base) + uintptr(off))
}

// The 16-byte header is size (offset 0) followed by prevBlock (offset
// 8); prevBlock must live inside the header, not the body, since it
// has to stay valid for an allocated block's whole lifetime while the
// body is the caller's to overwrite. The free-list overlay only ever
// exists in a free block's body, so it reuses that space starting at
// headerSize.
func (b block) sizeField() *int64 {
	return (*int64)(b.h.addrOf(b.off))
}

func (b block) prevField() *int64 {
	return (*int64)(b.h.addrOf(b.off + 8))
}

func (b block) nextFreeField() *int64 {
	return (*int64)(b.h.addrOf(b.off + headerSize))
}

func (b block) prevFreeField() *int64 {
	return (*int64)(b.h.addrOf(b.off + headerSize + 8))
}

// rawSize returns the header's signed size: positive when allocated,
// negative when free.
func (b block) rawSize() int64 { return *b.sizeField() }

func (b block) setRawSize(v int64) { *b.sizeField() = v }

// bodyLen returns |size|, the byte length of the body.
func (b block) bodyLen() int64 {
	s := b.rawSize()
	if s < 0 {
		return -s
	}

	return s
}

func (b block) isFree() bool { return b.rawSize() < 0 }

// State reports whether the block is allocated or free, as an explicit
// tag rather than a sign, for callers that prefer not to reason about
// the internal encoding (spec.md §9 design note).
type State int

const (
	Allocated State = iota
	Free
)

func (b block) State() State {
	if b.isFree() {
		return Free
	}

	return Allocated
}

func (b block) prevBlockOffset() blockOffset { return blockOffset(*b.prevField()) }

func (b block) setPrevBlockOffset(p blockOffset) { *b.prevField() = int64(p) }

func (b block) nextFreeOffset() blockOffset { return blockOffset(*b.nextFreeField()) }

func (b block) setNextFreeOffset(n blockOffset) { *b.nextFreeField() = int64(n) }

func (b block) prevFreeOffset() blockOffset { return blockOffset(*b.prevFreeField()) }

func (b block) setPrevFreeOffset(p blockOffset) { *b.prevFreeField() = int64(p) }

// bodyAddr returns the address of the first body byte, i.e. the pointer
// handed back to callers of Allocate.
func (b block) bodyAddr() unsafe.Pointer {
	return b.h.addrOf(b.off + headerSize)
}

// end returns the offset one past this block's body.
func (b block) end() blockOffset {
	return b.off + headerSize + blockOffset(b.bodyLen())
}

// nextBlock returns the physically-following block in the implicit heap
// list, or ok=false if this block's trailing edge reaches the heap end
// (spec.md §4.1).
func (b block) nextBlock() (block, bool) {
	n := b.end()
	if int64(n) >= int64(b.h.heapSize) {
		return block{}, false
	}

	return b.h.blockAt(n), true
}

// prevBlock returns the physically-preceding block, or ok=false if b is
// the first block in the heap.
func (b block) prevBlock() (block, bool) {
	p := b.prevBlockOffset()
	if p == noBlock {
		return block{}, false
	}

	return b.h.blockAt(p), true
}

// firstBlock returns the block at the heap's low address, or ok=false on
// an empty heap.
func (h *Heap) firstBlock() (block, bool) {
	if h.heapSize == 0 {
		return block{}, false
	}

	return h.blockAt(0), true
}

// roundUpFreeInfo rounds a strictly positive size up to a multiple of
// freeInfoSize, the alignment every body size must satisfy so a
// later-freed block can host the next/prev free-list overlay. Callers
// are responsible for rejecting size == 0 (ErrInvalidSize) beforehand.
func roundUpFreeInfo(size uintptr) int64 {
	const a = freeInfoSize

	return (int64(size) + a - 1) / a * a
}
