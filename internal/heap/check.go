package heap

import (
	"fmt"
	"io"
)

// Check walks the implicit heap list and the explicit free list,
// verifying the invariants of spec.md §3 that a single full traversal
// can confirm: reverse-link consistency (invariant 1), free-list
// membership matching the free-block count (invariant 3), free-list
// acyclicity (invariant 4), and — when strict is true — that no two
// physically-adjacent blocks are both free (invariant 5). It does not
// repair anything; it only reports (spec.md §4.8, §7).
func (h *Heap) Check(strict bool) error {
	return h.check(strict)
}

func (h *Heap) check(strict bool) error {
	var (
		last      block
		hasLast   bool
		freeCount int
	)

	first, ok := h.firstBlock()
	for cur, more := first, ok; more; cur, more = cur.nextBlock() {
		if hasLast {
			if cur.prevBlockOffset() != last.off {
				return fmt.Errorf("%w: block at offset %d has prevBlock %d, want %d",
					ErrHeapCorruption, cur.off, cur.prevBlockOffset(), last.off)
			}

			if strict && last.isFree() && cur.isFree() {
				return fmt.Errorf("%w: adjacent free blocks at offsets %d and %d",
					ErrHeapCorruption, last.off, cur.off)
			}
		} else if cur.prevBlockOffset() != noBlock {
			return fmt.Errorf("%w: first block has non-null prevBlock %d",
				ErrHeapCorruption, cur.prevBlockOffset())
		}

		if cur.isFree() {
			freeCount++
		}

		last, hasLast = cur, true
	}

	if hasLast {
		if last.off != h.tail {
			return fmt.Errorf("%w: tail is %d, want physically-last block %d",
				ErrHeapCorruption, h.tail, last.off)
		}

		if uintptr(last.end()) != h.heapSize {
			return fmt.Errorf("%w: tail ends at %d, want heap size %d",
				ErrHeapCorruption, last.end(), h.heapSize)
		}
	} else if h.tail != noBlock {
		return fmt.Errorf("%w: empty heap has non-null tail %d", ErrHeapCorruption, h.tail)
	}

	seen := make(map[blockOffset]bool, freeCount)

	budget := freeCount
	for off := h.freeListHead; off != noBlock; {
		if seen[off] {
			return fmt.Errorf("%w: free list is circular at offset %d", ErrHeapCorruption, off)
		}

		seen[off] = true

		budget--
		if budget < 0 {
			return fmt.Errorf("%w: free list has more entries than free blocks (%d)",
				ErrHeapCorruption, freeCount)
		}

		b := h.blockAt(off)
		if !b.isFree() {
			return fmt.Errorf("%w: free list entry at offset %d is marked allocated", ErrHeapCorruption, off)
		}

		off = b.nextFreeOffset()
	}

	if budget != 0 {
		return fmt.Errorf("%w: free list has %d fewer entries than the %d free blocks",
			ErrHeapCorruption, budget, freeCount)
	}

	return nil
}

// Dump writes a line-oriented, human-readable view of the implicit heap
// list followed by the explicit free list, in the spirit of the source
// assignment's examine_heap() debug helper. It is purely diagnostic and
// has no effect on allocator state.
func (h *Heap) Dump(w io.Writer) {
	fmt.Fprintf(w, "heap size: %d bytes, tail: %d, free_list_head: %d\n", h.heapSize, h.tail, h.freeListHead)

	first, ok := h.firstBlock()
	for cur, more := first, ok; more; cur, more = cur.nextBlock() {
		if cur.isFree() {
			fmt.Fprintf(w, "  [%6d] FREE      body=%-6d prev=%-6d nextFree=%-6d prevFree=%-6d\n",
				cur.off, cur.bodyLen(), cur.prevBlockOffset(), cur.nextFreeOffset(), cur.prevFreeOffset())
		} else {
			fmt.Fprintf(w, "  [%6d] ALLOCATED body=%-6d prev=%-6d\n",
				cur.off, cur.bodyLen(), cur.prevBlockOffset())
		}
	}

	fmt.Fprintf(w, "free list:")

	for off := h.freeListHead; off != noBlock; {
		b := h.blockAt(off)
		fmt.Fprintf(w, " -> %d", off)
		off = b.nextFreeOffset()
	}

	fmt.Fprintln(w)
}
