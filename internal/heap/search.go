package heap

// searchFreeList performs a first-fit walk of the explicit free list,
// returning the first block whose body is at least reqSize bytes.
// reqSize must already be a positive multiple of freeInfoSize.
//
// First-fit over the explicit list is O(free blocks) rather than
// O(all blocks), never inspects allocated memory, and — because
// insertion is LIFO — tends to find recently-freed blocks first, which
// favors workloads with short-lived allocations (spec.md §4.3).
func (h *Heap) searchFreeList(reqSize int64) (block, bool) {
	for off := h.freeListHead; off != noBlock; {
		b := h.blockAt(off)
		if b.bodyLen() >= reqSize {
			return b, true
		}

		off = b.nextFreeOffset()
	}

	return block{}, false
}
