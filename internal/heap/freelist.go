package heap

// freeListPush inserts b at the head of the explicit free list. b must
// not currently be a member and must already be marked free
// (spec.md §4.2).
func (h *Heap) freeListPush(b block) {
	b.setPrevFreeOffset(noBlock)
	b.setNextFreeOffset(h.freeListHead)

	if h.freeListHead != noBlock {
		h.blockAt(h.freeListHead).setPrevFreeOffset(b.off)
	}

	h.freeListHead = b.off
}

// freeListRemove splices b out of the explicit free list. b must
// currently be a member. The free-list overlay fields are left as-is;
// they become meaningless the moment the block is reallocated or
// absorbed by a neighbor.
func (h *Heap) freeListRemove(b block) {
	prev := b.prevFreeOffset()
	next := b.nextFreeOffset()

	if prev != noBlock {
		h.blockAt(prev).setNextFreeOffset(next)
	} else {
		h.freeListHead = next
	}

	if next != noBlock {
		h.blockAt(next).setPrevFreeOffset(prev)
	}
}
