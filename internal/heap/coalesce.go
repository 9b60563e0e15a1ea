package heap

// coalesce absorbs any free physical neighbors of b into a single free
// block, called exclusively from Release after b has already been
// marked free and pushed onto the free list (spec.md §4.5).
//
// Because free sizes are stored negative, subtracting a positive
// quantity from a free block's rawSize makes it more negative, which is
// exactly "grow the free region" — the same arithmetic the header uses
// to distinguish allocated from free doubles as the growth operator.
func (h *Heap) coalesce(b block) {
	prev, hasPrev := b.prevBlock()
	next, hasNext := b.nextBlock()

	prevFree := hasPrev && prev.isFree()
	nextFree := hasNext && next.isFree()

	switch {
	case prevFree && nextFree:
		prev.setRawSize(prev.rawSize() - (2*headerSize + b.bodyLen() + next.bodyLen()))
		h.relinkTail(next, prev.off)
		h.freeListRemove(b)
		h.freeListRemove(next)
	case prevFree:
		prev.setRawSize(prev.rawSize() - (headerSize + b.bodyLen()))
		h.relinkTail(b, prev.off)
		h.freeListRemove(b)
	case nextFree:
		b.setRawSize(b.rawSize() - (headerSize + next.bodyLen()))
		h.relinkTail(next, b.off)
		h.freeListRemove(next)
	default:
		// No adjacent free neighbor; nothing to merge.
	}
}

// relinkTail fixes up the prevBlock pointer of the block physically
// following of (which is being absorbed), or updates h.tail when of was
// the physically-last block.
func (h *Heap) relinkTail(of block, newPrev blockOffset) {
	if n, ok := of.nextBlock(); ok {
		n.setPrevBlockOffset(newPrev)
	} else {
		h.tail = newPrev
	}
}
