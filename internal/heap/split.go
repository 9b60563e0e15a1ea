package heap

// split carves a new free block out of the high end of b, a free block
// whose body is large enough that the unused surplus (b.bodyLen() -
// reqSize) is at least splitThreshold. On return b's body has shrunk to
// reqSize (still marked free — the caller flips its sign) and a fresh
// free block occupies the remainder, already linked into both the
// implicit heap list and the explicit free list (spec.md §4.4).
//
// The caller is responsible for removing b from the free list and
// flipping its sign to allocated after split returns.
func (h *Heap) split(b block, reqSize int64) {
	oldEnd, hadNext := b.nextBlock()

	newOff := b.off + headerSize + blockOffset(reqSize)
	newBodyLen := b.bodyLen() - reqSize - headerSize

	n := h.blockAt(newOff)
	n.setPrevBlockOffset(b.off)
	n.setRawSize(-newBodyLen)

	if hadNext {
		oldEnd.setPrevBlockOffset(newOff)
	} else {
		h.tail = newOff
	}

	b.setRawSize(-reqSize)

	h.freeListPush(n)
}

// shouldSplit reports whether carving reqSize out of a free block with
// the given body length leaves enough surplus to host a new header plus
// a minimum free-list overlay.
func shouldSplit(bodyLen, reqSize int64) bool {
	return bodyLen-reqSize >= splitThreshold
}
