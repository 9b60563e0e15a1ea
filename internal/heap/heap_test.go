package heap_test

import (
	"testing"
	"unsafe"

	"github.com/vellum-lang/vellum/internal/heap"
	"github.com/vellum-lang/vellum/internal/region"
)

const (
	testInfoSize     = 16
	testFreeInfoSize = 16
)

func newHeap(t *testing.T, opts ...heap.Option) *heap.Heap {
	t.Helper()

	r := region.NewBumpRegion(64 * 1024)

	return heap.New(r, opts...)
}

func mustAlloc(t *testing.T, h *heap.Heap, size uintptr) unsafe.Pointer {
	t.Helper()

	ptr, err := h.Allocate(size)
	if err != nil {
		t.Fatalf("Allocate(%d): %v", size, err)
	}

	if ptr == nil {
		t.Fatalf("Allocate(%d) returned a nil pointer with no error", size)
	}

	return ptr
}

func TestAllocateInvalidSize(t *testing.T) {
	h := newHeap(t)

	ptr, err := h.Allocate(0)
	if ptr != nil || err == nil {
		t.Fatalf("Allocate(0) = (%p, %v), want (nil, ErrInvalidSize)", ptr, err)
	}
}

func TestAllocateAlignment(t *testing.T) {
	h := newHeap(t)

	ptr := mustAlloc(t, h, testFreeInfoSize)
	if uintptr(ptr)%testFreeInfoSize != 0 {
		t.Fatalf("body address %p is not aligned to %d", ptr, testFreeInfoSize)
	}
}

func TestReleaseDoubleFree(t *testing.T) {
	h := newHeap(t)
	ptr := mustAlloc(t, h, 16)

	if err := h.Release(ptr); err != nil {
		t.Fatalf("first Release: %v", err)
	}

	if err := h.Release(ptr); err == nil {
		t.Fatal("second Release on the same pointer should report ErrDoubleFree")
	}

	if err := h.Check(true); err != nil {
		t.Fatalf("heap corrupted after double free attempt: %v", err)
	}
}

// TestSequentialThenReleaseAll is spec.md §8 scenario 1: three
// allocations released in reverse order should fully coalesce into one
// free block covering the whole region.
func TestSequentialThenReleaseAll(t *testing.T) {
	h := newHeap(t)

	a := mustAlloc(t, h, 24) // rounds up to 32
	b := mustAlloc(t, h, 32)
	c := mustAlloc(t, h, 16)

	if err := h.Release(c); err != nil {
		t.Fatalf("release c: %v", err)
	}

	if err := h.Release(b); err != nil {
		t.Fatalf("release b: %v", err)
	}

	if err := h.Release(a); err != nil {
		t.Fatalf("release a: %v", err)
	}

	if err := h.Check(true); err != nil {
		t.Fatalf("heap corrupted: %v", err)
	}

	// A single allocation of the full merged body (112 bytes: three
	// 32/32/16 bodies plus two absorbed 16-byte headers) should reuse
	// the coalesced block without growing the heap.
	got := mustAlloc(t, h, 112)
	if got != a {
		t.Fatalf("expected the merged block to be reused at %p, got %p", a, got)
	}
}

// TestCoalesceWithPrevious is spec.md §8 scenario 2.
func TestCoalesceWithPrevious(t *testing.T) {
	h := newHeap(t)

	a := mustAlloc(t, h, 16)
	b := mustAlloc(t, h, 16)
	c := mustAlloc(t, h, 16)

	mustRelease(t, h, a)
	mustRelease(t, h, b) // should coalesce backward into a

	if err := h.Check(true); err != nil {
		t.Fatalf("heap corrupted: %v", err)
	}

	// a+b merged body is 48 bytes; reallocating it should reuse a's slot.
	got := mustAlloc(t, h, 48)
	if got != a {
		t.Fatalf("expected merged block reused at %p, got %p", a, got)
	}

	mustRelease(t, h, got)
	mustRelease(t, h, c)
}

// TestCoalesceWithNext is spec.md §8 scenario 3.
func TestCoalesceWithNext(t *testing.T) {
	h := newHeap(t)

	a := mustAlloc(t, h, 16)
	b := mustAlloc(t, h, 16)
	_ = mustAlloc(t, h, 16)

	mustRelease(t, h, b)
	mustRelease(t, h, a) // should coalesce forward into b

	if err := h.Check(true); err != nil {
		t.Fatalf("heap corrupted: %v", err)
	}

	got := mustAlloc(t, h, 48)
	if got != a {
		t.Fatalf("expected merged block reused at %p, got %p", a, got)
	}
}

// TestThreeWayCoalesce is spec.md §8 scenario 4.
func TestThreeWayCoalesce(t *testing.T) {
	h := newHeap(t)

	a := mustAlloc(t, h, 16)
	b := mustAlloc(t, h, 16)
	c := mustAlloc(t, h, 16)

	mustRelease(t, h, a)
	mustRelease(t, h, c)
	mustRelease(t, h, b)

	if err := h.Check(true); err != nil {
		t.Fatalf("heap corrupted: %v", err)
	}

	// Whole region (16*3 bodies + 16*2 absorbed headers = 80) should be
	// a single free block covering everything, allocatable in one shot.
	got := mustAlloc(t, h, 80)
	if got != a {
		t.Fatalf("expected the fully-merged block reused at %p, got %p", a, got)
	}
}

// TestSplitBoundary is spec.md §8's split boundary behaviors.
func TestSplitBoundary(t *testing.T) {
	t.Run("SurplusBelowThreshold", func(t *testing.T) {
		h := newHeap(t)

		// splitThreshold is 32 (headerSize 16 + freeInfoSize 16). A
		// 48-byte free block minus a 32-byte request leaves a surplus
		// of 16, one alignment step short of the threshold.
		big := mustAlloc(t, h, 48)
		mustRelease(t, h, big)

		// surplus = 48 - 32 = 16 < 32 threshold: no split, whole block handed out.
		got := mustAlloc(t, h, 32)
		if got != big {
			t.Fatalf("expected whole block reused at %p, got %p", big, got)
		}
	})

	t.Run("SurplusExactlyAtThreshold", func(t *testing.T) {
		h := newHeap(t)

		big := mustAlloc(t, h, 64)
		mustRelease(t, h, big)

		// surplus = 64 - 32 = 32 == threshold: splits, producing a
		// minimum-size (16-byte) free remainder.
		got := mustAlloc(t, h, 32)
		if got != big {
			t.Fatalf("expected the low part of the split reused at %p, got %p", big, got)
		}

		remainder := mustAlloc(t, h, 16)
		if remainder == got {
			t.Fatal("remainder allocation should land in the split-off block, not overlap the first")
		}
	})
}

// TestFreeLastBlockThenReallocate is the spec's "freeing the physically
// last block followed by a new allocate of its size reuses that block"
// boundary behavior.
func TestFreeLastBlockThenReallocate(t *testing.T) {
	h := newHeap(t)

	_ = mustAlloc(t, h, 16)
	last := mustAlloc(t, h, 32)

	mustRelease(t, h, last)

	got := mustAlloc(t, h, 32)
	if got != last {
		t.Fatalf("expected the freed tail block to be reused at %p, got %p", last, got)
	}
}

func TestCheckDetectsNothingOnAHealthyHeap(t *testing.T) {
	h := newHeap(t)

	ptrs := make([]unsafe.Pointer, 0, 8)
	for _, sz := range []uintptr{16, 48, 32, 96, 16} {
		ptrs = append(ptrs, mustAlloc(t, h, sz))
	}

	for i, ptr := range ptrs {
		if i%2 == 0 {
			mustRelease(t, h, ptr)
		}
	}

	if err := h.Check(true); err != nil {
		t.Fatalf("Check on a well-formed heap returned an error: %v", err)
	}
}

func mustRelease(t *testing.T, h *heap.Heap, ptr unsafe.Pointer) {
	t.Helper()

	if err := h.Release(ptr); err != nil {
		t.Fatalf("Release(%p): %v", ptr, err)
	}
}
