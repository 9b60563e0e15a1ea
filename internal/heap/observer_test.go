package heap_test

import (
	"testing"

	"github.com/vellum-lang/vellum/internal/heap"
	"github.com/vellum-lang/vellum/internal/region"
)

type recordingObserver struct {
	doubleFrees int
	corruptions []error
}

func (o *recordingObserver) OnDoubleFree(uintptr) { o.doubleFrees++ }
func (o *recordingObserver) OnCorruption(err error) {
	o.corruptions = append(o.corruptions, err)
}

func TestObserverSeesDoubleFree(t *testing.T) {
	obs := &recordingObserver{}
	r := region.NewBumpRegion(4096)
	h := heap.New(r, heap.WithObserver(obs))

	ptr := mustAlloc(t, h, 16)

	mustRelease(t, h, ptr)

	if err := h.Release(ptr); err == nil {
		t.Fatal("expected ErrDoubleFree on second release")
	}

	if obs.doubleFrees != 1 {
		t.Fatalf("observer saw %d double frees, want 1", obs.doubleFrees)
	}
}

func TestStrictCheckRunsAfterEveryMutation(t *testing.T) {
	obs := &recordingObserver{}
	r := region.NewBumpRegion(4096)
	h := heap.New(r, heap.WithObserver(obs), heap.WithStrictCheck(true))

	a := mustAlloc(t, h, 16)
	b := mustAlloc(t, h, 32)

	mustRelease(t, h, a)
	mustRelease(t, h, b)

	if len(obs.corruptions) != 0 {
		t.Fatalf("strict-check observer reported corruption on a healthy heap: %v", obs.corruptions)
	}
}
