package heap

import "errors"

// ErrInvalidSize is returned by Allocate when size is zero. No state
// change occurs.
var ErrInvalidSize = errors.New("heap: invalid allocation size")

// ErrDoubleFree is returned by Release when the target block's header
// already indicates it is free. No state change occurs; the configured
// Observer, if any, is also notified.
var ErrDoubleFree = errors.New("heap: double free")

// ErrOutOfMemory wraps a failure from the region provider's Extend.
// Allocate panics with this error rather than returning it, matching
// the source assignment's exit() on a failed sbrk — the condition is
// defined as unrecoverable by the spec, so the only in-band signal left
// is to unwind past the caller rather than hand back a pointer that
// doesn't exist.
var ErrOutOfMemory = errors.New("heap: out of memory")

// ErrHeapCorruption is returned by Check when an invariant does not
// hold. It is never panicked: corruption is detected only by explicit
// diagnostics, not by the allocation path itself.
var ErrHeapCorruption = errors.New("heap: corruption detected")
