package heap

// Observer receives notifications for events a caller may want to
// surface without the allocator itself taking a logging dependency —
// the "optional observer" the spec treats diagnostic printing as
// (spec.md §2, component 8), modeled on the teacher's RegionObserver.
type Observer interface {
	// OnDoubleFree is called when Release is invoked on a block that
	// is already free, before ErrDoubleFree is returned.
	OnDoubleFree(off uintptr)
	// OnCorruption is called when the after-mutation check enabled by
	// StrictCheck finds a violated invariant. An explicit call to Check
	// only returns the error and does not notify the Observer.
	OnCorruption(err error)
}

// noopObserver discards every event; it is the default when no Observer
// is configured so the rest of the package never needs a nil check.
type noopObserver struct{}

func (noopObserver) OnDoubleFree(uintptr) {}
func (noopObserver) OnCorruption(error)   {}

// Config collects the tunables accepted by New, following the
// Config/Option pattern the teacher uses for its own allocators
// (internal/allocator.Config).
type Config struct {
	// Observer receives DoubleFree and corruption notifications.
	Observer Observer
	// StrictCheck makes Allocate and Release run a full strict
	// consistency check (including invariant 5, no two
	// physically-adjacent free blocks) after every mutation and report
	// any violation to the Observer, the behavior gated behind the
	// spec's DEBUG build flag (spec.md §6). It does not affect Check,
	// whose strictness is its own argument.
	StrictCheck bool
}

// Option configures a Config.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		Observer:    noopObserver{},
		StrictCheck: false,
	}
}

// WithObserver installs a diagnostic Observer.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		if o != nil {
			c.Observer = o
		}
	}
}

// WithStrictCheck enables the strict consistency check after every
// Allocate and Release.
func WithStrictCheck(enabled bool) Option {
	return func(c *Config) { c.StrictCheck = enabled }
}
