//go:build unix && mmapregion

package region

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapRegion is an alternative Provider backed by a single anonymous
// private mapping reserved up front, rather than a Go slice. It exists
// to give the region an address range the Go runtime's GC never scans
// or moves, which matters if a host embeds this allocator to manage
// memory handed to non-Go code. Extend never calls mmap/mremap again
// after construction: the whole capacity is reserved as virtual address
// space immediately, and growth is pure bookkeeping — physical pages
// are only committed by the kernel as they are touched.
//
// Built only with the mmapregion tag because it requires golang.org/x/sys/unix
// and an anonymous-mapping-capable OS; BumpRegion is the portable default.
type MmapRegion struct {
	data []byte
	size uintptr
}

// NewMmapRegion reserves maxSize bytes of anonymous, private virtual
// memory and returns an empty region over it.
func NewMmapRegion(maxSize uintptr) (*MmapRegion, error) {
	data, err := unix.Mmap(-1, 0, int(maxSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("region: mmap %d bytes: %w", maxSize, err)
	}

	return &MmapRegion{data: data}, nil
}

func (r *MmapRegion) LowAddress() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(r.data))
}

func (r *MmapRegion) CurrentSize() uintptr {
	return r.size
}

func (r *MmapRegion) Extend(n uintptr) (unsafe.Pointer, error) {
	if r.size+n > uintptr(len(r.data)) {
		return nil, fmt.Errorf("%w: have %d, want %d more, capacity %d", ErrExhausted, r.size, n, len(r.data))
	}

	addr := unsafe.Add(r.LowAddress(), r.size)
	r.size += n

	return addr, nil
}

// Close releases the mapping. The region must not be used afterward.
func (r *MmapRegion) Close() error {
	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("region: munmap: %w", err)
	}

	r.data = nil

	return nil
}
