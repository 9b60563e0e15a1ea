//go:build unix && mmapregion

package region

import "testing"

func TestMmapRegionGrowsWithoutMoving(t *testing.T) {
	r, err := NewMmapRegion(4096)
	if err != nil {
		t.Fatalf("NewMmapRegion: %v", err)
	}
	defer r.Close()

	base := r.LowAddress()

	if _, err := r.Extend(64); err != nil {
		t.Fatalf("Extend: %v", err)
	}

	if r.LowAddress() != base {
		t.Fatal("LowAddress moved after Extend")
	}

	if r.CurrentSize() != 64 {
		t.Fatalf("CurrentSize() = %d, want 64", r.CurrentSize())
	}

	if _, err := r.Extend(4096); err == nil {
		t.Fatal("Extend past reserved capacity should fail")
	}
}
