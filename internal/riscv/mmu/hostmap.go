package mmu

import (
	"fmt"
	"sort"

	"golang.org/x/sys/unix"
)

// Prot is a permission mask over {read, write, execute}.
type Prot uint8

const (
	ProtRead Prot = 1 << iota
	ProtWrite
	ProtExec
)

// HostRef is an opaque, bounded handle onto a byte window at a guest
// machine-physical address. Its validity is bounded by the host-map region
// that produced it (design note 9: a bounded view checked at use, rather
// than a raw host pointer whose lifetime silently outlives its mapping).
type HostRef struct {
	bytes []byte
}

// Bytes returns the referenced window. It is only valid until the owning
// region is unmapped or the map is resized.
func (r HostRef) Bytes() []byte { return r.bytes }

// region is one non-overlapping [mpaBase, mpaBase+length) mapping.
type region struct {
	mpaBase uint64
	length  uint64
	host    []byte
	prot    Prot
	anon    bool // backed by unix.Mmap; Unmap must unix.Munmap it
}

// HostMap maps guest machine-physical address ranges onto host-accessible
// byte ranges (component A). It performs no permission check of its own —
// that is the PMA table's job (component B) — and mpa_to_host lookups are
// O(log n) via a sorted region slice.
type HostMap struct {
	regions []region // kept sorted by mpaBase
}

// NewHostMap returns an empty host-memory map.
func NewHostMap() *HostMap {
	return &HostMap{}
}

// Map installs a region backed by caller-supplied host bytes (e.g. an ELF
// segment's file image). The region is not owned: Unmap will not release it.
func (h *HostMap) Map(mpaBase, length uint64, host []byte, prot Prot) error {
	return h.insert(region{mpaBase: mpaBase, length: length, host: host, prot: prot})
}

// MapAnon allocates a zero-filled, anonymous host mapping of length bytes at
// mpaBase (used for guest RAM and the guest stack), via unix.Mmap so the
// backing pages are demand-zeroed by the host kernel rather than allocated
// up front by the Go runtime.
func (h *HostMap) MapAnon(mpaBase, length uint64, prot Prot) ([]byte, error) {
	hostProt := unix.PROT_READ | unix.PROT_WRITE
	mem, err := unix.Mmap(-1, 0, int(length), hostProt, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap guest region at mpa 0x%x (%d bytes): %w", mpaBase, length, err)
	}
	if err := h.insert(region{mpaBase: mpaBase, length: length, host: mem, prot: prot, anon: true}); err != nil {
		_ = unix.Munmap(mem)
		return nil, err
	}
	return mem, nil
}

func (h *HostMap) insert(r region) error {
	end := r.mpaBase + r.length
	idx := sort.Search(len(h.regions), func(i int) bool { return h.regions[i].mpaBase >= r.mpaBase })
	if idx > 0 {
		prev := h.regions[idx-1]
		if prev.mpaBase+prev.length > r.mpaBase {
			return fmt.Errorf("mmu: region [0x%x,0x%x) overlaps existing [0x%x,0x%x)",
				r.mpaBase, end, prev.mpaBase, prev.mpaBase+prev.length)
		}
	}
	if idx < len(h.regions) && h.regions[idx].mpaBase < end {
		next := h.regions[idx]
		return fmt.Errorf("mmu: region [0x%x,0x%x) overlaps existing [0x%x,0x%x)",
			r.mpaBase, end, next.mpaBase, next.mpaBase+next.length)
	}
	h.regions = append(h.regions, region{})
	copy(h.regions[idx+1:], h.regions[idx:])
	h.regions[idx] = r
	return nil
}

// Unmap removes the region starting at mpaBase, releasing its host mapping
// if HostMap allocated it itself.
func (h *HostMap) Unmap(mpaBase, length uint64) error {
	for i, r := range h.regions {
		if r.mpaBase == mpaBase && r.length == length {
			if r.anon {
				_ = unix.Munmap(r.host)
			}
			h.regions = append(h.regions[:i], h.regions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("mmu: no region at mpa 0x%x length 0x%x", mpaBase, length)
}

// UnmapAll releases every mapping (interpreter teardown).
func (h *HostMap) UnmapAll() {
	for _, r := range h.regions {
		if r.anon {
			_ = unix.Munmap(r.host)
		}
	}
	h.regions = nil
}

// Resolve implements mpa_to_host: it returns the host bytes available at mpa
// (from mpa to the end of the containing region) and that region's
// protection bits, or ok=false if mpa is outside every mapped region.
func (h *HostMap) Resolve(mpa uint64) (ref HostRef, prot Prot, ok bool) {
	idx := sort.Search(len(h.regions), func(i int) bool { return h.regions[i].mpaBase > mpa }) - 1
	if idx < 0 || idx >= len(h.regions) {
		return HostRef{}, 0, false
	}
	r := h.regions[idx]
	if mpa < r.mpaBase || mpa >= r.mpaBase+r.length {
		return HostRef{}, 0, false
	}
	off := mpa - r.mpaBase
	return HostRef{bytes: r.host[off:]}, r.prot, true
}
