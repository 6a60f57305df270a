package mmu

// tlbSize is the per-side capacity: 128 entries, direct-mapped.
const tlbSize = 128

type tlbEntry struct {
	valid   bool
	asid    uint16
	rootPPN uint64
	vpn     uint64
	ppn     uint64
	flags   PTEFlags
}

// tlbSide is one direct-mapped half of the split TLB (instruction or data).
type tlbSide struct {
	entries [tlbSize]tlbEntry
}

func (s *tlbSide) slot(vpn uint64) *tlbEntry {
	return &s.entries[vpn%tlbSize]
}

// lookup returns the cached translation for vpn if the tag triple
// (asid, rootPPN, vpn) matches; a mismatch on any tag is treated as a miss,
// which is how a root-pointer change implicitly invalidates every entry
// without an explicit shootdown.
func (s *tlbSide) lookup(asid uint16, rootPPN, vpn uint64) (tlbEntry, bool) {
	e := s.slot(vpn)
	if e.valid && e.asid == asid && e.rootPPN == rootPPN && e.vpn == vpn {
		return *e, true
	}
	return tlbEntry{}, false
}

// insert unconditionally overwrites the slot for vpn.
func (s *tlbSide) insert(asid uint16, rootPPN, vpn, ppn uint64, flags PTEFlags) {
	*s.slot(vpn) = tlbEntry{valid: true, asid: asid, rootPPN: rootPPN, vpn: vpn, ppn: ppn, flags: flags}
}

func (s *tlbSide) flush() {
	for i := range s.entries {
		s.entries[i].valid = false
	}
}

// TLB is the split instruction/data translation lookaside buffer
// (component C): one direct-mapped side per access kind.
type TLB struct {
	ITLB tlbSide
	DTLB tlbSide
}

// NewTLB returns an empty split TLB.
func NewTLB() *TLB {
	return &TLB{}
}

// Flush invalidates every entry on both sides.
func (t *TLB) Flush() {
	t.ITLB.flush()
	t.DTLB.flush()
}

func (t *TLB) side(access Access) *tlbSide {
	if access == AccessFetch {
		return &t.ITLB
	}
	return &t.DTLB
}
