package mmu

// MMU ties together the host-memory map, PMA table, split TLB and page-table
// walker behind typed fetch/load/store access operations. One MMU serves
// one hart; there is no locking because the interpreter drives it
// synchronously and single-threaded.
type MMU struct {
	HostMap *HostMap
	PMA     *PMATable
	TLB     *TLB
	walker  *Walker

	// ITLBHits/ITLBMisses/DTLBHits/DTLBMisses count translate() outcomes
	// per side, the same counters ccvm's Machine keeps for its own soft
	// TLB; a stats recorder reads them directly rather than the MMU
	// pushing events out to one.
	ITLBHits, ITLBMisses uint64
	DTLBHits, DTLBMisses uint64
}

// New builds an MMU over the given host-memory map and PMA table. Both are
// typically populated once by the loader before interpretation begins.
func New(hostMap *HostMap, pma *PMATable) *MMU {
	return &MMU{
		HostMap: hostMap,
		PMA:     pma,
		TLB:     NewTLB(),
		walker:  NewWalker(hostMap),
	}
}

// FlushTLB invalidates every TLB entry on both sides. Called by the
// interpreter in response to an sfence.vma with no operands, or wherever it
// chooses to be conservative about a satp write.
func (m *MMU) FlushTLB() {
	m.TLB.Flush()
}

// translate implements the translation router plus the TLB/walker dispatch
// of components E, C and D. It returns the physical address and the flags
// that should gate the access (bareFlags in bare mode), or a *Fault if the
// walk itself failed — alignment and the final PMA/PTE permission check are
// the caller's job (component F steps 1 and 4).
func (m *MMU) translate(ps ProcState, va uint64, access Access) (pa uint64, flags PTEFlags, fault *Fault) {
	mode, bare := route(ps, access)
	if bare {
		return va, bareFlags, nil
	}

	ptm, known := ptmFor(mode)
	if !known {
		// An unrecognized configured mode behaves as bare pass-through;
		// this cannot happen with the bare/sv32/sv39/sv48 modes satp can
		// actually encode, but a config bug here must not corrupt guest
		// memory silently.
		return va, bareFlags, nil
	}

	rootPPN, asid := ps.SATP()
	side := m.TLB.side(access)
	vpn := va >> PageShift

	if e, hit := side.lookup(asid, rootPPN, vpn); hit {
		m.countTLB(access, true)
		pa := (e.ppn << PageShift) | (va & pageMask)
		return pa, e.flags, nil
	}
	m.countTLB(access, false)

	pa, flags, ok := m.walker.Walk(ptm, rootPPN, va)
	if !ok {
		ps.SetBadAddr(va)
		return 0, 0, &Fault{Cause: faultCause(access), VA: va}
	}
	side.insert(asid, rootPPN, vpn, pa>>PageShift, flags)
	return pa, flags, nil
}

func (m *MMU) countTLB(access Access, hit bool) {
	if access == AccessFetch {
		if hit {
			m.ITLBHits++
		} else {
			m.ITLBMisses++
		}
		return
	}
	if hit {
		m.DTLBHits++
	} else {
		m.DTLBMisses++
	}
}

// access runs the full four-step checker (alignment, translation, PMA,
// permission) for a width-byte access at va and returns the host bytes to
// move, or the first-failing fault. Alignment is checked by the caller so
// that fetch's 16-bit granularity rule stays local to Fetch.
func (m *MMU) access(ps ProcState, va uint64, width int, kind Access) (HostRef, *Fault) {
	pa, flags, fault := m.translate(ps, va, kind)
	if fault != nil {
		return HostRef{}, fault
	}

	ref, prot, mapped := m.HostMap.Resolve(pa)
	if !mapped || len(ref.Bytes()) < width {
		ps.SetBadAddr(va)
		return HostRef{}, &Fault{Cause: faultCause(kind), VA: va}
	}

	pmaAttrs, found := m.PMA.Lookup(pa)
	if !found {
		// No PMA entry covers pa: fall back to the host-map region's own
		// protection bits rather than denying every access to memory the
		// loader mapped but the PMA table's setup code never described.
		pmaAttrs = PMAAttrs{Perm: prot}
	} else {
		// A PMA entry describes cacheability and a coarse permission, but it
		// can never grant back an access the host mapping itself denies (a
		// read-only ELF segment stays read-only no matter how the PMA table
		// was configured).
		pmaAttrs.Perm &= prot
	}

	// In bare mode there is no real PTE: bareFlags sets U so a user-mode
	// access passes, and the SUM rule for U-pages must not then deny the
	// same access from supervisor or machine mode.
	_, bare := route(ps, kind)
	if !checkPermission(pmaAttrs, flags, kind, ps.EffectivePriv(kind), ps.SUM() || bare, ps.MXR()) {
		ps.SetBadAddr(va)
		return HostRef{}, &Fault{Cause: faultCause(kind), VA: va}
	}

	return ref, nil
}
