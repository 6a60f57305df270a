package mmu

// route implements the translation router's pre-walk decision tree,
// in priority order:
//
//  1. Privilege = M and MPRV = 0: bare pass-through, the common host-loader
//     fast path.
//  2. Configured mode = bare: pass-through.
//  3. Configured mode is one of the paged modes: dispatch to the walker/TLB.
//
// bare is true whenever va should be used unchanged as the physical address.
func route(ps ProcState, access Access) (mode Mode, bare bool) {
	if ps.Priv() == PrivMachine && !ps.MPRV() {
		return ModeBare, true
	}
	m := ps.VMMode()
	if m == ModeBare {
		return ModeBare, true
	}
	return m, false
}
