package mmu

// checkAlignment is the first step of every access: alignment is checked
// before translation, so a misaligned access reports misaligned even if the
// address would also have faulted translation. Fetch alignment uses 16-bit
// granularity (width 2) even though instructions are 16 or 32 bits, to
// permit half-word-aligned compressed instructions.
func checkAlignment(va uint64, width int, access Access) *Fault {
	if width <= 1 {
		return nil
	}
	if va%uint64(width) != 0 {
		return &Fault{Cause: misalignedCause(access), VA: va}
	}
	return nil
}

// checkPermission implements check 4: PMA and PTE permission against the
// requested access and the effective privilege mode.
func checkPermission(pma PMAAttrs, flags PTEFlags, access Access, priv uint8, sum, mxr bool) bool {
	if priv == PrivUser {
		if flags&PTEU == 0 {
			return false
		}
	} else if flags&PTEU != 0 && !sum {
		// Supervisor access to a U-page requires mstatus.SUM.
		return false
	}

	switch access {
	case AccessFetch:
		return flags&PTEX != 0 && pma.Perm&ProtExec != 0
	case AccessStore:
		return flags&PTEW != 0 && pma.Perm&ProtWrite != 0
	default: // AccessLoad
		if flags&PTER != 0 {
			return pma.Perm&ProtRead != 0
		}
		if mxr && flags&PTEX != 0 {
			// mstatus.MXR: execute-only pages become readable.
			return pma.Perm&(ProtRead|ProtExec) != 0
		}
		return false
	}
}
