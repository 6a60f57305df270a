package mmu

// PTEFlags is the flags field of a page-table entry.
type PTEFlags uint16

// Page-table entry flag bits, as laid out in the RISC-V privileged spec's
// PTE format.
const (
	PTEV PTEFlags = 1 << iota // Valid
	PTER                      // Readable
	PTEW                      // Writable
	PTEX                      // Executable
	PTEU                      // User-accessible
	PTEG                      // Global
	PTEA                      // Accessed
	PTED                      // Dirty
)

// leaf reports whether a valid PTE terminates the walk (R=1 or X=1).
func (f PTEFlags) leaf() bool {
	return f&(PTER|PTEX) != 0
}

// reserved reports the reserved encoding R=0, W=1, which always faults
// regardless of level.
func (f PTEFlags) reserved() bool {
	return f&PTER == 0 && f&PTEW != 0
}

// bareFlags is the synthetic permission set used when translation is bare:
// there is no PTE to gate on, so the access checker's PTE-permission step
// degenerates to "always permitted" and only PMA can still deny the access.
const bareFlags = PTEV | PTER | PTEW | PTEX | PTEU
