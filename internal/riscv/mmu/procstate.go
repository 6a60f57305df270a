package mmu

// Privilege levels, mirrored from the interpreter's CPU package so the MMU
// has no import dependency on it — the MMU only ever borrows state through
// this interface.
const (
	PrivUser       uint8 = 0
	PrivSupervisor uint8 = 1
	PrivMachine    uint8 = 3
)

// ProcState is the read-only processor state the MMU borrows for the
// duration of a single access. The MMU never retains a ProcState between
// calls and mutates only BadAddr, and only immediately before returning a
// *Fault.
type ProcState interface {
	// Priv is the current privilege mode.
	Priv() uint8
	// EffectivePriv is Priv, except that in machine mode with mstatus.MPRV
	// set the effective mode for non-fetch accesses is mstatus.MPP — the
	// interpreter computes this since it alone owns mstatus.
	EffectivePriv(access Access) uint8
	// MPRV reports mstatus.MPRV.
	MPRV() bool
	// SUM reports mstatus.SUM (permit supervisor access to U-mode pages).
	SUM() bool
	// MXR reports mstatus.MXR (make executable pages readable).
	MXR() bool
	// VMMode is the configured translation mode (mstatus.vm / satp.mode).
	VMMode() Mode
	// SATP returns the root page-table's PPN and the current ASID.
	SATP() (rootPPN uint64, asid uint16)
	// SetBadAddr records the offending VA immediately before a fault is
	// reported through the fault channel.
	SetBadAddr(va uint64)
}
