// Package cpu implements the RISC-V integer/floating register file,
// privilege state and the CSRs a user-mode simulator needs: mstatus,
// satp, the trap CSRs and the FP control/status register. It implements
// mmu.ProcState so the mmu package can read translation-relevant state
// without importing this package.
package cpu

import (
	"fmt"
	"math/rand"

	"rvsim/internal/riscv/mmu"
)

// Privilege levels, matching mmu's.
const (
	PrivUser       = mmu.PrivUser
	PrivSupervisor = mmu.PrivSupervisor
	PrivMachine    = mmu.PrivMachine
)

// mstatus bit positions relevant to a user-mode simulator. A full
// supervisor/machine trap model is out of scope; these bits exist because
// MPRV/SUM/MXR/MPP gate translation even when no guest kernel ever writes
// mstatus itself (the host harness sets the bits it needs directly).
const (
	mstatusSIE  uint64 = 1 << 1
	mstatusMIE  uint64 = 1 << 3
	mstatusSPIE uint64 = 1 << 5
	mstatusMPIE uint64 = 1 << 7
	mstatusSPP  uint64 = 1 << 8
	mstatusMPP  uint64 = 3 << 11
	mstatusFS   uint64 = 3 << 13
	mstatusMPRV uint64 = 1 << 17
	mstatusSUM  uint64 = 1 << 18
	mstatusMXR  uint64 = 1 << 19

	mstatusMPPShift = 11
)

// satp field layout differs between rv32 and rv64; satpFields returns the
// mode/asid/ppn decoding for the hart's configured width.
type satpFields struct {
	modeShift, modeBits   uint
	asidShift, asidBits   uint
	ppnBits               uint
}

var satp32 = satpFields{modeShift: 31, modeBits: 1, asidShift: 22, asidBits: 9, ppnBits: 22}
var satp64 = satpFields{modeShift: 60, modeBits: 4, asidShift: 44, asidBits: 16, ppnBits: 44}

// CPU holds one hart's architectural state: integer and floating registers,
// the program counter, current privilege, and the CSRs translation and trap
// delivery need.
type CPU struct {
	X [32]uint64 // integer registers, x0 always reads 0
	F [32]uint64 // floating registers, raw NaN-boxed bit patterns

	PC      uint64
	CurPriv uint8
	XLen    mmu.XLen

	Cycle   uint64
	Instret uint64

	Mstatus uint64
	Satp    uint64
	Mepc    uint64
	Mcause  uint64
	Mtval   uint64
	Sepc    uint64
	Scause  uint64
	Stval   uint64

	Fflags uint8
	Frm    uint8

	// Reservation and ReservationValid back the LR/SC atomic pair; a
	// store-conditional reads these rather than the bus, since the
	// simulator never migrates the reservation across harts.
	Reservation      uint64
	ReservationValid bool

	// LastRd/LastRdWritten record the destination register, if any, the
	// most recent WriteReg call touched; isa.Hart.Step clears
	// LastRdWritten before executing each instruction so a caller
	// building a register-usage histogram can tell a no-destination
	// instruction (store, branch) from one that wrote x0, which never
	// sets it.
	LastRd        uint32
	LastRdWritten bool

	badAddr uint64
}

// New creates a hart in machine mode with PC zero; SetEntry then moves it
// to user mode at the ELF entry point, the way a freshly loaded binary is
// entered directly by the harness rather than via a boot ROM.
func New(xlen mmu.XLen) *CPU {
	return &CPU{
		XLen:    xlen,
		CurPriv: PrivMachine,
	}
}

// SetEntry places the hart in user mode at the ELF entry point, the way a
// proxy-syscall simulator starts a guest program directly rather than
// booting firmware first.
func (c *CPU) SetEntry(pc uint64) {
	c.PC = pc
	c.CurPriv = PrivUser
}

// SeedRegisters fills x1-x31 with pseudo-random entropy derived from seed,
// the way a harness that wants to catch a guest reading an uninitialized
// register as a covert channel randomizes the register file instead of
// starting it at zero. x0 is untouched (it never holds a value anyway) and
// PC/CurPriv are left for SetEntry. A zero seed still randomizes: it is a
// valid, reproducible seed of its own, not a sentinel for "don't seed".
func (c *CPU) SeedRegisters(seed int64) {
	r := rand.New(rand.NewSource(seed))
	for i := 1; i < len(c.X); i++ {
		c.X[i] = r.Uint64()
	}
}

func (c *CPU) satpFields() satpFields {
	if c.XLen == mmu.XLen32 {
		return satp32
	}
	return satp64
}

// ReadReg reads an integer register; x0 always reads zero.
func (c *CPU) ReadReg(reg uint32) uint64 {
	if reg == 0 {
		return 0
	}
	return c.X[reg]
}

// WriteReg writes an integer register; writes to x0 are discarded.
func (c *CPU) WriteReg(reg uint32, val uint64) {
	if reg != 0 {
		c.X[reg] = val
		c.LastRd, c.LastRdWritten = reg, true
	}
}

// Priv/EffectivePriv/MPRV/SUM/MXR/VMMode/SATP/SetBadAddr implement
// mmu.ProcState.

func (c *CPU) Priv() uint8 { return c.CurPriv }

// EffectivePriv returns the privilege mode a memory access should be
// checked against: MPP when running in machine mode with MPRV set and the
// access isn't an instruction fetch (fetches are never affected by MPRV),
// otherwise the hart's actual current privilege.
func (c *CPU) EffectivePriv(access mmu.Access) uint8 {
	if c.CurPriv == PrivMachine && c.Mstatus&mstatusMPRV != 0 && access != mmu.AccessFetch {
		return uint8((c.Mstatus & mstatusMPP) >> mstatusMPPShift)
	}
	return c.CurPriv
}

func (c *CPU) MPRV() bool { return c.Mstatus&mstatusMPRV != 0 }
func (c *CPU) SUM() bool  { return c.Mstatus&mstatusSUM != 0 }
func (c *CPU) MXR() bool  { return c.Mstatus&mstatusMXR != 0 }

// VMMode decodes satp.MODE into an mmu.Mode.
func (c *CPU) VMMode() mmu.Mode {
	f := c.satpFields()
	modeVal := (c.Satp >> f.modeShift) & ((1 << f.modeBits) - 1)
	if c.XLen == mmu.XLen32 {
		if modeVal == 1 {
			return mmu.ModeSv32
		}
		return mmu.ModeBare
	}
	switch modeVal {
	case 8:
		return mmu.ModeSv39
	case 9:
		return mmu.ModeSv48
	default:
		return mmu.ModeBare
	}
}

// SATP decodes satp.ASID and satp.PPN.
func (c *CPU) SATP() (rootPPN uint64, asid uint16) {
	f := c.satpFields()
	rootPPN = c.Satp & ((uint64(1) << f.ppnBits) - 1)
	asid = uint16((c.Satp >> f.asidShift) & ((1 << f.asidBits) - 1))
	return rootPPN, asid
}

func (c *CPU) SetBadAddr(va uint64) { c.badAddr = va }

// BadAddr returns the faulting address recorded by the last translation
// failure, the value a trap handler would load into stval.
func (c *CPU) BadAddr() uint64 { return c.badAddr }

// Mask truncates a value to the hart's configured XLEN, the way every
// register write and PC update must before being stored.
func (c *CPU) Mask(v uint64) uint64 {
	if c.XLen == mmu.XLen32 {
		return v & 0xffff_ffff
	}
	return v
}

func (c *CPU) String() string {
	return fmt.Sprintf("pc=0x%x priv=%d satp=0x%x", c.PC, c.CurPriv, c.Satp)
}
