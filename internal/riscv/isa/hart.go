// Package isa implements the RV64IMAC instruction decoder and executor: a
// Step function that fetches one instruction through the mmu package,
// dispatches it, and either retires it or returns a *Trap describing why it
// didn't. It owns no state of its own beyond decode tables; all
// architectural state lives in the cpu package, split into cpu (state) and
// isa (behavior) so the mmu package stays free of a decoder dependency.
package isa

import (
	"rvsim/internal/riscv/cpu"
	"rvsim/internal/riscv/mmu"
)

// Hart bundles one CPU's register/CSR state with the MMU it executes
// against.
type Hart struct {
	CPU *cpu.CPU
	MMU *mmu.MMU

	// Compressed gates RVC expansion: a 2-byte-wide fetch only decodes as
	// a compressed instruction when the configured extension set includes
	// C, the same way a real hart with C disabled in misa takes an
	// illegal-instruction trap on a 2-byte encoding instead of expanding
	// it.
	Compressed bool

	// LastPC/LastInsn record the address and raw encoding Step just
	// retired, for a caller building an instruction-mix histogram
	// (internal/riscv/stats) or a trap/debugger log line without paying
	// for a second fetch of the same address.
	LastPC   uint64
	LastInsn uint32
}

// New builds a hart over an already-populated CPU and MMU; the loader is
// responsible for constructing both and mapping the guest image before the
// first Step. compressed gates RVC expansion, normally config.Config's
// HasCompressed.
func New(c *cpu.CPU, m *mmu.MMU, compressed bool) *Hart {
	return &Hart{CPU: c, MMU: m, Compressed: compressed}
}

func faultTrap(f *mmu.Fault) *Trap {
	var cause Cause
	switch f.Cause {
	case mmu.CauseMisalignedFetch:
		cause = CauseMisalignedFetch
	case mmu.CauseFaultFetch:
		cause = CauseFaultFetch
	case mmu.CauseMisalignedLoad:
		cause = CauseMisalignedLoad
	case mmu.CauseFaultLoad:
		cause = CauseFaultLoad
	case mmu.CauseMisalignedStore:
		cause = CauseMisalignedStore
	case mmu.CauseFaultStore:
		cause = CauseFaultStore
	}
	return trap(cause, f.VA)
}

// Step fetches, decodes and executes exactly one instruction, advancing PC
// by the fetched width unless the instruction itself sets PC (branch,
// jump, trap return). It returns a *Trap without having advanced PC on any
// failure, so the caller can inspect h.CPU.PC to find the faulting
// instruction. The one exception is ECALL: execSystem advances PC past it
// before returning CauseECall, so the caller resumes after the syscall.
func (h *Hart) Step() *Trap {
	insn, width, fault := h.MMU.Fetch(h.CPU, h.CPU.PC)
	if fault != nil {
		return faultTrap(fault)
	}
	h.LastPC, h.LastInsn = h.CPU.PC, insn
	h.CPU.LastRdWritten = false

	full := insn
	if width == 2 {
		if !h.Compressed {
			return trap(CauseIllegalInsn, uint64(insn))
		}
		expanded, err := h.expandCompressed(uint16(insn))
		if err != nil {
			return err
		}
		full = expanded
	}

	pc := h.CPU.PC
	if err := h.execute(full); err != nil {
		return err
	}
	if h.CPU.PC == pc {
		// execute didn't redirect control flow (branch/jump/trap return);
		// advance past the instruction just fetched.
		h.CPU.PC = pc + uint64(width)
	}
	h.CPU.Instret++
	h.CPU.Cycle++
	return nil
}
