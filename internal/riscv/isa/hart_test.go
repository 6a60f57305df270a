package isa

import (
	"encoding/binary"
	"testing"

	"rvsim/internal/riscv/cpu"
	"rvsim/internal/riscv/mmu"
)

func newTestHart(t *testing.T, compressed bool, insns ...uint32) *Hart {
	t.Helper()
	hm := mmu.NewHostMap()
	pma := mmu.NewPMATable()
	const base = 0x1000

	host, err := hm.MapAnon(base, mmu.PageSize, mmu.ProtRead|mmu.ProtWrite|mmu.ProtExec)
	if err != nil {
		t.Fatalf("MapAnon: %v", err)
	}
	if err := pma.Add(base, mmu.PageSize, mmu.PMAAttrs{Cacheable: true, Perm: mmu.ProtRead | mmu.ProtWrite | mmu.ProtExec}); err != nil {
		t.Fatalf("pma.Add: %v", err)
	}
	off := 0
	for _, insn := range insns {
		binary.LittleEndian.PutUint32(host[off:off+4], insn)
		off += 4
	}

	c := cpu.New(mmu.XLen64)
	c.SetEntry(base)
	m := mmu.New(hm, pma)
	return New(c, m, compressed)
}

// addi x5, x0, 1
const insnAddiX5One = 0x0010_0293

// addi x0, x0, 0 (nop)
const insnNop = 0x0000_0013

// C.NOP, a 16-bit encoding (quadrant 01, rd field zero).
const insnCNop = 0x0001

func TestStepTracksLastWrittenRegister(t *testing.T) {
	h := newTestHart(t, true, insnAddiX5One, insnNop)

	if trap := h.Step(); trap != nil {
		t.Fatalf("unexpected trap: %v", trap)
	}
	if !h.CPU.LastRdWritten || h.CPU.LastRd != 5 {
		t.Fatalf("expected LastRd=5 written, got written=%v rd=%d", h.CPU.LastRdWritten, h.CPU.LastRd)
	}
	if h.CPU.X[5] != 1 {
		t.Fatalf("expected x5=1, got %d", h.CPU.X[5])
	}

	if trap := h.Step(); trap != nil {
		t.Fatalf("unexpected trap: %v", trap)
	}
	if h.CPU.LastRdWritten {
		t.Fatal("expected LastRdWritten to be cleared after a nop, which writes nothing")
	}
}

func TestStepRejectsCompressedWhenDisabled(t *testing.T) {
	h := newTestHart(t, false, uint32(insnCNop))

	trap := h.Step()
	if trap == nil {
		t.Fatal("expected a trap for a compressed encoding with C disabled")
	}
	if trap.Cause != CauseIllegalInsn {
		t.Fatalf("expected CauseIllegalInsn, got %v", trap.Cause)
	}
}

func TestStepExpandsCompressedWhenEnabled(t *testing.T) {
	h := newTestHart(t, true, uint32(insnCNop))

	trap := h.Step()
	if trap != nil {
		t.Fatalf("unexpected trap: %v", trap)
	}
	if h.CPU.PC != 0x1002 {
		t.Fatalf("expected PC to advance by 2 bytes for a compressed instruction, got 0x%x", h.CPU.PC)
	}
}
