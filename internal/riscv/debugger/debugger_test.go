package debugger

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"rvsim/internal/riscv/cpu"
	"rvsim/internal/riscv/isa"
	"rvsim/internal/riscv/mmu"
)

func newTestDebugger(t *testing.T, cmds string) (*Debugger, *bytes.Buffer) {
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
	binary.LittleEndian.PutUint32(host[0:4], 0x00000013) // addi x0, x0, 0 (nop)
	binary.LittleEndian.PutUint32(host[4:8], 0x00000013)

	c := cpu.New(mmu.XLen64)
	c.SetEntry(base)
	m := mmu.New(hm, pma)
	hart := isa.New(c, m, true)

	var out bytes.Buffer
	d := New(hart, nil, strings.NewReader(cmds), &out)
	return d, &out
}

func TestStepAdvancesPC(t *testing.T) {
	d, out := newTestDebugger(t, "step\nquit\n")
	if err := d.Run(-1); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "pc=0x1004") {
		t.Errorf("output missing advanced pc:\n%s", out.String())
	}
}

func TestBreakAndBreaklist(t *testing.T) {
	d, out := newTestDebugger(t, "break 0x1004\nbreaklist\nquit\n")
	if err := d.Run(-1); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "0x1004") {
		t.Errorf("breaklist did not report the set breakpoint:\n%s", out.String())
	}
}

func TestContinueStopsAtBreakpoint(t *testing.T) {
	d, out := newTestDebugger(t, "break 0x1004\ncontinue\nquit\n")
	if err := d.Run(-1); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "breakpoint hit at 0x1004") {
		t.Errorf("continue did not stop at the breakpoint:\n%s", out.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	d, out := newTestDebugger(t, "frobnicate\nquit\n")
	if err := d.Run(-1); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "unknown command") {
		t.Errorf("expected an unknown-command message:\n%s", out.String())
	}
}
