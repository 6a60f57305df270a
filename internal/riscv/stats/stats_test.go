package stats

import (
	"bytes"
	"strings"
	"testing"

	"rvsim/internal/riscv/mmu"
)

func TestRecordStepPopulatesHistograms(t *testing.T) {
	r := New(Options{PCHistogram: true, InstHistogram: true})
	defer r.Close()

	r.RecordStep(0x1000, 0x00000013) // op-imm: addi x0, x0, 0 (nop)
	r.RecordStep(0x1004, 0x00000013)
	r.RecordStep(0x1008, 0x00000063) // branch opcode

	var buf bytes.Buffer
	hm := mmu.NewHostMap()
	m := mmu.New(hm, mmu.NewPMATable())
	r.WriteSummary(&buf, m)

	out := buf.String()
	if !strings.Contains(out, "op-imm") {
		t.Errorf("summary missing op-imm entry:\n%s", out)
	}
	if !strings.Contains(out, "0x1000") {
		t.Errorf("summary missing pc histogram entry:\n%s", out)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.RecordStep(0, 0)
	r.RecordRegWrite(5)
	r.Close()

	var buf bytes.Buffer
	hm := mmu.NewHostMap()
	m := mmu.New(hm, mmu.NewPMATable())
	r.WriteSummary(&buf, m) // must not panic, must write nothing

	if buf.Len() != 0 {
		t.Errorf("nil recorder wrote output: %q", buf.String())
	}
}

func TestRecordRegWriteIgnoresX0(t *testing.T) {
	r := New(Options{RegHistogram: true})
	r.RecordRegWrite(0)
	r.RecordRegWrite(5)
	if r.regHist[0] != 0 {
		t.Error("x0 write should never be tallied")
	}
	if r.regHist[5] != 1 {
		t.Errorf("regHist[5] = %d, want 1", r.regHist[5])
	}
}

func TestRecordRegWriteDisabledByDefault(t *testing.T) {
	r := New(Options{})
	r.RecordRegWrite(5)
	if r.regHist[5] != 0 {
		t.Errorf("regHist[5] = %d, want 0 when RegHistogram is unset", r.regHist[5])
	}
}
