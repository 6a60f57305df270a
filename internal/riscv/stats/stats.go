// Package stats records the PC, register and instruction-mix histograms
// and TLB hit/miss counters the original proxy-syscall harness tracked
// per run, and renders a live instructions-per-second meter while a long
// batch of instructions retires.
package stats

import (
	"fmt"
	"io"
	"sort"

	"rvsim/internal/riscv/isa"
	"rvsim/internal/riscv/mmu"

	"github.com/schollz/progressbar/v3"
)

// Recorder accumulates per-instruction histograms over the lifetime of a
// run. A nil *Recorder is safe to call every method on and records
// nothing, so the interpreter's hot loop never has to branch on whether
// histograms are enabled.
type Recorder struct {
	pcHist    map[uint64]uint64
	regHist   [32]uint64
	regHistOn bool
	instHist  map[string]uint64
	bar       *progressbar.ProgressBar
}

// Options selects which histograms New actually allocates; an unset field
// disables that histogram's bookkeeping cost entirely rather than
// allocating and never reading it.
type Options struct {
	PCHistogram   bool
	RegHistogram  bool
	InstHistogram bool

	// ProgressTotal, if non-zero, renders a live instructions-per-second
	// bar against an expected instruction budget (ExpectedInstret-style
	// batch runs); zero disables the bar for an interactive run of
	// unknown length.
	ProgressTotal int64
}

// New allocates a Recorder with only the histograms opt enables.
func New(opt Options) *Recorder {
	r := &Recorder{}
	if opt.PCHistogram {
		r.pcHist = make(map[uint64]uint64)
	}
	if opt.InstHistogram {
		r.instHist = make(map[string]uint64)
	}
	r.regHistOn = opt.RegHistogram
	if opt.ProgressTotal > 0 {
		r.bar = progressbar.Default(opt.ProgressTotal)
	}
	return r
}

// RecordStep tallies one retired instruction: its PC and its opcode-family
// mnemonic (register writes are tallied separately by RecordRegWrite).
// Call once per successful isa.Hart.Step.
func (r *Recorder) RecordStep(pc uint64, insn uint32) {
	if r == nil {
		return
	}
	if r.pcHist != nil {
		r.pcHist[pc]++
	}
	if r.instHist != nil {
		r.instHist[isa.Mnemonic(insn)]++
	}
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

// RecordRegWrite tallies a write to integer register reg, for a register-
// usage histogram; x0 writes are never recorded since they are always
// discarded.
func (r *Recorder) RecordRegWrite(reg uint32) {
	if r == nil || !r.regHistOn || reg == 0 || reg >= 32 {
		return
	}
	r.regHist[reg]++
}

// Close releases the progress bar, if one was created.
func (r *Recorder) Close() {
	if r != nil && r.bar != nil {
		_ = r.bar.Close()
	}
}

// WriteSummary prints the collected histograms and the MMU's TLB counters
// in a plain key=value exit-log style.
func (r *Recorder) WriteSummary(w io.Writer, m *mmu.MMU) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "itlb hits=%d misses=%d dtlb hits=%d misses=%d\n",
		m.ITLBHits, m.ITLBMisses, m.DTLBHits, m.DTLBMisses)

	if r.instHist != nil {
		fmt.Fprintln(w, "instruction mix:")
		for _, name := range sortedKeys(r.instHist) {
			fmt.Fprintf(w, "  %-12s %d\n", name, r.instHist[name])
		}
	}
	if r.pcHist != nil {
		fmt.Fprintf(w, "pc histogram: %d distinct addresses\n", len(r.pcHist))
		for _, pc := range topPCs(r.pcHist, 10) {
			fmt.Fprintf(w, "  0x%x %d\n", pc, r.pcHist[pc])
		}
	}
	hasRegHist := false
	for _, n := range r.regHist {
		if n != 0 {
			hasRegHist = true
			break
		}
	}
	if hasRegHist {
		fmt.Fprintln(w, "register writes:")
		for reg, n := range r.regHist {
			if n != 0 {
				fmt.Fprintf(w, "  x%-2d %d\n", reg, n)
			}
		}
	}
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// topPCs returns the n most-executed addresses, descending by count.
func topPCs(hist map[uint64]uint64, n int) []uint64 {
	pcs := make([]uint64, 0, len(hist))
	for pc := range hist {
		pcs = append(pcs, pc)
	}
	sort.Slice(pcs, func(i, j int) bool { return hist[pcs[i]] > hist[pcs[j]] })
	if len(pcs) > n {
		pcs = pcs[:n]
	}
	return pcs
}
