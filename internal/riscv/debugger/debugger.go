// Package debugger implements the optional interactive CLI the original
// proxy-syscall harness could drop into on EBREAK: single-step, run to
// breakpoint, and register/memory/symbol inspection over a plain
// line-oriented REPL.
package debugger

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"rvsim/internal/riscv/elfload"
	"rvsim/internal/riscv/isa"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// Debugger drives one hart interactively from a REPL reading in and
// writing prompts/output to out.
type Debugger struct {
	Hart   *isa.Hart
	Image  *elfload.Image
	in     *bufio.Scanner
	out    io.Writer
	breaks map[uint64]bool
}

// New builds a Debugger reading commands from in and writing to out.
func New(hart *isa.Hart, img *elfload.Image, in io.Reader, out io.Writer) *Debugger {
	return &Debugger{
		Hart:   hart,
		Image:  img,
		in:     bufio.NewScanner(in),
		out:    out,
		breaks: make(map[uint64]bool),
	}
}

// Run enters the REPL and returns when the user quits or input is
// exhausted. If stdinFd names a real terminal, raw mode is NOT enabled —
// a line-oriented debugger wants cooked mode so the scanner sees whole
// lines, unlike the guest's own console proxy (internal/riscv/term).
func (d *Debugger) Run(stdinFd int) error {
	if term.IsTerminal(stdinFd) {
		fmt.Fprintln(d.out, "rvsim debugger — type 'help' for commands")
	}
	for {
		fmt.Fprint(d.out, "(rvsim) ")
		if !d.in.Scan() {
			return d.in.Err()
		}
		line := strings.TrimSpace(d.in.Text())
		if line == "" {
			continue
		}
		if quit, err := d.dispatch(line); quit || err != nil {
			return err
		}
	}
}

func (d *Debugger) dispatch(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "s", "step":
		n := 1
		if len(args) > 0 {
			n, _ = strconv.Atoi(args[0])
		}
		for i := 0; i < n; i++ {
			if trap := d.Hart.Step(); trap != nil {
				fmt.Fprintf(d.out, "trap: %v\n", trap)
				break
			}
		}
		d.printPC()

	case "c", "continue":
		for {
			trap := d.Hart.Step()
			if trap != nil {
				fmt.Fprintf(d.out, "stopped on trap: %v\n", trap)
				break
			}
			if d.breaks[d.Hart.CPU.PC] {
				fmt.Fprintf(d.out, "breakpoint hit at 0x%x\n", d.Hart.CPU.PC)
				break
			}
		}
		d.printPC()

	case "b", "break":
		if len(args) != 1 {
			fmt.Fprintln(d.out, "usage: break <addr>")
			break
		}
		addr, perr := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 64)
		if perr != nil {
			fmt.Fprintf(d.out, "bad address: %v\n", perr)
			break
		}
		d.breaks[addr] = true
		fmt.Fprintf(d.out, "breakpoint set at 0x%x\n", addr)

	case "bl", "breaklist":
		d.listBreaks()

	case "r", "regs":
		d.printRegs()

	case "sym":
		if len(args) != 1 {
			fmt.Fprintln(d.out, "usage: sym <addr>")
			break
		}
		addr, perr := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 64)
		if perr != nil {
			fmt.Fprintf(d.out, "bad address: %v\n", perr)
			break
		}
		d.printSym(addr)

	case "q", "quit":
		return true, nil

	case "help":
		d.printHelp()

	default:
		fmt.Fprintf(d.out, "unknown command %q (try 'help')\n", cmd)
	}
	return false, nil
}

func (d *Debugger) printPC() {
	pc := d.Hart.CPU.PC
	if d.Image != nil && d.Image.Symbols != nil {
		if name, off, ok := d.Image.Symbols.Nearest(pc); ok {
			fmt.Fprintf(d.out, "pc=0x%x (%s+0x%x)\n", pc, name, off)
			return
		}
	}
	fmt.Fprintf(d.out, "pc=0x%x\n", pc)
}

func (d *Debugger) printSym(addr uint64) {
	if d.Image == nil || d.Image.Symbols == nil {
		fmt.Fprintln(d.out, "no symbol table loaded")
		return
	}
	if name, ok := d.Image.Symbols.Lookup(addr); ok {
		fmt.Fprintf(d.out, "%s\n", name)
		return
	}
	if name, off, ok := d.Image.Symbols.Nearest(addr); ok {
		fmt.Fprintf(d.out, "%s+0x%x\n", name, off)
		return
	}
	fmt.Fprintln(d.out, "no symbol covers that address")
}

func (d *Debugger) listBreaks() {
	addrs := make([]uint64, 0, len(d.breaks))
	for a := range d.breaks {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, a := range addrs {
		fmt.Fprintf(d.out, "0x%x\n", a)
	}
}

// printRegs renders x0-x31 in a four-column table, padding each cell to
// a fixed display width via ansi.StringWidth so wide/narrow runes in a
// symbol name never misalign the columns.
func (d *Debugger) printRegs() {
	c := d.Hart.CPU
	for row := 0; row < 8; row++ {
		var line strings.Builder
		for col := 0; col < 4; col++ {
			reg := row + col*8
			cell := fmt.Sprintf("x%-2d=0x%016x", reg, c.X[reg])
			line.WriteString(cell)
			if pad := 28 - ansi.StringWidth(cell); pad > 0 {
				line.WriteString(strings.Repeat(" ", pad))
			}
		}
		fmt.Fprintln(d.out, strings.TrimRight(line.String(), " "))
	}
	fmt.Fprintf(d.out, "pc=0x%016x priv=%d\n", c.PC, c.CurPriv)
}

func (d *Debugger) printHelp() {
	fmt.Fprint(d.out, strings.TrimSpace(ansi.Strip(`
commands:
  s, step [n]     execute n instructions (default 1)
  c, continue     run until a trap or breakpoint
  b, break <addr> set a breakpoint at addr (hex)
  bl, breaklist   list breakpoints
  r, regs         dump integer registers
  sym <addr>      resolve addr to a symbol name
  q, quit         leave the debugger
`))+"\n")
}
