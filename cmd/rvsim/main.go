// Command rvsim runs a single statically linked RISC-V ELF binary as a
// proxy-syscall guest: it has no kernel or boot ROM of its own, loads the
// image straight into a host-memory map, enters the guest at its ELF entry
// point in user mode, and forwards every ECALL the guest issues to the
// host's own syscall table.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"rvsim/internal/riscv/config"
	"rvsim/internal/riscv/cpu"
	"rvsim/internal/riscv/debugger"
	"rvsim/internal/riscv/elfload"
	"rvsim/internal/riscv/isa"
	"rvsim/internal/riscv/mmu"
	"rvsim/internal/riscv/proxy"
	"rvsim/internal/riscv/stats"
	"rvsim/internal/riscv/term"
)

const memoryTop = 0x8800_0000 // guest machine-physical top of mapped RAM window

// allowedEnvPrefixes mirrors a proxy-syscall harness's environment
// allow-list: only TERM crosses from host to guest, since nothing else a
// statically linked guest reads is meaningful once there is no real shell
// session backing it.
var allowedEnvPrefixes = []string{"TERM="}

func filterEnv(env []string) []string {
	var out []string
	for _, kv := range env {
		for _, prefix := range allowedEnvPrefixes {
			if strings.HasPrefix(kv, prefix) {
				out = append(out, kv)
				break
			}
		}
	}
	return out
}

type options struct {
	logInstructions bool
	logOperands     bool
	logRegisters    bool
	logExitStats    bool
	symbolicate     bool
	debug           bool
	pcHistogram     bool
	regHistogram    bool
	instHistogram   bool
	isaExt          string
	configPath      string
	seed            int64
	elfPath         string
	args            []string
}

func parseFlags() (*options, error) {
	opt := &options{}
	flag.BoolVar(&opt.logInstructions, "l", false, "log each retired instruction")
	flag.BoolVar(&opt.logOperands, "o", false, "log each retired instruction and its operands")
	flag.BoolVar(&opt.logRegisters, "r", false, "log integer registers after each instruction")
	flag.BoolVar(&opt.logExitStats, "E", false, "log registers and statistics at exit")
	flag.BoolVar(&opt.symbolicate, "S", false, "symbolicate addresses in instruction/trap logs")
	flag.BoolVar(&opt.debug, "d", false, "start in the interactive debugger")
	flag.BoolVar(&opt.pcHistogram, "P", false, "record program counter usage")
	flag.BoolVar(&opt.regHistogram, "R", false, "record register usage")
	flag.BoolVar(&opt.instHistogram, "I", false, "record instruction usage")
	flag.StringVar(&opt.isaExt, "i", "", "ISA extensions (i, ima, imac, imafd, imafdc)")
	flag.StringVar(&opt.configPath, "c", "", "YAML config file")
	flag.Int64Var(&opt.seed, "s", 0, "random seed for initial register-file entropy")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `rvsim - run a RISC-V ELF binary as a proxy-syscall guest

USAGE:
  rvsim [flags] <elf_file> [guest args...]

FLAGS:
  -l  log each retired instruction
  -o  log each retired instruction and its operands
  -r  log integer registers after each instruction
  -E  log registers and statistics at exit
  -S  symbolicate addresses in instruction/trap logs
  -d  start in the interactive debugger
  -P  record program counter usage
  -R  record register usage
  -I  record instruction usage
  -i  ISA extensions (i, ima, imac, imafd, imafdc)
  -c  YAML config file
  -s  random seed for initial register-file entropy
`)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		return nil, fmt.Errorf("missing elf_file argument")
	}
	opt.elfPath = flag.Arg(0)
	opt.args = flag.Args()
	return opt, nil
}

func run() (int, error) {
	opt, err := parseFlags()
	if err != nil {
		return 9, err
	}

	cfg, err := config.Load(opt.configPath)
	if err != nil {
		return 1, err
	}
	if opt.isaExt != "" {
		cfg.Extensions = opt.isaExt
	}
	if err := cfg.Validate(); err != nil {
		return 1, err
	}

	f, err := os.Open(opt.elfPath)
	if err != nil {
		return 1, fmt.Errorf("open %s: %w", opt.elfPath, err)
	}
	defer f.Close()

	hostMap := mmu.NewHostMap()
	pma := mmu.NewPMATable()

	img, err := elfload.Load(f, hostMap, pma)
	if err != nil {
		return 1, fmt.Errorf("load %s: %w", opt.elfPath, err)
	}

	stackSize := cfg.StackSizeKB * 1024
	heapLimit := cfg.MemorySizeMB * 1024 * 1024
	sp, err := elfload.SetupStack(hostMap, pma, img, opt.args, filterEnv(os.Environ()), memoryTop, stackSize)
	if err != nil {
		return 1, fmt.Errorf("setup stack: %w", err)
	}

	c := cpu.New(cfg.MMUXLen())
	c.SeedRegisters(opt.seed)
	c.SetEntry(img.Entry)
	c.WriteReg(2, sp) // x2 = sp

	m := mmu.New(hostMap, pma)
	hart := isa.New(c, m, cfg.HasCompressed())
	px := proxy.New(hostMap, pma, img, heapLimit)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if opt.debug {
		dbg := debugger.New(hart, img, os.Stdin, os.Stdout)
		return 0, dbg.Run(int(os.Stdin.Fd()))
	}

	console := term.New(int(os.Stdin.Fd()))
	if err := console.EnterRaw(); err != nil {
		logger.Warn("failed to enter raw mode, guest console will use cooked input", "error", err)
	}
	defer console.Restore()

	rec := stats.New(stats.Options{PCHistogram: opt.pcHistogram, RegHistogram: opt.regHistogram, InstHistogram: opt.instHistogram})
	defer rec.Close()

	exitCode, err := runLoop(hart, px, img, opt, logger, rec)
	if err != nil {
		return 1, err
	}
	if opt.logExitStats {
		logger.Info("exit registers", "pc", fmt.Sprintf("0x%x", c.PC), "x", c.X)
		rec.WriteSummary(os.Stderr, m)
	}
	return exitCode, nil
}

func runLoop(hart *isa.Hart, px *proxy.Proxy, img *elfload.Image, opt *options, logger *slog.Logger, rec *stats.Recorder) (int, error) {
	for {
		trap := hart.Step()
		if trap == nil {
			if opt.logInstructions || opt.logOperands {
				logLocation(logger, hart, img, opt.symbolicate, opt.logOperands)
			}
			rec.RecordStep(hart.LastPC, hart.LastInsn)
			if hart.CPU.LastRdWritten {
				rec.RecordRegWrite(hart.CPU.LastRd)
			}
			if opt.logRegisters {
				logger.Info("registers", "pc", fmt.Sprintf("0x%x", hart.CPU.PC), "x", hart.CPU.X)
			}
			continue
		}

		if trap.Cause != isa.CauseECall {
			loc := fmt.Sprintf("0x%x", hart.CPU.PC)
			if opt.symbolicate && img.Symbols != nil {
				if name, off, ok := img.Symbols.Nearest(hart.CPU.PC); ok {
					loc += fmt.Sprintf(" (%s+0x%x)", name, off)
				}
			}
			return 1, fmt.Errorf("unhandled trap %s at pc=%s (tval=0x%x)", trap.Cause, loc, trap.Tval)
		}

		if exit := px.Dispatch(hart.CPU); exit != nil {
			if opt.logExitStats {
				logger.Info("guest exited", "code", exit.Code, "instret", hart.CPU.Instret, "cycles", hart.CPU.Cycle)
			}
			return exit.Code, nil
		}
	}
}

func logLocation(logger *slog.Logger, hart *isa.Hart, img *elfload.Image, symbolicate, logOperands bool) {
	pc := hart.LastPC
	args := []any{"pc", fmt.Sprintf("0x%x", pc), "insn", isa.Mnemonic(hart.LastInsn)}
	if logOperands {
		args = append(args, "operands", isa.Operands(hart.LastInsn))
	}
	if symbolicate && img.Symbols != nil {
		if name, off, ok := img.Symbols.Nearest(pc); ok {
			args = append(args, "sym", fmt.Sprintf("%s+0x%x", name, off))
		}
	}
	logger.Info("step", args...)
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rvsim: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	os.Exit(code)
}
