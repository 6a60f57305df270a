// Package elfload maps a RISC-V ELF binary into a guest address space
// through the mmu package and builds the initial process stack the guest
// entry point expects (argv/envp/auxv), the way a host kernel's execve
// would, since a proxy-syscall simulator never runs through an actual
// kernel loader.
package elfload

import (
	"debug/elf"
	"fmt"
	"io"
	"sort"

	"rvsim/internal/riscv/mmu"
)

// Image describes a loaded ELF binary: where it ended up, its entry point
// and a symbol table for debugger/trap symbolication.
type Image struct {
	Entry   uint64
	LoBound uint64
	HiBound uint64
	Symbols *SymTable
}

// Load reads a RISC-V ELF32 or ELF64 executable from r and maps its PT_LOAD
// segments into hm, registering each as a PMA entry with the segment's
// own read/write/execute flags.
func Load(r io.ReaderAt, hm *mmu.HostMap, pma *mmu.PMATable) (*Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("elfload: open: %w", err)
	}
	defer f.Close()

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("elfload: unsupported machine %s (want RISC-V)", f.Machine)
	}
	if f.Class != elf.ELFCLASS64 && f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("elfload: unsupported ELF class %s", f.Class)
	}

	img := &Image{Entry: f.Entry}
	haveBound := false

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}

		pageBase := prog.Vaddr &^ uint64(mmu.PageSize-1)
		pageEnd := (prog.Vaddr + prog.Memsz + mmu.PageSize - 1) &^ uint64(mmu.PageSize-1)
		pageLen := pageEnd - pageBase

		prot := segProt(prog.Flags)
		host, err := hm.MapAnon(pageBase, pageLen, prot)
		if err != nil {
			return nil, fmt.Errorf("elfload: map segment at 0x%x: %w", pageBase, err)
		}
		if err := pma.Add(pageBase, pageLen, mmu.PMAAttrs{Cacheable: true, Perm: prot}); err != nil {
			return nil, fmt.Errorf("elfload: pma for segment at 0x%x: %w", pageBase, err)
		}

		off := prog.Vaddr - pageBase
		if _, err := io.ReadFull(io.NewSectionReader(prog, 0, int64(prog.Filesz)), host[off:off+prog.Filesz]); err != nil {
			return nil, fmt.Errorf("elfload: read segment data: %w", err)
		}
		// Bytes beyond Filesz up to Memsz are the segment's BSS: MapAnon
		// already zero-filled them, so there's nothing further to do.

		if !haveBound || pageBase < img.LoBound {
			img.LoBound = pageBase
		}
		if pageEnd > img.HiBound {
			img.HiBound = pageEnd
		}
		haveBound = true
	}

	if !haveBound {
		return nil, fmt.Errorf("elfload: no PT_LOAD segments")
	}

	img.Symbols = buildSymTable(f)
	return img, nil
}

func segProt(flags elf.ProgFlag) mmu.Prot {
	var p mmu.Prot
	if flags&elf.PF_R != 0 {
		p |= mmu.ProtRead
	}
	if flags&elf.PF_W != 0 {
		p |= mmu.ProtWrite
	}
	if flags&elf.PF_X != 0 {
		p |= mmu.ProtExec
	}
	return p
}

// SymTable supports nearest-address symbol lookup for the debugger and
// trap logging, mirroring sym_by_addr/sym_by_nearest_addr.
type SymTable struct {
	syms []elf.Symbol // sorted by Value
}

func buildSymTable(f *elf.File) *SymTable {
	syms, err := f.Symbols()
	if err != nil {
		return &SymTable{}
	}
	filtered := make([]elf.Symbol, 0, len(syms))
	for _, s := range syms {
		if s.Name != "" && elf.ST_TYPE(s.Info) == elf.STT_FUNC {
			filtered = append(filtered, s)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Value < filtered[j].Value })
	return &SymTable{syms: filtered}
}

// Lookup returns the symbol exactly at addr, if any.
func (t *SymTable) Lookup(addr uint64) (string, bool) {
	for _, s := range t.syms {
		if s.Value == addr {
			return s.Name, true
		}
	}
	return "", false
}

// Nearest returns the symbol at or below addr along with the byte offset
// into it, for "func+0x10"-style symbolication of an arbitrary PC.
func (t *SymTable) Nearest(addr uint64) (name string, offset uint64, ok bool) {
	idx := sort.Search(len(t.syms), func(i int) bool { return t.syms[i].Value > addr }) - 1
	if idx < 0 {
		return "", 0, false
	}
	s := t.syms[idx]
	return s.Name, addr - s.Value, true
}
