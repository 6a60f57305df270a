package elfload

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"

	"rvsim/internal/riscv/mmu"
)

func elfSymbol(value uint64, name string) elf.Symbol {
	return elf.Symbol{Name: name, Value: value, Info: byte(elf.STT_FUNC)}
}

// buildMinimalELF assembles a bare ELF64 RISC-V executable with a single
// PT_LOAD segment and no section headers, mirroring exactly what a
// statically linked guest binary's PT_LOAD view looks like to Load.
func buildMinimalELF(vaddr uint64, flags uint32, payload []byte) []byte {
	const ehdrSize = 64
	const phdrSize = 56
	fileOff := uint64(ehdrSize + phdrSize)

	buf := make([]byte, fileOff+uint64(len(payload)))
	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EI_VERSION
	binary.LittleEndian.PutUint16(buf[16:18], 2)   // ET_EXEC
	binary.LittleEndian.PutUint16(buf[18:20], 243) // EM_RISCV
	binary.LittleEndian.PutUint32(buf[20:24], 1)   // e_version
	binary.LittleEndian.PutUint64(buf[24:32], vaddr+16)
	binary.LittleEndian.PutUint64(buf[32:40], ehdrSize) // e_phoff
	binary.LittleEndian.PutUint16(buf[52:54], ehdrSize)
	binary.LittleEndian.PutUint16(buf[54:56], phdrSize)
	binary.LittleEndian.PutUint16(buf[56:58], 1) // e_phnum

	ph := buf[ehdrSize:]
	binary.LittleEndian.PutUint32(ph[0:4], 1) // PT_LOAD
	binary.LittleEndian.PutUint32(ph[4:8], flags)
	binary.LittleEndian.PutUint64(ph[8:16], fileOff)
	binary.LittleEndian.PutUint64(ph[16:24], vaddr)
	binary.LittleEndian.PutUint64(ph[24:32], vaddr)
	binary.LittleEndian.PutUint64(ph[32:40], uint64(len(payload)))
	binary.LittleEndian.PutUint64(ph[40:48], uint64(len(payload))+64) // memsz > filesz: trailing BSS
	binary.LittleEndian.PutUint64(ph[48:56], uint64(mmu.PageSize))

	copy(buf[fileOff:], payload)
	return buf
}

func TestLoadMapsSegmentAndZerosBSS(t *testing.T) {
	vaddr := uint64(0x10000)
	payload := []byte{0xef, 0xbe, 0xad, 0xde}
	raw := buildMinimalELF(vaddr, 5, payload) // PF_R|PF_X

	hm := mmu.NewHostMap()
	pma := mmu.NewPMATable()

	img, err := Load(bytes.NewReader(raw), hm, pma)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if img.Entry != vaddr+16 {
		t.Errorf("Entry = 0x%x, want 0x%x", img.Entry, vaddr+16)
	}
	if img.LoBound != vaddr&^uint64(mmu.PageSize-1) {
		t.Errorf("LoBound = 0x%x, want page-aligned 0x%x", img.LoBound, vaddr)
	}

	ref, prot, ok := hm.Resolve(vaddr)
	if !ok {
		t.Fatalf("Resolve(0x%x) failed after Load", vaddr)
	}
	if prot != mmu.ProtRead|mmu.ProtExec {
		t.Errorf("prot = %v, want R|X", prot)
	}
	if got := ref.Bytes()[:4]; !bytes.Equal(got, payload) {
		t.Errorf("segment data = %x, want %x", got, payload)
	}
	// Bytes beyond Filesz up to Memsz are BSS: MapAnon zero-fills them.
	if got := ref.Bytes()[4]; got != 0 {
		t.Errorf("BSS byte = %d, want 0", got)
	}

	attrs, found := pma.Lookup(vaddr)
	if !found {
		t.Fatalf("no PMA entry registered for loaded segment")
	}
	if attrs.Perm != mmu.ProtRead|mmu.ProtExec {
		t.Errorf("PMA perm = %v, want R|X", attrs.Perm)
	}
}

func TestLoadRejectsWrongMachine(t *testing.T) {
	raw := buildMinimalELF(0x1000, 5, []byte{1, 2, 3, 4})
	binary.LittleEndian.PutUint16(raw[18:20], 0x3e) // EM_X86_64

	hm := mmu.NewHostMap()
	pma := mmu.NewPMATable()
	if _, err := Load(bytes.NewReader(raw), hm, pma); err == nil {
		t.Fatal("Load() on a non-RISC-V ELF should fail")
	}
}

func TestSymTableLookupAndNearest(t *testing.T) {
	// Constructed directly rather than through a real ELF symtab: Lookup
	// and Nearest only ever touch the sorted syms slice.
	tab := &SymTable{}
	tab.syms = append(tab.syms, elfSymbol(0x1000, "_start"), elfSymbol(0x1040, "main"), elfSymbol(0x2000, "exit"))

	if name, ok := tab.Lookup(0x1040); !ok || name != "main" {
		t.Errorf("Lookup(0x1040) = %q, %v, want main, true", name, ok)
	}
	if _, ok := tab.Lookup(0x1041); ok {
		t.Error("Lookup(0x1041) should miss: no exact symbol there")
	}
	name, off, ok := tab.Nearest(0x1048)
	if !ok || name != "main" || off != 8 {
		t.Errorf("Nearest(0x1048) = %q, 0x%x, %v, want main, 0x8, true", name, off, ok)
	}
	if _, _, ok := tab.Nearest(0xfff); ok {
		t.Error("Nearest before every symbol should miss")
	}
}
