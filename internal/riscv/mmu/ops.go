package mmu

import "encoding/binary"

// Fetch performs an instruction fetch: it returns a byte-level-decoded
// instruction word (16 or 32 bits, since the compressed extension allows
// half-word-aligned 16-bit instructions) and its width. Alignment uses
// 16-bit granularity regardless of the eventual width.
func (m *MMU) Fetch(ps ProcState, pc uint64) (insn uint32, width int, fault *Fault) {
	if f := checkAlignment(pc, 2, AccessFetch); f != nil {
		ps.SetBadAddr(pc)
		return 0, 0, f
	}

	ref, f := m.access(ps, pc, 2, AccessFetch)
	if f != nil {
		return 0, 0, f
	}
	lo := binary.LittleEndian.Uint16(ref.Bytes()[:2])
	if lo&0x3 != 0x3 {
		return uint32(lo), 2, nil
	}

	// Full 32-bit instruction: re-resolve for 4 bytes since it may span a
	// page boundary the 2-byte probe above didn't reach.
	ref4, f := m.access(ps, pc, 4, AccessFetch)
	if f != nil {
		return 0, 0, f
	}
	return binary.LittleEndian.Uint32(ref4.Bytes()[:4]), 4, nil
}

// Load8 loads an unsigned byte from va.
func (m *MMU) Load8(ps ProcState, va uint64) (uint8, *Fault) {
	ref, f := m.access(ps, va, 1, AccessLoad)
	if f != nil {
		return 0, f
	}
	return ref.Bytes()[0], nil
}

// Load16 loads an unsigned halfword from va.
func (m *MMU) Load16(ps ProcState, va uint64) (uint16, *Fault) {
	if f := checkAlignment(va, 2, AccessLoad); f != nil {
		ps.SetBadAddr(va)
		return 0, f
	}
	ref, f := m.access(ps, va, 2, AccessLoad)
	if f != nil {
		return 0, f
	}
	return binary.LittleEndian.Uint16(ref.Bytes()[:2]), nil
}

// Load32 loads an unsigned word from va.
func (m *MMU) Load32(ps ProcState, va uint64) (uint32, *Fault) {
	if f := checkAlignment(va, 4, AccessLoad); f != nil {
		ps.SetBadAddr(va)
		return 0, f
	}
	ref, f := m.access(ps, va, 4, AccessLoad)
	if f != nil {
		return 0, f
	}
	return binary.LittleEndian.Uint32(ref.Bytes()[:4]), nil
}

// Load64 loads a doubleword from va.
func (m *MMU) Load64(ps ProcState, va uint64) (uint64, *Fault) {
	if f := checkAlignment(va, 8, AccessLoad); f != nil {
		ps.SetBadAddr(va)
		return 0, f
	}
	ref, f := m.access(ps, va, 8, AccessLoad)
	if f != nil {
		return 0, f
	}
	return binary.LittleEndian.Uint64(ref.Bytes()[:8]), nil
}

// Store8 stores an unsigned byte to va.
func (m *MMU) Store8(ps ProcState, va uint64, val uint8) *Fault {
	ref, f := m.access(ps, va, 1, AccessStore)
	if f != nil {
		return f
	}
	ref.Bytes()[0] = val
	return nil
}

// Store16 stores an unsigned halfword to va.
func (m *MMU) Store16(ps ProcState, va uint64, val uint16) *Fault {
	if f := checkAlignment(va, 2, AccessStore); f != nil {
		ps.SetBadAddr(va)
		return f
	}
	ref, f := m.access(ps, va, 2, AccessStore)
	if f != nil {
		return f
	}
	binary.LittleEndian.PutUint16(ref.Bytes()[:2], val)
	return nil
}

// Store32 stores an unsigned word to va.
func (m *MMU) Store32(ps ProcState, va uint64, val uint32) *Fault {
	if f := checkAlignment(va, 4, AccessStore); f != nil {
		ps.SetBadAddr(va)
		return f
	}
	ref, f := m.access(ps, va, 4, AccessStore)
	if f != nil {
		return f
	}
	binary.LittleEndian.PutUint32(ref.Bytes()[:4], val)
	return nil
}

// Store64 stores a doubleword to va. A faulting store leaves guest memory
// byte-identical to its pre-access state: the failing checker step always
// runs before any byte of ref is touched.
func (m *MMU) Store64(ps ProcState, va uint64, val uint64) *Fault {
	if f := checkAlignment(va, 8, AccessStore); f != nil {
		ps.SetBadAddr(va)
		return f
	}
	ref, f := m.access(ps, va, 8, AccessStore)
	if f != nil {
		return f
	}
	binary.LittleEndian.PutUint64(ref.Bytes()[:8], val)
	return nil
}
