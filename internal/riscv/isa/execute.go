package isa

import "rvsim/internal/riscv/mmu"

func (h *Hart) execute(insn uint32) *Trap {
	switch opcode(insn) {
	case opLui:
		h.CPU.WriteReg(rd(insn), h.CPU.Mask(uint64(immU(insn))))
	case opAuipc:
		h.CPU.WriteReg(rd(insn), h.CPU.Mask(uint64(int64(h.CPU.PC)+immU(insn))))
	case opJal:
		h.execJal(insn)
	case opJalr:
		h.execJalr(insn)
	case opBranch:
		return h.execBranch(insn)
	case opLoad:
		return h.execLoad(insn)
	case opStore:
		return h.execStore(insn)
	case opOpImm:
		h.execOpImm(insn)
	case opOpImm32:
		h.execOpImm32(insn)
	case opOp:
		h.execOp(insn)
	case opOp32:
		h.execOp32(insn)
	case opMiscMem:
		// FENCE / FENCE.I: no-op, the hart is single-threaded and the
		// simulator has no separate instruction cache to flush.
	case opSystem:
		return h.execSystem(insn)
	case opAMO:
		return h.execAMO(insn)
	case opLoadFP, opStoreFP, opOpFP:
		return h.execFP(insn)
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}
	return nil
}

func (h *Hart) execJal(insn uint32) {
	target := h.CPU.Mask(uint64(int64(h.CPU.PC) + immJ(insn)))
	h.CPU.WriteReg(rd(insn), h.CPU.Mask(h.CPU.PC+4))
	h.CPU.PC = target
}

func (h *Hart) execJalr(insn uint32) {
	target := h.CPU.Mask(uint64(int64(h.CPU.ReadReg(rs1(insn)))+immI(insn)) &^ 1)
	h.CPU.WriteReg(rd(insn), h.CPU.Mask(h.CPU.PC+4))
	h.CPU.PC = target
}

func (h *Hart) execBranch(insn uint32) *Trap {
	r1 := h.CPU.ReadReg(rs1(insn))
	r2 := h.CPU.ReadReg(rs2(insn))

	var taken bool
	switch funct3(insn) {
	case 0b000: // BEQ
		taken = r1 == r2
	case 0b001: // BNE
		taken = r1 != r2
	case 0b100: // BLT
		taken = int64(r1) < int64(r2)
	case 0b101: // BGE
		taken = int64(r1) >= int64(r2)
	case 0b110: // BLTU
		taken = r1 < r2
	case 0b111: // BGEU
		taken = r1 >= r2
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}
	if taken {
		h.CPU.PC = h.CPU.Mask(uint64(int64(h.CPU.PC) + immB(insn)))
	}
	return nil
}

func (h *Hart) execLoad(insn uint32) *Trap {
	addr := h.CPU.Mask(uint64(int64(h.CPU.ReadReg(rs1(insn))) + immI(insn)))
	var val uint64
	var fault *mmu.Fault
	switch funct3(insn) {
	case 0b000: // LB
		v, f := h.MMU.Load8(h.CPU, addr)
		val, fault = uint64(int8(v)), f
	case 0b001: // LH
		v, f := h.MMU.Load16(h.CPU, addr)
		val, fault = uint64(int16(v)), f
	case 0b010: // LW
		v, f := h.MMU.Load32(h.CPU, addr)
		val, fault = uint64(int32(v)), f
	case 0b011: // LD
		val, fault = h.MMU.Load64(h.CPU, addr)
	case 0b100: // LBU
		v, f := h.MMU.Load8(h.CPU, addr)
		val, fault = uint64(v), f
	case 0b101: // LHU
		v, f := h.MMU.Load16(h.CPU, addr)
		val, fault = uint64(v), f
	case 0b110: // LWU
		v, f := h.MMU.Load32(h.CPU, addr)
		val, fault = uint64(v), f
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}
	if fault != nil {
		return faultTrap(fault)
	}
	h.CPU.WriteReg(rd(insn), h.CPU.Mask(val))
	return nil
}

func (h *Hart) execStore(insn uint32) *Trap {
	addr := h.CPU.Mask(uint64(int64(h.CPU.ReadReg(rs1(insn))) + immS(insn)))
	val := h.CPU.ReadReg(rs2(insn))
	var fault *mmu.Fault
	switch funct3(insn) {
	case 0b000: // SB
		fault = h.MMU.Store8(h.CPU, addr, uint8(val))
	case 0b001: // SH
		fault = h.MMU.Store16(h.CPU, addr, uint16(val))
	case 0b010: // SW
		fault = h.MMU.Store32(h.CPU, addr, uint32(val))
	case 0b011: // SD
		fault = h.MMU.Store64(h.CPU, addr, val)
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}
	if fault != nil {
		return faultTrap(fault)
	}
	return nil
}

func (h *Hart) execOpImm(insn uint32) {
	r1 := h.CPU.ReadReg(rs1(insn))
	imm := immI(insn)
	sh := shamt(insn)

	var val uint64
	switch funct3(insn) {
	case 0b000: // ADDI
		val = uint64(int64(r1) + imm)
	case 0b001: // SLLI
		val = r1 << sh
	case 0b010: // SLTI
		if int64(r1) < imm {
			val = 1
		}
	case 0b011: // SLTIU
		if r1 < uint64(imm) {
			val = 1
		}
	case 0b100: // XORI
		val = r1 ^ uint64(imm)
	case 0b101: // SRLI/SRAI
		if (insn>>30)&1 == 1 {
			val = uint64(int64(r1) >> sh)
		} else {
			val = r1 >> sh
		}
	case 0b110: // ORI
		val = r1 | uint64(imm)
	case 0b111: // ANDI
		val = r1 & uint64(imm)
	}
	h.CPU.WriteReg(rd(insn), h.CPU.Mask(val))
}

func (h *Hart) execOpImm32(insn uint32) {
	r1 := uint32(h.CPU.ReadReg(rs1(insn)))
	imm := int32(immI(insn))
	sh := shamt32(insn)

	var val int32
	switch funct3(insn) {
	case 0b000: // ADDIW
		val = int32(r1) + imm
	case 0b001: // SLLIW
		val = int32(r1 << sh)
	case 0b101: // SRLIW/SRAIW
		if (insn>>30)&1 == 1 {
			val = int32(r1) >> sh
		} else {
			val = int32(r1 >> sh)
		}
	}
	h.CPU.WriteReg(rd(insn), uint64(val))
}

func (h *Hart) execOp(insn uint32) {
	r1 := h.CPU.ReadReg(rs1(insn))
	r2 := h.CPU.ReadReg(rs2(insn))
	f7 := funct7(insn)

	if f7 == 0b0000001 {
		h.execOpM(insn, r1, r2)
		return
	}

	var val uint64
	switch funct3(insn) {
	case 0b000: // ADD/SUB
		if f7 == 0b0100000 {
			val = uint64(int64(r1) - int64(r2))
		} else {
			val = uint64(int64(r1) + int64(r2))
		}
	case 0b001: // SLL
		val = r1 << (r2 & 0x3f)
	case 0b010: // SLT
		if int64(r1) < int64(r2) {
			val = 1
		}
	case 0b011: // SLTU
		if r1 < r2 {
			val = 1
		}
	case 0b100: // XOR
		val = r1 ^ r2
	case 0b101: // SRL/SRA
		if f7 == 0b0100000 {
			val = uint64(int64(r1) >> (r2 & 0x3f))
		} else {
			val = r1 >> (r2 & 0x3f)
		}
	case 0b110: // OR
		val = r1 | r2
	case 0b111: // AND
		val = r1 & r2
	}
	h.CPU.WriteReg(rd(insn), h.CPU.Mask(val))
}

func (h *Hart) execOpM(insn uint32, r1, r2 uint64) {
	var val uint64
	switch funct3(insn) {
	case 0b000: // MUL
		val = uint64(int64(r1) * int64(r2))
	case 0b001: // MULH
		val = uint64(mulh64(int64(r1), int64(r2)))
	case 0b010: // MULHSU
		val = uint64(mulhsu64(int64(r1), r2))
	case 0b011: // MULHU
		val = mulhu64(r1, r2)
	case 0b100: // DIV
		switch {
		case r2 == 0:
			val = ^uint64(0)
		case r1 == uint64(1)<<63 && r2 == ^uint64(0):
			val = r1
		default:
			val = uint64(int64(r1) / int64(r2))
		}
	case 0b101: // DIVU
		if r2 == 0 {
			val = ^uint64(0)
		} else {
			val = r1 / r2
		}
	case 0b110: // REM
		switch {
		case r2 == 0:
			val = r1
		case r1 == uint64(1)<<63 && r2 == ^uint64(0):
			val = 0
		default:
			val = uint64(int64(r1) % int64(r2))
		}
	case 0b111: // REMU
		if r2 == 0 {
			val = r1
		} else {
			val = r1 % r2
		}
	}
	h.CPU.WriteReg(rd(insn), h.CPU.Mask(val))
}

func (h *Hart) execOp32(insn uint32) {
	r1 := uint32(h.CPU.ReadReg(rs1(insn)))
	r2 := uint32(h.CPU.ReadReg(rs2(insn)))
	f7 := funct7(insn)

	if f7 == 0b0000001 {
		h.execOp32M(insn, r1, r2)
		return
	}

	var val int32
	switch funct3(insn) {
	case 0b000: // ADDW/SUBW
		if f7 == 0b0100000 {
			val = int32(r1) - int32(r2)
		} else {
			val = int32(r1) + int32(r2)
		}
	case 0b001: // SLLW
		val = int32(r1 << (r2 & 0x1f))
	case 0b101: // SRLW/SRAW
		if f7 == 0b0100000 {
			val = int32(r1) >> (r2 & 0x1f)
		} else {
			val = int32(r1 >> (r2 & 0x1f))
		}
	}
	h.CPU.WriteReg(rd(insn), uint64(val))
}

func (h *Hart) execOp32M(insn uint32, r1, r2 uint32) {
	var val int32
	switch funct3(insn) {
	case 0b000: // MULW
		val = int32(r1) * int32(r2)
	case 0b100: // DIVW
		switch {
		case r2 == 0:
			val = -1
		case r1 == uint32(1)<<31 && r2 == ^uint32(0):
			val = int32(r1)
		default:
			val = int32(r1) / int32(r2)
		}
	case 0b101: // DIVUW
		if r2 == 0 {
			val = -1
		} else {
			val = int32(r1 / r2)
		}
	case 0b110: // REMW
		switch {
		case r2 == 0:
			val = int32(r1)
		case r1 == uint32(1)<<31 && r2 == ^uint32(0):
			val = 0
		default:
			val = int32(r1) % int32(r2)
		}
	case 0b111: // REMUW
		if r2 == 0 {
			val = int32(r1)
		} else {
			val = int32(r1 % r2)
		}
	}
	h.CPU.WriteReg(rd(insn), uint64(val))
}

func mulhu64(a, b uint64) uint64 {
	const mask32 = 0xffffffff
	a0, a1 := a&mask32, a>>32
	b0, b1 := b&mask32, b>>32
	p0 := a0 * b0
	p1 := a0 * b1
	p2 := a1 * b0
	p3 := a1 * b1
	carry := ((p0 >> 32) + (p1 & mask32) + (p2 & mask32)) >> 32
	return p3 + (p1 >> 32) + (p2 >> 32) + carry
}

func mulh64(a, b int64) int64 {
	neg := (a < 0) != (b < 0)
	ua, ub := uint64(a), uint64(b)
	if a < 0 {
		ua = uint64(-a)
	}
	if b < 0 {
		ub = uint64(-b)
	}
	hi := mulhu64(ua, ub)
	lo := ua * ub
	if neg {
		hi = ^hi
		if ^lo+1 == 0 {
			hi++
		}
	}
	return int64(hi)
}

func mulhsu64(a int64, b uint64) int64 {
	neg := a < 0
	ua := uint64(a)
	if a < 0 {
		ua = uint64(-a)
	}
	hi := mulhu64(ua, b)
	lo := ua * b
	if neg {
		hi = ^hi
		if ^lo+1 == 0 {
			hi++
		}
	}
	return int64(hi)
}
