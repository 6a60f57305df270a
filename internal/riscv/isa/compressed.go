package isa

// expandCompressed rewrites a 16-bit C-extension instruction into its
// equivalent 32-bit encoding, so the rest of the decoder never needs a
// second, narrower dispatch table. Grounded on the same three-quadrant
// split every RISC-V compressed-instruction reference uses.
func (h *Hart) expandCompressed(insn uint16) (uint32, *Trap) {
	switch insn & 0x3 {
	case 0b00:
		return h.expandQ0(insn)
	case 0b01:
		return h.expandQ1(insn)
	case 0b10:
		return h.expandQ2(insn)
	default:
		return 0, trap(CauseIllegalInsn, uint64(insn))
	}
}

func cFunct3(insn uint16) uint16  { return (insn >> 13) & 0x7 }
func cRdp(insn uint16) uint32     { return uint32((insn>>2)&0x7) + 8 }
func cRs1p(insn uint16) uint32    { return uint32((insn>>7)&0x7) + 8 }
func cRs2p(insn uint16) uint32    { return uint32((insn>>2)&0x7) + 8 }
func cRd(insn uint16) uint32      { return uint32((insn >> 7) & 0x1f) }
func cRs1(insn uint16) uint32     { return uint32((insn >> 7) & 0x1f) }
func cRs2(insn uint16) uint32     { return uint32((insn >> 2) & 0x1f) }

func (h *Hart) expandQ0(insn uint16) (uint32, *Trap) {
	switch cFunct3(insn) {
	case 0b000: // C.ADDI4SPN
		imm := ((uint32(insn) >> 6) & 0x1) << 2
		imm |= ((uint32(insn) >> 5) & 0x1) << 3
		imm |= ((uint32(insn) >> 11) & 0x3) << 4
		imm |= ((uint32(insn) >> 7) & 0xf) << 6
		if imm == 0 {
			return 0, trap(CauseIllegalInsn, uint64(insn))
		}
		return (imm << 20) | (2 << 15) | (cRdp(insn) << 7) | opOpImm, nil

	case 0b011: // C.LD (RV64)
		imm := ((uint32(insn) >> 10) & 0x7) << 3
		imm |= ((uint32(insn) >> 5) & 0x3) << 6
		return (imm << 20) | (cRs1p(insn) << 15) | (0b011 << 12) | (cRdp(insn) << 7) | opLoad, nil

	case 0b010: // C.LW
		imm := ((uint32(insn) >> 6) & 0x1) << 2
		imm |= ((uint32(insn) >> 10) & 0x7) << 3
		imm |= ((uint32(insn) >> 5) & 0x1) << 6
		return (imm << 20) | (cRs1p(insn) << 15) | (0b010 << 12) | (cRdp(insn) << 7) | opLoad, nil

	case 0b110: // C.SW
		imm := ((uint32(insn) >> 6) & 0x1) << 2
		imm |= ((uint32(insn) >> 10) & 0x7) << 3
		imm |= ((uint32(insn) >> 5) & 0x1) << 6
		immHi, immLo := (imm>>5)&0x7f, imm&0x1f
		return (immHi << 25) | (cRs2p(insn) << 20) | (cRs1p(insn) << 15) | (0b010 << 12) | (immLo << 7) | opStore, nil

	case 0b111: // C.SD (RV64)
		imm := ((uint32(insn) >> 10) & 0x7) << 3
		imm |= ((uint32(insn) >> 5) & 0x3) << 6
		immHi, immLo := (imm>>5)&0x7f, imm&0x1f
		return (immHi << 25) | (cRs2p(insn) << 20) | (cRs1p(insn) << 15) | (0b011 << 12) | (immLo << 7) | opStore, nil
	}
	return 0, trap(CauseIllegalInsn, uint64(insn))
}

func (h *Hart) expandQ1(insn uint16) (uint32, *Trap) {
	switch cFunct3(insn) {
	case 0b000: // C.NOP / C.ADDI
		rd := cRd(insn)
		imm := uint32(insn>>2) & 0x1f
		if (insn>>12)&1 != 0 {
			imm |= 0xffff_ffe0
		}
		if rd == 0 {
			return opOpImm, nil
		}
		return (imm << 20) | (rd << 15) | (rd << 7) | opOpImm, nil

	case 0b001: // C.ADDIW (RV64)
		rd := cRd(insn)
		if rd == 0 {
			return 0, trap(CauseIllegalInsn, uint64(insn))
		}
		imm := uint32(insn>>2) & 0x1f
		if (insn>>12)&1 != 0 {
			imm |= 0xffff_ffe0
		}
		return (imm << 20) | (rd << 15) | (rd << 7) | opOpImm32, nil

	case 0b010: // C.LI
		rd := cRd(insn)
		imm := uint32(insn>>2) & 0x1f
		if (insn>>12)&1 != 0 {
			imm |= 0xffff_ffe0
		}
		return (imm << 20) | (rd << 7) | opOpImm, nil

	case 0b011: // C.ADDI16SP / C.LUI
		rd := cRd(insn)
		if rd == 2 {
			imm := ((uint32(insn) >> 2) & 0x1) << 5
			imm |= ((uint32(insn) >> 3) & 0x3) << 7
			imm |= ((uint32(insn) >> 5) & 0x1) << 6
			imm |= ((uint32(insn) >> 6) & 0x1) << 4
			if (insn>>12)&1 != 0 {
				imm |= 0xffff_fc00
			}
			if imm == 0 {
				return 0, trap(CauseIllegalInsn, uint64(insn))
			}
			return (imm << 20) | (2 << 15) | (2 << 7) | opOpImm, nil
		}
		if rd == 0 {
			return 0, trap(CauseIllegalInsn, uint64(insn))
		}
		imm := (uint32(insn>>2) & 0x1f) << 12
		if (insn>>12)&1 != 0 {
			imm |= 0xfffe_0000
		}
		if imm == 0 {
			return 0, trap(CauseIllegalInsn, uint64(insn))
		}
		return (imm & 0xffff_f000) | (rd << 7) | opLui, nil

	case 0b100: // C.SRLI/C.SRAI/C.ANDI/C.SUB/C.XOR/C.OR/C.AND/C.SUBW/C.ADDW
		return h.expandQ1Alu(insn)

	case 0b101: // C.J
		imm := ((uint32(insn) >> 2) & 0x1) << 5
		imm |= ((uint32(insn) >> 3) & 0x7) << 1
		imm |= ((uint32(insn) >> 6) & 0x1) << 7
		imm |= ((uint32(insn) >> 7) & 0x1) << 6
		imm |= ((uint32(insn) >> 8) & 0x1) << 10
		imm |= ((uint32(insn) >> 9) & 0x3) << 8
		imm |= ((uint32(insn) >> 11) & 0x1) << 4
		if (insn>>12)&1 != 0 {
			imm |= 0xffff_f800
		}
		jimm := ((imm >> 12) & 0xff) << 12
		jimm |= ((imm >> 11) & 0x1) << 20
		jimm |= ((imm >> 1) & 0x3ff) << 21
		jimm |= ((imm >> 11) & 0x1) << 31
		return (jimm & 0xffff_f000) | opJal, nil

	case 0b110, 0b111: // C.BEQZ / C.BNEZ
		rs1 := cRs1p(insn)
		imm := ((uint32(insn) >> 2) & 0x1) << 5
		imm |= ((uint32(insn) >> 3) & 0x3) << 1
		imm |= ((uint32(insn) >> 5) & 0x3) << 6
		imm |= ((uint32(insn) >> 10) & 0x3) << 3
		if (insn>>12)&1 != 0 {
			imm |= 0xffff_ff00
		}
		bimm := ((imm >> 11) & 0x1) << 31
		bimm |= ((imm >> 5) & 0x3f) << 25
		bimm |= ((imm >> 1) & 0xf) << 8
		bimm |= ((imm >> 11) & 0x1) << 7
		f3 := uint32(0b000)
		if cFunct3(insn) == 0b111 {
			f3 = 0b001
		}
		return bimm | (rs1 << 15) | (f3 << 12) | opBranch, nil
	}
	return 0, trap(CauseIllegalInsn, uint64(insn))
}

func (h *Hart) expandQ1Alu(insn uint16) (uint32, *Trap) {
	rd := cRs1p(insn)
	switch (insn >> 10) & 0x3 {
	case 0b00: // C.SRLI
		sh := uint32(insn>>2) & 0x1f
		if (insn>>12)&1 != 0 {
			sh |= 0x20
		}
		return (sh << 20) | (rd << 15) | (0b101 << 12) | (rd << 7) | opOpImm, nil
	case 0b01: // C.SRAI
		sh := uint32(insn>>2) & 0x1f
		if (insn>>12)&1 != 0 {
			sh |= 0x20
		}
		return (uint32(0b0100000)<<25 | sh<<20) | (rd << 15) | (0b101 << 12) | (rd << 7) | opOpImm, nil
	case 0b10: // C.ANDI
		imm := uint32(insn>>2) & 0x1f
		if (insn>>12)&1 != 0 {
			imm |= 0xffff_ffe0
		}
		return (imm << 20) | (rd << 15) | (0b111 << 12) | (rd << 7) | opOpImm, nil
	case 0b11:
		rs2 := cRs2p(insn)
		wide := (insn>>12)&1 != 0
		switch (insn >> 5) & 0x3 {
		case 0b00: // C.SUB / C.SUBW
			op := uint32(opOp)
			if wide {
				op = opOp32
			}
			return (uint32(0b0100000) << 25) | (rs2 << 20) | (rd << 15) | (rd << 7) | op, nil
		case 0b01: // C.XOR / C.ADDW
			if wide {
				return (rs2 << 20) | (rd << 15) | (rd << 7) | opOp32, nil
			}
			return (rs2 << 20) | (rd << 15) | (0b100 << 12) | (rd << 7) | opOp, nil
		case 0b10: // C.OR
			return (rs2 << 20) | (rd << 15) | (0b110 << 12) | (rd << 7) | opOp, nil
		case 0b11: // C.AND
			return (rs2 << 20) | (rd << 15) | (0b111 << 12) | (rd << 7) | opOp, nil
		}
	}
	return 0, trap(CauseIllegalInsn, uint64(insn))
}

func (h *Hart) expandQ2(insn uint16) (uint32, *Trap) {
	switch cFunct3(insn) {
	case 0b000: // C.SLLI
		rd := cRd(insn)
		if rd == 0 {
			return 0, trap(CauseIllegalInsn, uint64(insn))
		}
		sh := uint32(insn>>2) & 0x1f
		if (insn>>12)&1 != 0 {
			sh |= 0x20
		}
		return (sh << 20) | (rd << 15) | (0b001 << 12) | (rd << 7) | opOpImm, nil

	case 0b011: // C.LDSP (RV64)
		rd := cRd(insn)
		if rd == 0 {
			return 0, trap(CauseIllegalInsn, uint64(insn))
		}
		imm := ((uint32(insn) >> 2) & 0x7) << 6
		imm |= ((uint32(insn) >> 5) & 0x3) << 3
		imm |= ((uint32(insn) >> 12) & 0x1) << 5
		return (imm << 20) | (2 << 15) | (0b011 << 12) | (rd << 7) | opLoad, nil

	case 0b010: // C.LWSP
		rd := cRd(insn)
		if rd == 0 {
			return 0, trap(CauseIllegalInsn, uint64(insn))
		}
		imm := ((uint32(insn) >> 2) & 0x3) << 6
		imm |= ((uint32(insn) >> 4) & 0x7) << 2
		imm |= ((uint32(insn) >> 12) & 0x1) << 5
		return (imm << 20) | (2 << 15) | (0b010 << 12) | (rd << 7) | opLoad, nil

	case 0b100: // C.JR / C.MV / C.EBREAK / C.JALR / C.ADD
		rs1, rs2 := cRs1(insn), cRs2(insn)
		if (insn>>12)&1 == 0 {
			if rs2 == 0 {
				if rs1 == 0 {
					return 0, trap(CauseIllegalInsn, uint64(insn))
				}
				return (rs1 << 15) | opJalr, nil
			}
			return (rs2 << 20) | (rs1 << 7) | opOp, nil
		}
		if rs2 == 0 {
			if rs1 == 0 {
				return 0x0010_0073, nil // C.EBREAK
			}
			return (rs1 << 15) | (1 << 7) | opJalr, nil
		}
		return (rs2 << 20) | (rs1 << 15) | (rs1 << 7) | opOp, nil

	case 0b110: // C.SWSP
		rs2 := cRs2(insn)
		imm := ((uint32(insn) >> 7) & 0x3) << 6
		imm |= ((uint32(insn) >> 9) & 0xf) << 2
		immHi, immLo := (imm>>5)&0x7f, imm&0x1f
		return (immHi << 25) | (rs2 << 20) | (2 << 15) | (0b010 << 12) | (immLo << 7) | opStore, nil

	case 0b111: // C.SDSP (RV64)
		rs2 := cRs2(insn)
		imm := ((uint32(insn) >> 7) & 0x7) << 6
		imm |= ((uint32(insn) >> 10) & 0x7) << 3
		immHi, immLo := (imm>>5)&0x7f, imm&0x1f
		return (immHi << 25) | (rs2 << 20) | (2 << 15) | (0b011 << 12) | (immLo << 7) | opStore, nil
	}
	return 0, trap(CauseIllegalInsn, uint64(insn))
}
