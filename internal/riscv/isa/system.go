package isa

// execSystem handles ECALL/EBREAK/privileged returns and CSR access. A
// proxy-syscall simulator never actually delegates to a trap handler:
// ECALL is reported to the caller of Step as a *Trap carrying CauseECall
// so the proxy layer can service it and resume at PC+4, the way a real
// kernel's syscall return path works but without ever running guest trap
// vectors.
func (h *Hart) execSystem(insn uint32) *Trap {
	f3 := funct3(insn)
	if f3 == 0 {
		switch insn {
		case 0x0000_0073: // ECALL
			h.CPU.PC += 4
			return trap(CauseECall, 0)
		case 0x0010_0073: // EBREAK
			return trap(CauseBreakpoint, h.CPU.PC)
		case 0x1050_0073: // WFI
			return nil
		default:
			if insn>>25 == 0b0001001 {
				// SFENCE.VMA: conservative, flush the whole TLB regardless
				// of the rs1/rs2 operands naming a narrower scope.
				h.MMU.FlushTLB()
				return nil
			}
			return trap(CauseIllegalInsn, uint64(insn))
		}
	}

	csr := uint16(insn >> 20)
	rdReg := rd(insn)
	rs1Reg := rs1(insn)
	old := h.CPU.CSRRead(csr)

	var newVal uint64
	write := true
	switch f3 {
	case 0b001: // CSRRW
		newVal = h.CPU.ReadReg(rs1Reg)
	case 0b010: // CSRRS
		newVal = old | h.CPU.ReadReg(rs1Reg)
		write = rs1Reg != 0
	case 0b011: // CSRRC
		newVal = old &^ h.CPU.ReadReg(rs1Reg)
		write = rs1Reg != 0
	case 0b101: // CSRRWI
		newVal = uint64(rs1Reg)
	case 0b110: // CSRRSI
		newVal = old | uint64(rs1Reg)
		write = rs1Reg != 0
	case 0b111: // CSRRCI
		newVal = old &^ uint64(rs1Reg)
		write = rs1Reg != 0
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}

	if write {
		if !h.CPU.CSRWrite(csr, newVal) {
			return trap(CauseIllegalInsn, uint64(insn))
		}
	}
	h.CPU.WriteReg(rdReg, old)
	return nil
}
