package isa

// execAMO implements the A extension: LR/SC plus the AMO read-modify-write
// ops, each as a load followed by a store through the mmu package (each of
// the two accesses is translated on its own).
// There is only ever one hart, so the LR/SC reservation is a plain address
// comparison rather than a real cache-line monitor.
func (h *Hart) execAMO(insn uint32) *Trap {
	addr := h.CPU.ReadReg(rs1(insn))
	rs2Val := h.CPU.ReadReg(rs2(insn))
	f5 := funct7(insn) >> 2

	switch funct3(insn) {
	case 0b010:
		return h.execAMO32(insn, addr, uint32(rs2Val), f5)
	case 0b011:
		return h.execAMO64(insn, addr, rs2Val, f5)
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}
}

func (h *Hart) execAMO32(insn uint32, addr uint64, rs2Val uint32, f5 uint32) *Trap {
	rdReg := rd(insn)

	switch f5 {
	case 0b00010: // LR.W
		v, f := h.MMU.Load32(h.CPU, addr)
		if f != nil {
			return faultTrap(f)
		}
		h.CPU.WriteReg(rdReg, uint64(int32(v)))
		h.CPU.Reservation = addr
		h.CPU.ReservationValid = true
		return nil

	case 0b00011: // SC.W
		if !h.CPU.ReservationValid || h.CPU.Reservation != addr {
			h.CPU.WriteReg(rdReg, 1)
			return nil
		}
		if f := h.MMU.Store32(h.CPU, addr, rs2Val); f != nil {
			return faultTrap(f)
		}
		h.CPU.WriteReg(rdReg, 0)
		h.CPU.ReservationValid = false
		return nil

	default:
		old, f := h.MMU.Load32(h.CPU, addr)
		if f != nil {
			return faultTrap(f)
		}
		newVal := amo32(f5, old, rs2Val)
		if f := h.MMU.Store32(h.CPU, addr, newVal); f != nil {
			return faultTrap(f)
		}
		h.CPU.WriteReg(rdReg, uint64(int32(old)))
		return nil
	}
}

func amo32(f5 uint32, old, val uint32) uint32 {
	switch f5 {
	case 0b00001: // AMOSWAP.W
		return val
	case 0b00000: // AMOADD.W
		return old + val
	case 0b00100: // AMOXOR.W
		return old ^ val
	case 0b01100: // AMOAND.W
		return old & val
	case 0b01000: // AMOOR.W
		return old | val
	case 0b10000: // AMOMIN.W
		if int32(old) < int32(val) {
			return old
		}
		return val
	case 0b10100: // AMOMAX.W
		if int32(old) > int32(val) {
			return old
		}
		return val
	case 0b11000: // AMOMINU.W
		if old < val {
			return old
		}
		return val
	case 0b11100: // AMOMAXU.W
		if old > val {
			return old
		}
		return val
	default:
		return old
	}
}

func (h *Hart) execAMO64(insn uint32, addr uint64, rs2Val uint64, f5 uint32) *Trap {
	rdReg := rd(insn)

	switch f5 {
	case 0b00010: // LR.D
		v, f := h.MMU.Load64(h.CPU, addr)
		if f != nil {
			return faultTrap(f)
		}
		h.CPU.WriteReg(rdReg, v)
		h.CPU.Reservation = addr
		h.CPU.ReservationValid = true
		return nil

	case 0b00011: // SC.D
		if !h.CPU.ReservationValid || h.CPU.Reservation != addr {
			h.CPU.WriteReg(rdReg, 1)
			return nil
		}
		if f := h.MMU.Store64(h.CPU, addr, rs2Val); f != nil {
			return faultTrap(f)
		}
		h.CPU.WriteReg(rdReg, 0)
		h.CPU.ReservationValid = false
		return nil

	default:
		old, f := h.MMU.Load64(h.CPU, addr)
		if f != nil {
			return faultTrap(f)
		}
		newVal := amo64(f5, old, rs2Val)
		if f := h.MMU.Store64(h.CPU, addr, newVal); f != nil {
			return faultTrap(f)
		}
		h.CPU.WriteReg(rdReg, old)
		return nil
	}
}

func amo64(f5 uint32, old, val uint64) uint64 {
	switch f5 {
	case 0b00001:
		return val
	case 0b00000:
		return old + val
	case 0b00100:
		return old ^ val
	case 0b01100:
		return old & val
	case 0b01000:
		return old | val
	case 0b10000:
		if int64(old) < int64(val) {
			return old
		}
		return val
	case 0b10100:
		if int64(old) > int64(val) {
			return old
		}
		return val
	case 0b11000:
		if old < val {
			return old
		}
		return val
	case 0b11100:
		if old > val {
			return old
		}
		return val
	default:
		return old
	}
}
