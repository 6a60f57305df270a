package isa

import "fmt"

// Operands renders the registers and immediate an instruction's encoding
// names, for an operand log line (-o/--log-operands); it doesn't attempt
// mnemonic-specific field ordering the way a real disassembler would, just
// enough to see which registers and constants an instruction touched.
func Operands(insn uint32) string {
	switch opcode(insn) {
	case opLui, opAuipc:
		return fmt.Sprintf("rd=x%d imm=%d", rd(insn), immU(insn))
	case opJal:
		return fmt.Sprintf("rd=x%d imm=%d", rd(insn), immJ(insn))
	case opJalr, opLoad, opLoadFP, opOpImm, opOpImm32, opMiscMem, opSystem:
		return fmt.Sprintf("rd=x%d rs1=x%d imm=%d", rd(insn), rs1(insn), immI(insn))
	case opStore, opStoreFP:
		return fmt.Sprintf("rs1=x%d rs2=x%d imm=%d", rs1(insn), rs2(insn), immS(insn))
	case opBranch:
		return fmt.Sprintf("rs1=x%d rs2=x%d imm=%d", rs1(insn), rs2(insn), immB(insn))
	case opOp, opOp32, opOpFP, opAMO:
		return fmt.Sprintf("rd=x%d rs1=x%d rs2=x%d", rd(insn), rs1(insn), rs2(insn))
	default:
		return ""
	}
}

// Mnemonic returns a coarse opcode-family name for insn, good enough for
// an instruction-mix histogram or a trap/debugger log line; it does not
// attempt the full operand rendering a real disassembler would.
func Mnemonic(insn uint32) string {
	switch opcode(insn) {
	case opLoad:
		return "load"
	case opLoadFP:
		return "load-fp"
	case opMiscMem:
		return "misc-mem"
	case opOpImm:
		return "op-imm"
	case opAuipc:
		return "auipc"
	case opOpImm32:
		return "op-imm-32"
	case opStore:
		return "store"
	case opStoreFP:
		return "store-fp"
	case opAMO:
		return "amo"
	case opOp:
		if (insn>>25)&0x7f == 0b0000001 {
			return "mul-div"
		}
		return "op"
	case opLui:
		return "lui"
	case opOp32:
		return "op-32"
	case opOpFP:
		return "op-fp"
	case opBranch:
		return "branch"
	case opJalr:
		return "jalr"
	case opJal:
		return "jal"
	case opSystem:
		switch insn {
		case 0x0000_0073:
			return "ecall"
		case 0x0010_0073:
			return "ebreak"
		default:
			return "system"
		}
	default:
		return "unknown"
	}
}
