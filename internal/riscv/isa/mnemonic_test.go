package isa

import "testing"

func TestMnemonicDistinguishesOpAndMulDiv(t *testing.T) {
	add := uint32(0x0030_8133)   // add x2, x1, x3
	mul := uint32(0x0230_8133)   // mul x2, x1, x3 (funct7=0000001)
	if got := Mnemonic(add); got != "op" {
		t.Errorf("Mnemonic(add) = %q, want op", got)
	}
	if got := Mnemonic(mul); got != "mul-div" {
		t.Errorf("Mnemonic(mul) = %q, want mul-div", got)
	}
}

func TestOperandsFormatsByInstructionFamily(t *testing.T) {
	addi := uint32(0x0010_0293) // addi x5, x0, 1
	if got, want := Operands(addi), "rd=x5 rs1=x0 imm=1"; got != want {
		t.Errorf("Operands(addi) = %q, want %q", got, want)
	}

	add := uint32(0x0030_8133) // add x2, x1, x3
	if got, want := Operands(add), "rd=x2 rs1=x1 rs2=x3"; got != want {
		t.Errorf("Operands(add) = %q, want %q", got, want)
	}
}
