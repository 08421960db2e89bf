package interp

import (
	"fmt"

	"github.com/rv32emu/rv32emu/decoder"
)

// RV32I funct3 values shared by the R-type and I-type ALU encodings.
const (
	funct3ADD  = 0x0 // also SUB, distinguished by funct7
	funct3SLL  = 0x1
	funct3SLT  = 0x2
	funct3SLTU = 0x3
	funct3XOR  = 0x4
	funct3SRL  = 0x5 // also SRA, distinguished by funct7
	funct3OR   = 0x6
	funct3AND  = 0x7

	funct7Alt = 0x20 // marks SUB / SRA
)

// executeRType performs the register-register ALU operations: ADD, SUB,
// SLL, SLT, SLTU, XOR, SRL, SRA, OR, AND.
func (ip *Interpreter) executeRType(inst decoder.Instruction) error {
	a := ip.Regs.Get(inst.Rs1)
	b := ip.Regs.Get(inst.Rs2)
	shamt := b & 0x1F

	var result uint32
	switch inst.Funct3 {
	case funct3ADD:
		if inst.Funct7 == funct7Alt {
			result = a - b
		} else {
			result = a + b
		}
	case funct3SLL:
		result = a << shamt
	case funct3SLT:
		result = boolToWord(int32(a) < int32(b))
	case funct3SLTU:
		result = boolToWord(a < b)
	case funct3XOR:
		result = a ^ b
	case funct3SRL:
		if inst.Funct7 == funct7Alt {
			result = uint32(int32(a) >> shamt)
		} else {
			result = a >> shamt
		}
	case funct3OR:
		result = a | b
	case funct3AND:
		result = a & b
	default:
		return fmt.Errorf("unhandled R-type funct3 0x%X", inst.Funct3)
	}

	ip.Regs.Set(inst.Rd, result)
	ip.Regs.PC += 4
	return nil
}

// executeIType performs the register-immediate ALU operations: ADDI, SLTI,
// SLTIU, XORI, ORI, ANDI, SLLI, SRLI, SRAI.
func (ip *Interpreter) executeIType(inst decoder.Instruction) error {
	a := ip.Regs.Get(inst.Rs1)
	imm := inst.Imm
	shamt := uint32(imm) & 0x1F

	var result uint32
	switch inst.Funct3 {
	case funct3ADD:
		result = a + uint32(imm)
	case funct3SLT:
		result = boolToWord(int32(a) < imm)
	case funct3SLTU:
		result = boolToWord(a < uint32(imm))
	case funct3XOR:
		result = a ^ uint32(imm)
	case funct3OR:
		result = a | uint32(imm)
	case funct3AND:
		result = a & uint32(imm)
	case funct3SLL:
		result = a << shamt
	case funct3SRL:
		// bit 10 of the immediate (funct7's low bit in the I-type encoding)
		// distinguishes SRLI from SRAI.
		if inst.Imm&0x400 != 0 {
			result = uint32(int32(a) >> shamt)
		} else {
			result = a >> shamt
		}
	default:
		return fmt.Errorf("unhandled I-type funct3 0x%X", inst.Funct3)
	}

	ip.Regs.Set(inst.Rd, result)
	ip.Regs.PC += 4
	return nil
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
