package interp

import (
	"fmt"

	"github.com/rv32emu/rv32emu/decoder"
)

const (
	funct3BEQ  = 0x0
	funct3BNE  = 0x1
	funct3BLT  = 0x4
	funct3BGE  = 0x5
	funct3BLTU = 0x6
	funct3BGEU = 0x7
)

// executeBranch evaluates the condition and either jumps to pc+imm or
// falls through to pc+4.
func (ip *Interpreter) executeBranch(inst decoder.Instruction) error {
	a := ip.Regs.Get(inst.Rs1)
	b := ip.Regs.Get(inst.Rs2)

	var taken bool
	switch inst.Funct3 {
	case funct3BEQ:
		taken = a == b
	case funct3BNE:
		taken = a != b
	case funct3BLT:
		taken = int32(a) < int32(b)
	case funct3BGE:
		taken = int32(a) >= int32(b)
	case funct3BLTU:
		taken = a < b
	case funct3BGEU:
		taken = a >= b
	default:
		return fmt.Errorf("unhandled branch funct3 0x%X", inst.Funct3)
	}

	if ip.Stats != nil {
		ip.Stats.RecordBranch(taken)
	}

	if taken {
		ip.Regs.PC += uint32(inst.Imm)
	} else {
		ip.Regs.PC += 4
	}
	return nil
}

// executeJAL performs an unconditional jump-and-link: rd <- pc+4, pc <-
// pc+imm.
func (ip *Interpreter) executeJAL(inst decoder.Instruction) error {
	link := ip.Regs.PC + 4
	ip.Regs.PC += uint32(inst.Imm)
	ip.Regs.Set(inst.Rd, link)
	return nil
}

// executeJALR performs an indirect jump-and-link: rd <- pc+4, pc <-
// (rs1+imm) with bit 0 cleared.
func (ip *Interpreter) executeJALR(inst decoder.Instruction) error {
	link := ip.Regs.PC + 4
	target := (ip.Regs.Get(inst.Rs1) + uint32(inst.Imm)) &^ 1
	ip.Regs.PC = target
	ip.Regs.Set(inst.Rd, link)
	return nil
}
