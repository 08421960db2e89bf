package jit

import (
	"fmt"

	"github.com/rv32emu/rv32emu/arm64asm"
	"github.com/rv32emu/rv32emu/codebuf"
	"github.com/rv32emu/rv32emu/decoder"
)

// scratch is a host register outside the x0-x7 guest bank (W9-W16), used
// to materialize immediates before feeding them to the three-register ALU
// instructions.
const scratch = arm64asm.W17

// emitPrologue loads guest registers x0-x7 from the register file (whose
// base address arrives in X0, the calling convention's sole argument) into
// their fixed host registers W9-W16.
func emitPrologue(buf *codebuf.Buffer) error {
	for i := 0; i < maxGuestRegs; i++ {
		if err := buf.EmitU32(arm64asm.LDR(hostReg(i), arm64asm.W0, uint16(i))); err != nil {
			return err
		}
	}
	return nil
}

// emitEpilogue stores the host register bank back to the register file and
// returns to the caller.
func emitEpilogue(buf *codebuf.Buffer) error {
	for i := 0; i < maxGuestRegs; i++ {
		if err := buf.EmitU32(arm64asm.STR(hostReg(i), arm64asm.W0, uint16(i))); err != nil {
			return err
		}
	}
	return buf.EmitU32(arm64asm.RET(arm64asm.LR))
}

// emitInstruction translates one supported RV32I ALU instruction into its
// ARM64 equivalent(s).
func emitInstruction(buf *codebuf.Buffer, inst decoder.Instruction) error {
	// A write to x0 is discarded, so nothing is emitted for it; this keeps
	// W9 holding zero for later instructions in the block.
	if inst.Rd == 0 {
		return nil
	}
	rd := hostReg(inst.Rd)

	switch inst.Opcode {
	case decoder.OpcodeR:
		rn := hostReg(inst.Rs1)
		rm := hostReg(inst.Rs2)
		return emitALU(buf, inst.Funct3, inst.Funct7, rd, rn, rm)

	case decoder.OpcodeI:
		rn := hostReg(inst.Rs1)
		for _, w := range arm64asm.MOVImm32(scratch, uint32(inst.Imm)) {
			if err := buf.EmitU32(w); err != nil {
				return err
			}
		}
		return emitALU(buf, inst.Funct3, 0, rd, rn, scratch)

	default:
		return fmt.Errorf("jit: unreachable opcode 0x%02X reached emitInstruction", inst.Opcode)
	}
}

func emitALU(buf *codebuf.Buffer, funct3, funct7 uint32, rd, rn, rm arm64asm.Reg) error {
	if inst := inst(rd, rn, rm, funct3, funct7); inst != 0 {
		return buf.EmitU32(inst)
	}
	return fmt.Errorf("jit: unhandled funct3 0x%X/funct7 0x%X in emitALU", funct3, funct7)
}

// inst picks the ARM64 encoding for a supported funct3 (and, for ADD/SUB,
// funct7). emitInstruction never calls it with x0 as the destination.
func inst(rd, rn, rm arm64asm.Reg, funct3, funct7 uint32) uint32 {
	switch funct3 {
	case funct3ADD:
		if funct7 == 0x20 {
			return arm64asm.SUB(rd, rn, rm)
		}
		return arm64asm.ADD(rd, rn, rm)
	case funct3XOR:
		return arm64asm.EOR(rd, rn, rm)
	case funct3OR:
		return arm64asm.ORR(rd, rn, rm)
	case funct3AND:
		return arm64asm.AND(rd, rn, rm)
	default:
		return 0
	}
}
