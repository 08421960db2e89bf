package interp

import (
	"fmt"

	"github.com/rv32emu/rv32emu/decoder"
)

// execute dispatches a decoded instruction to its semantic implementation
// and advances PC, keyed on RV32I's (opcode, funct3, funct7) triple.
func (ip *Interpreter) execute(inst decoder.Instruction) error {
	switch inst.Opcode {
	case decoder.OpcodeR:
		return ip.executeRType(inst)
	case decoder.OpcodeI:
		return ip.executeIType(inst)
	case decoder.OpcodeLoad:
		return ip.executeLoad(inst)
	case decoder.OpcodeS:
		return ip.executeStore(inst)
	case decoder.OpcodeB:
		return ip.executeBranch(inst)
	case decoder.OpcodeLUI:
		ip.Regs.Set(inst.Rd, uint32(inst.Imm))
		ip.Regs.PC += 4
		return nil
	case decoder.OpcodeAUIPC:
		ip.Regs.Set(inst.Rd, ip.Regs.PC+uint32(inst.Imm))
		ip.Regs.PC += 4
		return nil
	case decoder.OpcodeJAL:
		return ip.executeJAL(inst)
	case decoder.OpcodeJALR:
		return ip.executeJALR(inst)
	case decoder.OpcodeSystem:
		return ip.executeSystem(inst)
	default:
		return fmt.Errorf("unhandled opcode 0x%02X", inst.Opcode)
	}
}
