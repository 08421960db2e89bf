package interp

import (
	"fmt"

	"github.com/rv32emu/rv32emu/decoder"
)

const (
	funct3LB  = 0x0
	funct3LH  = 0x1
	funct3LW  = 0x2
	funct3LBU = 0x4
	funct3LHU = 0x5

	funct3SB = 0x0
	funct3SH = 0x1
	funct3SW = 0x2
)

// executeLoad dispatches LB/LH/LW/LBU/LHU.
func (ip *Interpreter) executeLoad(inst decoder.Instruction) error {
	pc := ip.Regs.PC
	addr := ip.Regs.Get(inst.Rs1) + uint32(inst.Imm)

	var value uint32
	switch inst.Funct3 {
	case funct3LB:
		b, err := ip.Mem.ReadByte(addr, pc)
		if err != nil {
			return err
		}
		value = uint32(int32(int8(b)))
	case funct3LBU:
		b, err := ip.Mem.ReadByte(addr, pc)
		if err != nil {
			return err
		}
		value = uint32(b)
	case funct3LH:
		h, err := ip.Mem.ReadHalfword(addr, pc)
		if err != nil {
			return err
		}
		value = uint32(int32(int16(h)))
	case funct3LHU:
		h, err := ip.Mem.ReadHalfword(addr, pc)
		if err != nil {
			return err
		}
		value = uint32(h)
	case funct3LW:
		w, err := ip.Mem.ReadWord(addr, pc)
		if err != nil {
			return err
		}
		value = w
	default:
		return fmt.Errorf("unhandled load funct3 0x%X", inst.Funct3)
	}

	if ip.Stats != nil {
		ip.Stats.RecordMemoryRead(uint64(loadSize(inst.Funct3)))
	}
	if ip.MemoryTrace != nil && ip.MemoryTrace.Enabled {
		ip.MemoryTrace.RecordRead(ip.Instructions, pc, addr, value, loadSizeName(inst.Funct3))
	}

	ip.Regs.Set(inst.Rd, value)
	ip.Regs.PC += 4
	return nil
}

// executeStore dispatches SB/SH/SW.
func (ip *Interpreter) executeStore(inst decoder.Instruction) error {
	pc := ip.Regs.PC
	addr := ip.Regs.Get(inst.Rs1) + uint32(inst.Imm)
	value := ip.Regs.Get(inst.Rs2)

	var err error
	switch inst.Funct3 {
	case funct3SB:
		err = ip.Mem.WriteByte(addr, byte(value), pc)
	case funct3SH:
		err = ip.Mem.WriteHalfword(addr, uint16(value), pc)
	case funct3SW:
		err = ip.Mem.WriteWord(addr, value, pc)
	default:
		return fmt.Errorf("unhandled store funct3 0x%X", inst.Funct3)
	}
	if err != nil {
		return err
	}

	if ip.Stats != nil {
		ip.Stats.RecordMemoryWrite(uint64(storeSize(inst.Funct3)))
	}
	if ip.MemoryTrace != nil && ip.MemoryTrace.Enabled {
		ip.MemoryTrace.RecordWrite(ip.Instructions, pc, addr, value, storeSizeName(inst.Funct3))
	}

	ip.Regs.PC += 4
	return nil
}

func loadSize(funct3 uint32) int {
	switch funct3 {
	case funct3LB, funct3LBU:
		return 1
	case funct3LH, funct3LHU:
		return 2
	default:
		return 4
	}
}

func loadSizeName(funct3 uint32) string {
	switch funct3 {
	case funct3LB, funct3LBU:
		return "BYTE"
	case funct3LH, funct3LHU:
		return "HALF"
	default:
		return "WORD"
	}
}

func storeSize(funct3 uint32) int {
	switch funct3 {
	case funct3SB:
		return 1
	case funct3SH:
		return 2
	default:
		return 4
	}
}

func storeSizeName(funct3 uint32) string {
	switch funct3 {
	case funct3SB:
		return "BYTE"
	case funct3SH:
		return "HALF"
	default:
		return "WORD"
	}
}
