// Package decoder turns a raw 32-bit RV32I instruction word into a uniform
// decoded form. Decode is pure and total over the recognized opcode set;
// every other concern (execution, side effects) lives one layer up in the
// interp package.
package decoder

// formatFor maps an opcode byte to its encoding format. Any opcode absent
// from this table is rejected by Decode.
var formatFor = map[uint32]Format{
	OpcodeR:      FormatR,
	OpcodeI:      FormatI,
	OpcodeLoad:   FormatI,
	OpcodeJALR:   FormatI,
	OpcodeSystem: FormatI,
	OpcodeS:      FormatS,
	OpcodeB:      FormatB,
	OpcodeLUI:    FormatU,
	OpcodeAUIPC:  FormatU,
	OpcodeJAL:    FormatJ,
}

// Decode parses raw into a Instruction, or returns an *UnknownOpcodeError if
// the opcode byte isn't one of the recognized RV32I opcodes. pc is carried
// through only to annotate the error.
func Decode(raw uint32, pc uint32) (Instruction, error) {
	opcode := raw & mask7Bit
	format, ok := formatFor[opcode]
	if !ok {
		return Instruction{}, &UnknownOpcodeError{PC: pc, Raw: raw, Opcode: opcode}
	}

	inst := Instruction{
		Raw:    raw,
		Format: format,
		Opcode: opcode,
		Rd:     int((raw >> 7) & mask5Bit),
		Funct3: (raw >> 12) & mask3Bit,
		Rs1:    int((raw >> 15) & mask5Bit),
		Rs2:    int((raw >> 20) & mask5Bit),
		Funct7: (raw >> 25) & mask7Bit,
	}

	switch format {
	case FormatI:
		inst.Imm = signExtend(raw>>20, 12)
	case FormatS:
		imm := ((raw >> 25) << 5) | ((raw >> 7) & 0x1F)
		inst.Imm = signExtend(imm, 12)
	case FormatB:
		imm := (((raw >> 31) & 1) << 12) |
			(((raw >> 7) & 1) << 11) |
			(((raw >> 25) & 0x3F) << 5) |
			(((raw >> 8) & 0xF) << 1)
		inst.Imm = signExtend(imm, 13)
	case FormatU:
		inst.Imm = int32(raw & 0xFFFFF000)
	case FormatJ:
		imm := (((raw >> 31) & 1) << 20) |
			(((raw >> 12) & 0xFF) << 12) |
			(((raw >> 20) & 1) << 11) |
			(((raw >> 21) & 0x3FF) << 1)
		inst.Imm = signExtend(imm, 21)
	case FormatR:
		// imm left at zero
	}

	return inst, nil
}

// signExtend treats value's low `bits` bits as a signed integer and widens
// it to a full int32 by replicating the sign bit upward.
func signExtend(value uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(value<<shift) >> shift
}

const (
	mask3Bit = 0x7
	mask5Bit = 0x1F
	mask7Bit = 0x7F
)
