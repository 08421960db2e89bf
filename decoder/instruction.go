package decoder

// Format identifies one of RV32I's six instruction encodings.
type Format int

const (
	FormatR Format = iota
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatS:
		return "S"
	case FormatB:
		return "B"
	case FormatU:
		return "U"
	case FormatJ:
		return "J"
	default:
		return "?"
	}
}

// Opcode values recognized by the RV32I base set (bits [6:0] of the word).
const (
	OpcodeR      = 0x33 // register-register ALU
	OpcodeI      = 0x13 // register-immediate ALU
	OpcodeLoad   = 0x03 // loads
	OpcodeJALR   = 0x67
	OpcodeSystem = 0x73 // ECALL / EBREAK
	OpcodeS      = 0x23 // stores
	OpcodeB      = 0x63 // branches
	OpcodeLUI    = 0x37
	OpcodeAUIPC  = 0x17
	OpcodeJAL    = 0x6F
)

// Instruction is an inert, fully-decoded RV32I instruction. Fields unused by
// a given format are left zero and must never be inspected by the
// interpreter's dispatch on Format.
type Instruction struct {
	Raw    uint32
	Format Format
	Opcode uint32

	Rd, Rs1, Rs2 int
	Funct3       uint32
	Funct7       uint32

	// Imm is the fully sign-extended immediate for I/S/B/U/J formats (zero
	// for R-type).
	Imm int32
}
