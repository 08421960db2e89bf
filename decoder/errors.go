package decoder

import "fmt"

// UnknownOpcodeError is returned by Decode for any opcode byte outside the
// recognized RV32I set. It is a fatal error kind: the interpreter reports
// the offending PC and raw word and unwinds the current run.
type UnknownOpcodeError struct {
	PC     uint32
	Raw    uint32
	Opcode uint32
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode 0x%02X in instruction 0x%08X at pc=0x%08X", e.Opcode, e.Raw, e.PC)
}
