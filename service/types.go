package service

import "github.com/rv32emu/rv32emu/interp"

// RegisterState represents a snapshot of the guest register file.
type RegisterState struct {
	Registers [32]uint32
	PC        uint32
	Cycles    uint64
}

// BreakpointInfo represents a breakpoint for UI display
type BreakpointInfo struct {
	Address   uint32 `json:"address"`
	Enabled   bool   `json:"enabled"`
	Condition string `json:"condition"` // Expression that must evaluate to true
}

// WatchpointInfo represents a watchpoint for UI display
type WatchpointInfo struct {
	ID      int    `json:"id"`
	Address uint32 `json:"address"`
	Type    string `json:"type"` // "read", "write", "readwrite"
	Enabled bool   `json:"enabled"`
}

// MemoryRegion represents a contiguous memory region
type MemoryRegion struct {
	Address uint32
	Data    []byte
	Size    uint32
}

// ExecutionState represents the current state of execution
type ExecutionState string

const (
	StateRunning    ExecutionState = "running"
	StateHalted     ExecutionState = "halted"
	StateBreakpoint ExecutionState = "breakpoint"
	StateError      ExecutionState = "error"
)

// InterpStateToExecution converts interp.State to service.ExecutionState
func InterpStateToExecution(state interp.State) ExecutionState {
	switch state {
	case interp.StateRunning:
		return StateRunning
	case interp.StateHalted:
		return StateHalted
	case interp.StateBreakpoint:
		return StateBreakpoint
	case interp.StateError:
		return StateError
	default:
		return StateHalted
	}
}

// DisassemblyLine represents a single disassembled instruction. Mnemonic
// carries the source line an address maps to when one is known (no RV32I
// disassembler exists here, so this is the only instruction text
// available); it is empty when nothing maps to the address.
type DisassemblyLine struct {
	Address  uint32 `json:"address"`
	Opcode   uint32 `json:"opcode"`
	Mnemonic string `json:"mnemonic"`
	Symbol   string `json:"symbol"`
}

// StackEntry represents a single stack location
type StackEntry struct {
	Address uint32 `json:"address"`
	Value   uint32 `json:"value"`
	Symbol  string `json:"symbol"` // If value points to a symbol
}

// SourceMapEntry maps an address to a source-view line. LoadELF builds one
// entry per ELF symbol, with Line set to the symbol name and a colon; no
// line table is read, so LineNumber stays zero.
type SourceMapEntry struct {
	Address    uint32
	LineNumber int
	Line       string
}
