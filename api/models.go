package api

import (
	"time"

	"github.com/rv32emu/rv32emu/service"
	"github.com/rv32emu/rv32emu/vm"
)

// SessionCreateRequest represents a request to create a new session
type SessionCreateRequest struct {
	MemorySize uint32 `json:"memorySize,omitempty"` // Accepted but ignored: sessions always use vm.DefaultMemorySize
}

// SessionCreateResponse represents the response from creating a session
type SessionCreateResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionStatusResponse represents the current status of a session
type SessionStatusResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	PC        uint32 `json:"pc"`
	Cycles    uint64 `json:"cycles"`
	Error     string `json:"error,omitempty"`
}

// LoadProgramRequest represents a request to load an ELF image. ELF is
// base64-encoded JSON bytes carrying the full file, not assembly source:
// there is no in-process assembler in this project, only an ELF loader.
type LoadProgramRequest struct {
	ELF []byte `json:"elf"`
}

// LoadProgramResponse represents the response from loading a program
type LoadProgramResponse struct {
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	EntryPoint uint32            `json:"entryPoint"`
	Symbols    map[string]uint32 `json:"symbols,omitempty"`
}

// RegistersResponse represents the current register state: x0-x31 plus PC.
// RV32I has no condition-code register, so there is no CPSR equivalent.
type RegistersResponse struct {
	X      [32]uint32 `json:"x"`
	PC     uint32     `json:"pc"`
	Cycles uint64     `json:"cycles"`
}

// MemoryRequest represents a request for memory data
type MemoryRequest struct {
	Address uint32 `json:"address"`
	Length  uint32 `json:"length"`
}

// MemoryResponse represents memory data
type MemoryResponse struct {
	Address uint32 `json:"address"`
	Data    []byte `json:"data"`
	Length  uint32 `json:"length"`
}

// DisassemblyRequest represents a request for disassembly
type DisassemblyRequest struct {
	Address uint32 `json:"address"`
	Count   uint32 `json:"count"`
}

// DisassemblyResponse represents disassembled instructions
type DisassemblyResponse struct {
	Instructions []InstructionInfo `json:"instructions"`
}

// InstructionInfo represents a disassembled instruction
type InstructionInfo struct {
	Address     uint32 `json:"address"`
	MachineCode uint32 `json:"machineCode"`
	Disassembly string `json:"disassembly"`
	Symbol      string `json:"symbol,omitempty"`
}

// BreakpointRequest represents a request to add/remove a breakpoint
type BreakpointRequest struct {
	Address uint32 `json:"address"`
}

// BreakpointsResponse represents a list of breakpoints
type BreakpointsResponse struct {
	Breakpoints []uint32 `json:"breakpoints"`
}

// WatchpointRequest represents a request to add a watchpoint
type WatchpointRequest struct {
	Address uint32 `json:"address"`
	Type    string `json:"type"` // "read", "write", or "readwrite"
}

// WatchpointResponse represents a single watchpoint
type WatchpointResponse struct {
	ID      int    `json:"id"`
	Address uint32 `json:"address"`
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// WatchpointsResponse represents a list of watchpoints
type WatchpointsResponse struct {
	Watchpoints []WatchpointResponse `json:"watchpoints"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse represents a simple success response
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Event represents a WebSocket event
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// StateEvent represents a state change event
type StateEvent struct {
	State     string     `json:"state"`
	PC        uint32     `json:"pc"`
	Registers [32]uint32 `json:"registers"`
	Cycles    uint64     `json:"cycles"`
}

// OutputEvent represents console output
type OutputEvent struct {
	Stream  string `json:"stream"`  // "stdout" or "stderr"
	Content string `json:"content"` // Output content
}

// ExecutionEvent represents execution events like breakpoints
type ExecutionEvent struct {
	Event   string `json:"event"` // "breakpoint_hit", "error", "halted"
	Address uint32 `json:"address,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Message string `json:"message,omitempty"`
}

// TraceEntryInfo represents a single execution trace entry for API
// transport. RV32I has no condition-code register, so unlike a CPSR-based
// architecture's trace there are no flag bits carried alongside the
// instruction.
type TraceEntryInfo struct {
	Sequence        uint64            `json:"sequence"`
	Address         uint32            `json:"address"`
	Opcode          uint32            `json:"opcode"`
	Disassembly     string            `json:"disassembly"`
	RegisterChanges map[string]uint32 `json:"registerChanges,omitempty"`
}

// TraceDataResponse represents the collected execution trace
type TraceDataResponse struct {
	Entries []TraceEntryInfo `json:"entries"`
}

// StatisticsResponse represents performance statistics
type StatisticsResponse struct {
	TotalInstructions  uint64             `json:"totalInstructions"`
	InstructionsByType map[string]uint64  `json:"instructionsByType,omitempty"`
	MemoryReads        uint64             `json:"memoryReads"`
	MemoryWrites       uint64             `json:"memoryWrites"`
	BranchesTaken      uint64             `json:"branchesTaken"`
	BranchesNotTaken   uint64             `json:"branchesNotTaken"`
	ElapsedNanoseconds int64              `json:"elapsedNanoseconds"`
	InstructionsPerSec float64            `json:"instructionsPerSecond"`
}

// ExampleInfo describes a bundled example ELF binary
type ExampleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ExamplesResponse lists the bundled example binaries
type ExamplesResponse struct {
	Examples []ExampleInfo `json:"examples"`
}

// ExampleContentResponse returns a bundled example's raw ELF bytes
type ExampleContentResponse struct {
	Name string `json:"name"`
	ELF  []byte `json:"elf"`
}

// ExecutionConfig controls run-loop behavior
type ExecutionConfig struct {
	StepsBeforeYield int `json:"stepsBeforeYield"`
}

// DisplayConfig controls how much data debugger queries return by default
type DisplayConfig struct {
	DisassemblyLines int `json:"disassemblyLines"`
	StackEntries     int `json:"stackEntries"`
}

// TraceConfig controls execution trace collection
type TraceConfig struct {
	Enabled bool `json:"enabled"`
}

// StatisticsConfig controls performance statistics collection
type StatisticsConfig struct {
	Enabled bool `json:"enabled"`
}

// DebuggerConfig groups debugger-facing configuration
type DebuggerConfig struct {
	Execution  ExecutionConfig  `json:"execution"`
	Display    DisplayConfig    `json:"display"`
	Trace      TraceConfig      `json:"trace"`
	Statistics StatisticsConfig `json:"statistics"`
}

// ConfigResponse represents the server's effective configuration
type ConfigResponse struct {
	Debugger DebuggerConfig `json:"debugger"`
}

// ToRegisterResponse converts service.RegisterState to API response
func ToRegisterResponse(regs *service.RegisterState) *RegistersResponse {
	return &RegistersResponse{
		X:      regs.Registers,
		PC:     regs.PC,
		Cycles: regs.Cycles,
	}
}

// ToInstructionInfo converts service.DisassemblyLine to API response
func ToInstructionInfo(line *service.DisassemblyLine) InstructionInfo {
	return InstructionInfo{
		Address:     line.Address,
		MachineCode: line.Opcode,
		Disassembly: line.Mnemonic,
		Symbol:      line.Symbol,
	}
}

// ToTraceEntryInfo converts a vm.TraceEntry to its API representation
func ToTraceEntryInfo(entry vm.TraceEntry) TraceEntryInfo {
	return TraceEntryInfo{
		Sequence:        entry.Sequence,
		Address:         entry.Address,
		Opcode:          entry.Opcode,
		Disassembly:     entry.Disassembly,
		RegisterChanges: entry.RegisterChanges,
	}
}
