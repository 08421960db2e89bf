package service

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rv32emu/rv32emu/debugger"
	"github.com/rv32emu/rv32emu/interp"
	"github.com/rv32emu/rv32emu/loader"
	"github.com/rv32emu/rv32emu/vm"
)

const (
	maxDisassemblyCount = 1000   // Maximum number of instructions to disassemble in one request
	maxStackCount       = 1000   // Maximum number of stack entries to return in one request
	maxStackOffset      = 100000 // Maximum stack offset accepted, to prevent address wraparound
	stepsBeforeYield    = 1000   // Yield to other goroutines every N steps during a run
)

var serviceLog *log.Logger

func init() {
	if os.Getenv("RV32EMU_DEBUG") != "" {
		logPath := filepath.Join(os.TempDir(), "rv32emu-service-debug.log")
		f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) // #nosec G304 -- fixed filename in temp dir
		if err != nil {
			serviceLog = log.New(os.Stderr, "SERVICE: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		} else {
			serviceLog = log.New(f, "SERVICE: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		}
	} else {
		serviceLog = log.New(io.Discard, "", 0)
	}
}

// DebuggerService provides a thread-safe interface to debugger functionality
// shared by the fyne GUI and the HTTP API: one interpreter behind one lock
// discipline, driven by two frontends. The TUI drives *debugger.Debugger
// directly.
//
// Lock ordering: s.mu guards every field here, including access to the
// embedded *debugger.Debugger. When a method also reaches into the
// debugger's own internal locks (e.g. ShouldBreak), the order is always
// s.mu -> debugger's internal lock, never the reverse.
type DebuggerService struct {
	mu              sync.RWMutex
	machine         *interp.Interpreter
	debugger        *debugger.Debugger
	symbols         map[string]uint32
	sourceMap       []SourceMapEntry
	sourceMapByAddr map[uint32]string
	entryPoint      uint32
	stackTop        uint32
	loaded          bool
	outputWriter    *EventEmittingWriter
}

// NewDebuggerService creates a new debugger service wrapping machine.
func NewDebuggerService(machine *interp.Interpreter) *DebuggerService {
	return &DebuggerService{
		machine:         machine,
		debugger:        debugger.NewDebugger(machine),
		symbols:         make(map[string]uint32),
		sourceMapByAddr: make(map[uint32]string),
		stackTop:        vm.DefaultStackTop,
	}
}

// GetMachine returns the underlying interpreter.
func (s *DebuggerService) GetMachine() *interp.Interpreter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.machine
}

// SetOutputCallback registers a callback invoked with each chunk the guest
// program writes, so a caller (the API's websocket broadcaster, the GUI's
// console view) can observe output as it happens instead of polling
// GetOutput. Pass nil to stop forwarding without losing buffered output.
func (s *DebuggerService) SetOutputCallback(onWrite func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outputWriter == nil {
		s.outputWriter = NewEventEmittingWriter(&bytes.Buffer{}, onWrite)
		s.machine.Output = s.outputWriter
		return
	}
	s.outputWriter.onWrite = onWrite
}

// LoadELF loads a RV32I ELF image from r and resets execution to its entry
// point, replacing any previously loaded program.
func (s *DebuggerService) LoadELF(r io.ReaderAt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := loader.LoadELF(r, s.machine.Mem)
	if err != nil {
		return err
	}

	s.entryPoint = result.EntryPoint
	s.symbols = result.Symbols
	if s.symbols == nil {
		s.symbols = make(map[string]uint32)
	}

	// No DWARF line table is parsed, so each function symbol stands in for
	// "the line at this address" in the source/disassembly views.
	s.sourceMap = nil
	s.sourceMapByAddr = make(map[uint32]string)
	for name, addr := range s.symbols {
		line := fmt.Sprintf("%s:", name)
		s.sourceMapByAddr[addr] = line
		s.sourceMap = append(s.sourceMap, SourceMapEntry{Address: addr, Line: line})
	}

	s.debugger.LoadSymbols(s.symbols)
	s.debugger.LoadSourceMap(s.sourceMapByAddr)

	s.machine.Regs.Reset()
	loader.InitStack(s.machine.Regs, s.stackTop)
	s.machine.Regs.PC = s.entryPoint
	s.machine.Reset()
	s.machine.Regs.PC = s.entryPoint

	s.debugger.Running = false
	s.loaded = true

	return nil
}

// GetRegisterState returns current register state.
func (s *DebuggerService) GetRegisterState() RegisterState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return RegisterState{
		Registers: s.machine.Regs.X,
		PC:        s.machine.Regs.PC,
		Cycles:    s.machine.Instructions,
	}
}

// Step executes a single instruction.
func (s *DebuggerService) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Step()
}

// Continue marks the session as running; RunUntilHalt drives the loop.
func (s *DebuggerService) Continue() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.debugger.Running = true
	s.debugger.StepMode = debugger.StepNone

	return nil
}

// Pause halts a run in progress.
func (s *DebuggerService) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.Running = false
	s.machine.State = interp.StateHalted
}

// Reset performs a complete reset: clears the loaded program, its symbols
// and breakpoints, and zeroes registers and memory. Use ResetToEntryPoint
// to restart the current program in place.
func (s *DebuggerService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.machine.Mem.Reset()
	s.machine.Regs.Reset()
	s.machine.Reset()

	s.entryPoint = 0
	s.symbols = make(map[string]uint32)
	s.sourceMap = nil
	s.sourceMapByAddr = make(map[uint32]string)
	s.loaded = false

	s.debugger.Breakpoints.Clear()
	s.debugger.Running = false

	return nil
}

// ResetToEntryPoint resets the interpreter to the loaded program's entry
// point without clearing guest memory, symbols, or breakpoints.
func (s *DebuggerService) ResetToEntryPoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.machine.Regs.Reset()

	if s.loaded {
		loader.InitStack(s.machine.Regs, s.stackTop)
		s.machine.Regs.PC = s.entryPoint
	}

	s.machine.Reset()
	s.machine.Regs.PC = s.entryPoint
	s.debugger.Running = false

	return nil
}

// GetExecutionState returns current execution state.
func (s *DebuggerService) GetExecutionState() ExecutionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return InterpStateToExecution(s.machine.State)
}

// AddBreakpoint adds a breakpoint at the specified address.
func (s *DebuggerService) AddBreakpoint(address uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.Breakpoints.AddBreakpoint(address, false, "")
	return nil
}

// RemoveBreakpoint removes the breakpoint at address.
func (s *DebuggerService) RemoveBreakpoint(address uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugger.Breakpoints.DeleteBreakpointAt(address)
}

// GetBreakpoints returns all breakpoints.
func (s *DebuggerService) GetBreakpoints() []BreakpointInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bps := s.debugger.Breakpoints.GetAllBreakpoints()
	result := make([]BreakpointInfo, len(bps))
	for i, bp := range bps {
		result[i] = BreakpointInfo{
			Address: bp.Address,
			Enabled: bp.Enabled,
		}
	}
	return result
}

// ClearAllBreakpoints removes all breakpoints.
func (s *DebuggerService) ClearAllBreakpoints() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.Breakpoints.Clear()
}

// GetMemory returns memory contents for a region. Unreadable bytes (past
// the mapped region) read back as zero so a memory view can still render
// at segment boundaries instead of failing the whole request.
func (s *DebuggerService) GetMemory(address uint32, size uint32) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	serviceLog.Printf("GetMemory: address=0x%08X, size=%d", address, size)

	data := make([]byte, size)
	for i := uint32(0); i < size; i++ {
		b, err := s.machine.Mem.ReadByte(address+i, s.machine.Regs.PC)
		if err != nil {
			data[i] = 0
			continue
		}
		data[i] = b
	}
	return data, nil
}

// GetSourceLine returns the source/symbol line mapped to address.
func (s *DebuggerService) GetSourceLine(address uint32) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourceMapByAddr[address]
}

// GetSourceMap returns the full address-ordered source map.
func (s *DebuggerService) GetSourceMap() []SourceMapEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]SourceMapEntry, len(s.sourceMap))
	copy(result, s.sourceMap)
	// LoadELF fills sourceMap from a Go map, so order it here.
	sort.Slice(result, func(i, j int) bool { return result[i].Address < result[j].Address })
	return result
}

// GetSourceMapByAddr returns the address-to-line lookup.
func (s *DebuggerService) GetSourceMapByAddr() map[uint32]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[uint32]string, len(s.sourceMapByAddr))
	for addr, line := range s.sourceMapByAddr {
		result[addr] = line
	}
	return result
}

// GetSymbols returns all symbols.
func (s *DebuggerService) GetSymbols() map[string]uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make(map[string]uint32, len(s.symbols))
	for k, v := range s.symbols {
		symbols[k] = v
	}
	return symbols
}

// GetSymbolForAddress resolves an address to a symbol name, or "" if none.
func (s *DebuggerService) GetSymbolForAddress(addr uint32) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSymbolForAddressUnsafe(addr)
}

func (s *DebuggerService) getSymbolForAddressUnsafe(addr uint32) string {
	for name, symbolAddr := range s.symbols {
		if symbolAddr == addr {
			return name
		}
	}
	return ""
}

// RunUntilHalt drives execution to completion, breakpoint, or error. It
// returns immediately if the session isn't marked running, handling the
// race where Pause() lands between Continue() and the goroutine starting.
func (s *DebuggerService) RunUntilHalt() error {
	serviceLog.Println("RunUntilHalt() called")

	s.mu.Lock()
	if !s.debugger.Running {
		s.mu.Unlock()
		return nil
	}
	s.machine.State = interp.StateRunning
	s.mu.Unlock()

	stepCount := 0

	for {
		s.mu.Lock()
		if !s.debugger.Running || s.machine.State != interp.StateRunning {
			s.mu.Unlock()
			break
		}

		if shouldBreak, _ := s.debugger.ShouldBreak(); shouldBreak {
			s.debugger.Running = false
			s.machine.State = interp.StateBreakpoint
			s.mu.Unlock()
			break
		}

		err := s.machine.Step()
		halted := s.machine.State == interp.StateHalted
		s.mu.Unlock()

		if err != nil && !halted {
			s.mu.Lock()
			s.debugger.Running = false
			s.mu.Unlock()
			return err
		}

		if halted {
			s.mu.Lock()
			s.debugger.Running = false
			s.mu.Unlock()
			break
		}

		stepCount++
		if stepCount >= stepsBeforeYield {
			stepCount = 0
			time.Sleep(1 * time.Millisecond)
		}
	}

	serviceLog.Println("RunUntilHalt() completed")
	return nil
}

// IsRunning reports whether execution is in progress.
func (s *DebuggerService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.debugger.Running
}

// SetRunning sets the running flag synchronously, before an async caller
// launches a goroutine to drive RunUntilHalt.
func (s *DebuggerService) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.debugger.Running = running
	if running {
		s.machine.State = interp.StateRunning
	} else if s.machine.State == interp.StateRunning {
		s.machine.State = interp.StateHalted
	}
}

// GetExitCode returns the guest program's exit code.
func (s *DebuggerService) GetExitCode() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.machine.ExitCode
}

// GetOutput returns captured program output and clears the buffer.
func (s *DebuggerService) GetOutput() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outputWriter == nil {
		return ""
	}
	return s.outputWriter.GetBufferAndClear()
}

// GetDisassembly returns disassembly lines starting at startAddr. Returns
// an empty slice for invalid inputs; truncates early on a memory error.
//
// Parameters:
//   - startAddr: must be 4-byte aligned (RV32I instructions are 4 bytes)
//   - count: must be positive and <= maxDisassemblyCount
func (s *DebuggerService) GetDisassembly(startAddr uint32, count int) []DisassemblyLine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count <= 0 || count > maxDisassemblyCount {
		return []DisassemblyLine{}
	}
	if startAddr&0x3 != 0 {
		return []DisassemblyLine{}
	}

	lines := make([]DisassemblyLine, 0, count)
	addr := startAddr

	for i := 0; i < count; i++ {
		opcode, err := s.machine.Mem.ReadWord(addr, s.machine.Regs.PC)
		if err != nil {
			break
		}

		lines = append(lines, DisassemblyLine{
			Address:  addr,
			Opcode:   opcode,
			Mnemonic: s.sourceMapByAddr[addr],
			Symbol:   s.getSymbolForAddressUnsafe(addr),
		})
		addr += 4
	}

	return lines
}

// GetStack returns stack contents from SP+offset, with overflow-safe
// arithmetic so a malicious offset can't wrap an address around.
//
// Parameters:
//   - offset: stack offset in words (multiplied by 4 for byte offset),
//     bounded by [-maxStackOffset, maxStackOffset]
//   - count: number of stack entries to read, bounded by maxStackCount
func (s *DebuggerService) GetStack(offset int, count int) []StackEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count <= 0 || count > maxStackCount {
		return []StackEntry{}
	}
	if offset < -maxStackOffset || offset > maxStackOffset {
		return []StackEntry{}
	}

	sp := s.machine.Regs.Get(vm.RegSP)
	base := int64(sp) + int64(offset)*4
	if base < 0 || base > 0xFFFFFFFF {
		return []StackEntry{}
	}

	entries := make([]StackEntry, 0, count)
	for i := 0; i < count; i++ {
		next := base + int64(i)*4
		if next < 0 || next > 0xFFFFFFFF {
			break
		}
		addr := uint32(next)

		value, err := s.machine.Mem.ReadWord(addr, s.machine.Regs.PC)
		if err != nil {
			break
		}

		entries = append(entries, StackEntry{
			Address: addr,
			Value:   value,
			Symbol:  s.getSymbolForAddressUnsafe(value),
		})
	}

	return entries
}

// StepOver executes the current instruction, stepping over any call it
// makes, until control returns to the following instruction.
func (s *DebuggerService) StepOver() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return fmt.Errorf("no program loaded")
	}

	s.debugger.SetStepOver()
	s.debugger.Running = true

	for s.debugger.Running {
		if shouldBreak, _ := s.debugger.ShouldBreak(); shouldBreak {
			s.debugger.Running = false
			break
		}

		if err := s.machine.Step(); err != nil {
			s.debugger.Running = false
			return err
		}
	}

	return nil
}

// StepOut runs in the debugger's StepOut mode, which does not track the
// return address: it stops at a breakpoint or watchpoint, or returns the
// first Step error (including program exit).
func (s *DebuggerService) StepOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return fmt.Errorf("no program loaded")
	}

	s.debugger.SetStepOut()
	s.debugger.Running = true

	for s.debugger.Running {
		if shouldBreak, _ := s.debugger.ShouldBreak(); shouldBreak {
			s.debugger.Running = false
			break
		}

		if err := s.machine.Step(); err != nil {
			s.debugger.Running = false
			return err
		}
	}

	return nil
}

// AddWatchpoint adds a watchpoint of the given type ("read", "write", or
// "readwrite") at address.
func (s *DebuggerService) AddWatchpoint(address uint32, watchType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var wpType debugger.WatchType
	switch watchType {
	case "read":
		wpType = debugger.WatchRead
	case "write":
		wpType = debugger.WatchWrite
	case "readwrite":
		wpType = debugger.WatchReadWrite
	default:
		return fmt.Errorf("invalid watchpoint type: %s", watchType)
	}

	expression := fmt.Sprintf("[0x%08X]", address)
	s.debugger.Watchpoints.AddWatchpoint(wpType, expression, address, false, 0)

	return nil
}

// RemoveWatchpoint removes a watchpoint by ID.
func (s *DebuggerService) RemoveWatchpoint(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugger.Watchpoints.DeleteWatchpoint(id)
}

// GetWatchpoints returns all watchpoints.
func (s *DebuggerService) GetWatchpoints() []WatchpointInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wps := s.debugger.Watchpoints.GetAllWatchpoints()
	result := make([]WatchpointInfo, len(wps))
	for i, wp := range wps {
		var wpType string
		switch wp.Type {
		case debugger.WatchRead:
			wpType = "read"
		case debugger.WatchWrite:
			wpType = "write"
		case debugger.WatchReadWrite:
			wpType = "readwrite"
		}

		result[i] = WatchpointInfo{
			ID:      wp.ID,
			Address: wp.Address,
			Type:    wpType,
			Enabled: wp.Enabled,
		}
	}
	return result
}

// ExecuteCommand runs a debugger command and returns its textual output.
func (s *DebuggerService) ExecuteCommand(command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.debugger.ExecuteCommand(command)
	output := s.debugger.GetOutput()

	return output, err
}

// EvaluateExpression evaluates a watch/breakpoint-condition expression.
func (s *DebuggerService) EvaluateExpression(expr string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugger.Evaluator.EvaluateExpression(expr, s.machine, s.symbols)
}

// EnableExecutionTrace turns on execution tracing.
func (s *DebuggerService) EnableExecutionTrace() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.ExecutionTrace == nil {
		var buf bytes.Buffer
		s.machine.ExecutionTrace = vm.NewExecutionTrace(&buf)
		if len(s.symbols) > 0 {
			s.machine.ExecutionTrace.LoadSymbols(s.symbols)
		}
	}

	s.machine.ExecutionTrace.Enabled = true
	s.machine.ExecutionTrace.Start()
	return nil
}

// DisableExecutionTrace turns off execution tracing.
func (s *DebuggerService) DisableExecutionTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.ExecutionTrace != nil {
		s.machine.ExecutionTrace.Enabled = false
	}
}

// GetExecutionTraceData returns recorded execution trace entries.
func (s *DebuggerService) GetExecutionTraceData() ([]vm.TraceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.machine.ExecutionTrace == nil {
		return []vm.TraceEntry{}, nil
	}
	return s.machine.ExecutionTrace.GetEntries(), nil
}

// ClearExecutionTrace discards recorded trace entries.
func (s *DebuggerService) ClearExecutionTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.ExecutionTrace != nil {
		s.machine.ExecutionTrace.Clear()
	}
}

// EnableStatistics turns on performance statistics collection.
func (s *DebuggerService) EnableStatistics() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Stats == nil {
		s.machine.Stats = vm.NewPerformanceStatistics()
	}

	s.machine.Stats.Enabled = true
	s.machine.Stats.Start()
	return nil
}

// DisableStatistics turns off performance statistics collection.
func (s *DebuggerService) DisableStatistics() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Stats != nil {
		s.machine.Stats.Enabled = false
	}
}

// GetStatistics returns finalized performance statistics.
func (s *DebuggerService) GetStatistics() (*vm.PerformanceStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.machine.Stats == nil {
		return nil, fmt.Errorf("statistics not enabled")
	}

	s.machine.Stats.Finalize()
	return s.machine.Stats, nil
}
