package vm

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// TraceEntry represents a single execution trace entry.
type TraceEntry struct {
	Sequence        uint64            // Instruction sequence number
	Address         uint32            // Instruction address
	Opcode          uint32            // Instruction opcode
	Disassembly     string            // Disassembled instruction
	RegisterChanges map[string]uint32 // Register changes (name -> new value)
	Duration        time.Duration     // Execution time since trace start
}

// ExecutionTrace records a per-step log of executed instructions, mirroring
// the teacher's trace-on-Step idiom but keyed by guest register names
// (x0..x31, pc) instead of ARM's R0..R15/CPSR.
type ExecutionTrace struct {
	Enabled       bool
	Writer        io.Writer
	FilterRegs    map[string]bool // Registers to track (empty = all)
	IncludeTiming bool
	MaxEntries    int

	entries      []TraceEntry
	startTime    time.Time
	lastSnapshot map[string]uint32
}

// NewExecutionTrace creates a new execution trace writing to w.
func NewExecutionTrace(w io.Writer) *ExecutionTrace {
	return &ExecutionTrace{
		Enabled:       true,
		Writer:        w,
		FilterRegs:    make(map[string]bool),
		IncludeTiming: true,
		MaxEntries:    100000,
		entries:       make([]TraceEntry, 0, 1000),
		lastSnapshot:  make(map[string]uint32),
	}
}

// SetFilterRegisters restricts tracking to the named registers ("x1", "sp",
// "pc", ...); pass nil or empty to track everything.
func (t *ExecutionTrace) SetFilterRegisters(regs []string) {
	t.FilterRegs = make(map[string]bool)
	for _, reg := range regs {
		t.FilterRegs[strings.ToLower(reg)] = true
	}
}

// Start resets the trace and begins timing.
func (t *ExecutionTrace) Start() {
	t.startTime = time.Now()
	t.entries = t.entries[:0]
	t.lastSnapshot = make(map[string]uint32)
}

// RecordInstruction appends one trace entry for the instruction that just
// executed at pc, with opcode raw and a pre-rendered disassembly string.
func (t *ExecutionTrace) RecordInstruction(seq uint64, pc, opcode uint32, disasm string, regs *Registers) {
	if !t.Enabled {
		return
	}
	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		return
	}

	entry := TraceEntry{
		Sequence:        seq,
		Address:         pc,
		Opcode:          opcode,
		Disassembly:     disasm,
		RegisterChanges: make(map[string]uint32),
	}
	if t.IncludeTiming {
		entry.Duration = time.Since(t.startTime)
	}

	current := make(map[string]uint32, RegisterCount+1)
	for i := 0; i < RegisterCount; i++ {
		current["x"+strconv.Itoa(i)] = regs.Get(i)
	}
	current["pc"] = regs.PC

	for name, value := range current {
		if len(t.FilterRegs) > 0 && !t.FilterRegs[name] {
			continue
		}
		if old, ok := t.lastSnapshot[name]; !ok || old != value {
			entry.RegisterChanges[name] = value
			t.lastSnapshot[name] = value
		}
	}

	t.entries = append(t.entries, entry)
}

// Flush writes every buffered entry to the trace writer.
func (t *ExecutionTrace) Flush() error {
	if t.Writer == nil {
		return nil
	}
	for _, entry := range t.entries {
		if err := t.writeEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

func (t *ExecutionTrace) writeEntry(entry TraceEntry) error {
	line := fmt.Sprintf("[%06d] 0x%08X: %-30s", entry.Sequence, entry.Address, entry.Disassembly)

	if len(entry.RegisterChanges) > 0 {
		changes := make([]string, 0, len(entry.RegisterChanges))
		for name, value := range entry.RegisterChanges {
			changes = append(changes, fmt.Sprintf("%s=0x%08X", name, value))
		}
		line += " | " + strings.Join(changes, " ")
	} else {
		line += " | (no changes)"
	}

	if t.IncludeTiming {
		line += fmt.Sprintf(" | %v", entry.Duration)
	}
	line += "\n"

	_, err := t.Writer.Write([]byte(line))
	return err
}

// GetEntries returns every buffered trace entry.
func (t *ExecutionTrace) GetEntries() []TraceEntry {
	return t.entries
}

// Clear drops all buffered entries without resetting the start time.
func (t *ExecutionTrace) Clear() {
	t.entries = t.entries[:0]
	t.lastSnapshot = make(map[string]uint32)
}

// MemoryAccessEntry represents one traced memory access.
type MemoryAccessEntry struct {
	Sequence  uint64
	Address   uint32
	PC        uint32
	Type      string // "READ" or "WRITE"
	Size      string // "BYTE", "HALF", "WORD"
	Value     uint32
	Timestamp time.Duration
}

// MemoryTrace records loads and stores issued by the interpreter.
type MemoryTrace struct {
	Enabled    bool
	Writer     io.Writer
	MaxEntries int

	entries   []MemoryAccessEntry
	startTime time.Time
}

// NewMemoryTrace creates a new memory trace writing to w.
func NewMemoryTrace(w io.Writer) *MemoryTrace {
	return &MemoryTrace{
		Enabled:    true,
		Writer:     w,
		MaxEntries: 100000,
		entries:    make([]MemoryAccessEntry, 0, 1000),
	}
}

// Start resets the memory trace and begins timing.
func (t *MemoryTrace) Start() {
	t.startTime = time.Now()
	t.entries = t.entries[:0]
}

// RecordRead appends a traced load.
func (t *MemoryTrace) RecordRead(sequence uint64, pc, address, value uint32, size string) {
	if !t.Enabled || (t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries) {
		return
	}
	t.entries = append(t.entries, MemoryAccessEntry{sequence, address, pc, "READ", size, value, time.Since(t.startTime)})
}

// RecordWrite appends a traced store.
func (t *MemoryTrace) RecordWrite(sequence uint64, pc, address, value uint32, size string) {
	if !t.Enabled || (t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries) {
		return
	}
	t.entries = append(t.entries, MemoryAccessEntry{sequence, address, pc, "WRITE", size, value, time.Since(t.startTime)})
}

// Flush writes every buffered memory trace entry to the writer.
func (t *MemoryTrace) Flush() error {
	if t.Writer == nil {
		return nil
	}
	for _, entry := range t.entries {
		if err := t.writeEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

func (t *MemoryTrace) writeEntry(entry MemoryAccessEntry) error {
	arrow := "->"
	if entry.Type == "READ" {
		arrow = "<-"
	}
	line := fmt.Sprintf("[%06d] [%-5s] 0x%08X %s [0x%08X] = 0x%08X (%s)\n",
		entry.Sequence, entry.Type, entry.PC, arrow, entry.Address, entry.Value, entry.Size)
	_, err := t.Writer.Write([]byte(line))
	return err
}

// GetEntries returns every buffered memory trace entry.
func (t *MemoryTrace) GetEntries() []MemoryAccessEntry {
	return t.entries
}

// Clear drops all buffered memory trace entries.
func (t *MemoryTrace) Clear() {
	t.entries = t.entries[:0]
}

// OpenTraceFile creates (or truncates) a trace output file.
func OpenTraceFile(filename string) (*os.File, error) {
	return os.Create(filename)
}
