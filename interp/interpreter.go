// Package interp implements the fetch-decode-execute cycle for RV32I plus
// the ECALL syscall trap. It consumes a vm.Registers/vm.Memory pair and the
// decoder package; it knows nothing about the JIT, which is an independent
// acceleration path over the same state.
package interp

import (
	"fmt"
	"io"
	"os"

	"github.com/rv32emu/rv32emu/decoder"
	"github.com/rv32emu/rv32emu/profiler"
	"github.com/rv32emu/rv32emu/vm"
)

// State is the coarse-grained status the debugger and API query after each
// Step.
type State int

const (
	StateRunning State = iota
	StateHalted
	StateBreakpoint
	StateError
)

// Interpreter drives guest execution against a Machine State. It holds a
// non-owning reference to Regs/Mem; their lifetime is the caller's.
type Interpreter struct {
	Regs *vm.Registers
	Mem  *vm.Memory

	State     State
	LastError error
	ExitCode  int32

	// Instructions is the number of Step calls that executed an instruction:
	// the successful ones plus the exit and unknown-syscall ECALLs.
	Instructions uint64

	Profiler *profiler.Profiler

	ExecutionTrace *vm.ExecutionTrace
	MemoryTrace    *vm.MemoryTrace
	CodeCoverage   *vm.CodeCoverage
	RegisterTrace  *vm.RegisterTrace
	StackTrace     *vm.StackTrace
	Stats          *vm.PerformanceStatistics

	// Output is where the write syscall sends fd 1. Defaults to os.Stdout.
	Output io.Writer

	files []*os.File
}

// New creates an interpreter over the given registers and memory.
func New(regs *vm.Registers, mem *vm.Memory) *Interpreter {
	return &Interpreter{
		Regs:   regs,
		Mem:    mem,
		State:  StateHalted,
		Output: os.Stdout,
	}
}

// Reset clears the error/exit state so the interpreter can be reused.
func (ip *Interpreter) Reset() {
	ip.State = StateHalted
	ip.LastError = nil
	ip.ExitCode = 0
	ip.Instructions = 0
}

// Fetch reads the instruction word at the current PC.
func (ip *Interpreter) Fetch() (uint32, error) {
	word, err := ip.Mem.ReadWord(ip.Regs.PC, ip.Regs.PC)
	if err != nil {
		return 0, fmt.Errorf("fetch failed at pc=0x%08X: %w", ip.Regs.PC, err)
	}
	return word, nil
}

// Step executes exactly one guest instruction at the current PC, mutating
// Regs/Mem and advancing PC.
func (ip *Interpreter) Step() error {
	if ip.State == StateError {
		return fmt.Errorf("interpreter is in error state: %w", ip.LastError)
	}

	pc := ip.Regs.PC
	word, err := ip.Fetch()
	if err != nil {
		ip.State = StateError
		ip.LastError = err
		return err
	}

	inst, err := decoder.Decode(word, pc)
	if err != nil {
		ip.State = StateError
		ip.LastError = fmt.Errorf("decode failed at pc=0x%08X: %w", pc, err)
		return ip.LastError
	}

	var before *vm.Snapshot
	if ip.RegisterTrace != nil && ip.RegisterTrace.Enabled {
		before = &vm.Snapshot{}
		before.Capture(ip.Regs)
	}

	execErr := ip.execute(inst)
	if execErr != nil {
		switch execErr.(type) {
		case *ExitError:
			ip.State = StateHalted
		case *UnknownSyscallError:
			// Non-fatal: a0 already holds -1 and PC has advanced. Execution
			// continues, so this instruction still counts as having run.
		default:
			if ip.State != StateBreakpoint {
				ip.State = StateError
				ip.LastError = fmt.Errorf("execute failed at pc=0x%08X: %w", pc, execErr)
			}
			return execErr
		}
	}

	ip.Instructions++

	if ip.Profiler != nil {
		ip.Profiler.Record(pc)
	}
	if ip.CodeCoverage != nil {
		ip.CodeCoverage.RecordExecution(pc, ip.Instructions)
	}
	if ip.Stats != nil {
		ip.Stats.RecordInstruction(mnemonicHint(inst), pc, 1)
	}
	if before != nil {
		after := &vm.Snapshot{}
		after.Capture(ip.Regs)
		for _, i := range before.Changed(after) {
			ip.RegisterTrace.RecordWrite(ip.Instructions, pc, registerName(i), before.X[i], after.X[i])
		}
	}
	if ip.ExecutionTrace != nil && ip.ExecutionTrace.Enabled {
		ip.ExecutionTrace.RecordInstruction(ip.Instructions, pc, word, fmt.Sprintf("0x%08X", word), ip.Regs)
	}

	return execErr
}

// Run repeatedly Steps until max instructions have executed, an exit
// syscall fires, or a fault is raised. It returns the instruction count and
// a nil error on a clean exit.
func (ip *Interpreter) Run(max uint64) (uint64, error) {
	ip.State = StateRunning
	var executed uint64
	for executed < max {
		err := ip.Step()
		executed++
		if err != nil {
			switch exit := err.(type) {
			case *ExitError:
				ip.ExitCode = exit.Code
				return executed, nil
			case *UnknownSyscallError:
				// already recorded, a0 set to -1; keep running.
			default:
				return executed, err
			}
		}
		if ip.State != StateRunning {
			return executed, nil
		}
	}
	return executed, nil
}

func registerName(i int) string {
	return fmt.Sprintf("x%d", i)
}

// mnemonicHint gives the performance-statistics module a stable label built
// from the opcode and funct3; the tree has no disassembler or mnemonic table.
func mnemonicHint(inst decoder.Instruction) string {
	return fmt.Sprintf("op%02X.f%d", inst.Opcode, inst.Funct3)
}
