package interp

import "fmt"

// EBreakError reports an EBREAK trap: a breakpoint encountered during
// execution. It is fatal and the run ends.
type EBreakError struct {
	PC uint32
}

func (e *EBreakError) Error() string {
	return fmt.Sprintf("breakpoint encountered at pc=0x%08X", e.PC)
}

// ExitError reports a normal termination via syscall 93 (exit). It is not a
// failure: Run surfaces the exit code to its caller.
type ExitError struct {
	Code int32
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("program exited with code %d", e.Code)
}

// UnknownSyscallError is non-fatal: the interpreter logs it, writes -1 to
// a0, and continues running.
type UnknownSyscallError struct {
	Number uint32
	PC     uint32
}

func (e *UnknownSyscallError) Error() string {
	return fmt.Sprintf("unknown syscall %d at pc=0x%08X", e.Number, e.PC)
}
