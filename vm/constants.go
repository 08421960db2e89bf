package vm

// Guest architecture constants for the RV32I register file and memory.
const (
	RegisterCount = 32 // x0-x31

	// ABI register aliases used throughout tracing, the debugger and the
	// syscall trap handler.
	RegZero = 0  // x0, hardwired to zero
	RegRA   = 1  // x1, return address
	RegSP   = 2  // x2, stack pointer
	RegA0   = 10 // x10, first argument / return value
	RegA1   = 11 // x11
	RegA2   = 12 // x12
	RegA7   = 17 // x17, syscall number

	// DefaultMemorySize is the flat guest address space size (128 MiB).
	DefaultMemorySize = 128 * 1024 * 1024

	// DefaultStackTop is the initial stack pointer for the default memory
	// size: a fixed high address near the top of guest memory.
	DefaultStackTop = 0x07FFF000

	// DefaultMaxCycles bounds Run() when no explicit cap is given.
	DefaultMaxCycles = 1_000_000

	// InstructionSize is the fixed RV32I instruction width in bytes.
	InstructionSize = 4
)

// Bit masks shared by the decoder, interpreter and JIT emitter.
const (
	Mask5Bit  = 0x1F
	Mask7Bit  = 0x7F
	Mask12Bit = 0xFFF
	Mask20Bit = 0xFFFFF
)
