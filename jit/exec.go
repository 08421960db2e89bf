package jit

import (
	"unsafe"

	"github.com/rv32emu/rv32emu/vm"
)

// nativeBlock is the Go function signature a compiled block is called
// through: one argument, the address of the guest register file's first
// word, matching the ARM64 calling convention X0 == base pointer that
// emitPrologue/emitEpilogue assume.
type nativeBlock func(regsBase *uint32)

// Execute runs a compiled block against regs. It patches a Go function
// value's code pointer to point at the sealed buffer and calls it like any
// other function -- the standard trick small Go JITs use to enter native
// code without cgo, since Go gives no other way to call a bare code
// pointer directly.
//
// x0 is force-reset to zero afterward: the compiled block's epilogue
// stores every host register back unconditionally, including whatever an
// instruction with rd=x0 computed, and only the caller can restore the
// hardwired-zero invariant Registers.Set enforces on the interpreted path.
func Execute(b *Block, regs *vm.Registers) {
	var fn nativeBlock
	codePtr := uintptr(unsafe.Pointer(&b.buf.Bytes()[0]))
	fnPtr := (*uintptr)(unsafe.Pointer(&fn))
	*fnPtr = codePtr

	fn(&regs.X[0])

	regs.X[0] = 0
	regs.PC += uint32(b.Instructions) * vm.InstructionSize
}
