// Package jit compiles short, straight-line RV32I basic blocks into native
// ARM64 machine code and caches them by guest start PC. It only handles
// the register-register and register-immediate ALU opcodes operating on
// guest registers x0-x7; any other instruction ends the block, and a block
// that can't be compiled at all is simply never cached, leaving the
// interpreter to run it.
package jit

import (
	"fmt"

	"github.com/rv32emu/rv32emu/arm64asm"
	"github.com/rv32emu/rv32emu/codebuf"
	"github.com/rv32emu/rv32emu/decoder"
	"github.com/rv32emu/rv32emu/vm"
)

// maxGuestRegs is the number of guest registers the template compiler's
// host register bank can address (x0..x7, mapped to W9..W16).
const maxGuestRegs = 8

// maxBlockInstructions bounds how many instructions a single compiled
// block may contain, keeping template compilation itself cheap.
const maxBlockInstructions = 32

// hostReg maps a guest register index (0..7) to its fixed host register.
func hostReg(guest int) arm64asm.Reg {
	return arm64asm.Reg(arm64asm.W9) + arm64asm.Reg(guest)
}

// NotCompilableError reports that a block starting at PC contains an
// instruction the template compiler doesn't translate. It is not a
// failure: the caller falls back to the interpreter for this block.
type NotCompilableError struct {
	PC     uint32
	Reason string
}

func (e *NotCompilableError) Error() string {
	return fmt.Sprintf("block at pc=0x%08X not compilable: %s", e.PC, e.Reason)
}

// Block is a sealed, executable translation of a guest basic block.
type Block struct {
	StartPC      uint32
	Instructions int
	buf          *codebuf.Buffer
}

// Engine owns the compiled block cache. Blocks are never evicted: once a
// PC compiles, the translation is reused for the lifetime of the engine.
type Engine struct {
	blocks map[uint32]*Block
}

// New creates an empty JIT engine.
func New() *Engine {
	return &Engine{blocks: make(map[uint32]*Block)}
}

// Lookup returns the cached block for pc, if one has been compiled.
func (e *Engine) Lookup(pc uint32) (*Block, bool) {
	b, ok := e.blocks[pc]
	return b, ok
}

// CompileBlock translates the straight-line run of supported instructions
// starting at startPC into a Block and caches it. It stops translating (but
// still returns a valid, cacheable Block) at the first instruction outside
// the supported ALU subset, at a branch/jump/system instruction, or after
// maxBlockInstructions.
//
// Execute runs compiled code by casting the sealed buffer to a Go function
// value through the pointer-patching trick common to small Go JITs: the
// function's single word is overwritten with the address of position-
// independent native code, and it is called exactly like any other Go
// function value.
func (e *Engine) CompileBlock(startPC uint32, mem *vm.Memory) (*Block, error) {
	if cached, ok := e.blocks[startPC]; ok {
		return cached, nil
	}

	insts, err := decodeStraightLine(startPC, mem)
	if err != nil {
		return nil, err
	}
	if len(insts) == 0 {
		return nil, &NotCompilableError{PC: startPC, Reason: "first instruction is not in the supported ALU subset"}
	}

	buf, err := codebuf.New(4096)
	if err != nil {
		return nil, fmt.Errorf("allocate code buffer: %w", err)
	}

	if err := emitPrologue(buf); err != nil {
		buf.Close()
		return nil, err
	}
	for _, inst := range insts {
		if err := emitInstruction(buf, inst); err != nil {
			buf.Close()
			return nil, err
		}
	}
	if err := emitEpilogue(buf); err != nil {
		buf.Close()
		return nil, err
	}
	if err := buf.Seal(); err != nil {
		buf.Close()
		return nil, err
	}

	block := &Block{StartPC: startPC, Instructions: len(insts), buf: buf}
	e.blocks[startPC] = block
	return block, nil
}

// decodeStraightLine decodes instructions from startPC until it hits one
// outside the ALU subset this compiler handles, a full block, or a word it
// cannot read or decode. A read or decode failure ends the block just like
// an unsupported instruction: the instructions decoded before it are kept,
// and the returned error is always nil.
func decodeStraightLine(startPC uint32, mem *vm.Memory) ([]decoder.Instruction, error) {
	var insts []decoder.Instruction
	pc := startPC
	for len(insts) < maxBlockInstructions {
		word, err := mem.ReadWord(pc, pc)
		if err != nil {
			break
		}
		inst, err := decoder.Decode(word, pc)
		if err != nil {
			break
		}
		if !supported(inst) {
			break
		}
		insts = append(insts, inst)
		pc += vm.InstructionSize
	}
	return insts, nil
}

// supportedALUFunct3 is the set of funct3 values the host's three-register
// ALU emitter covers: ADD/SUB, XOR, OR, AND. SLT/SLTU/SLL/SRL/SRA have no
// matching host instruction in this template compiler's repertoire and
// fall back to the interpreter.
var supportedALUFunct3 = map[uint32]bool{
	funct3ADD: true,
	funct3XOR: true,
	funct3OR:  true,
	funct3AND: true,
}

const (
	funct3ADD = 0x0
	funct3XOR = 0x4
	funct3OR  = 0x6
	funct3AND = 0x7
)

// supported reports whether inst is one the template compiler translates:
// register-register or register-immediate ALU ops with every operand
// register in the 0..7 range the host bank covers.
func supported(inst decoder.Instruction) bool {
	if inst.Rd >= maxGuestRegs || inst.Rs1 >= maxGuestRegs {
		return false
	}
	if !supportedALUFunct3[inst.Funct3] {
		return false
	}
	switch inst.Opcode {
	case decoder.OpcodeR:
		return inst.Rs2 < maxGuestRegs
	case decoder.OpcodeI:
		return true
	default:
		return false
	}
}
