//go:build arm64

package jit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rv32emu/rv32emu/jit"
	"github.com/rv32emu/rv32emu/vm"
)

// Execute enters real native code, so it only runs on arm64 hardware
// (where the compiled block's encoding is valid to begin with).
func TestExecute_StraightLineALU(t *testing.T) {
	mem := vm.NewMemory(4096)
	require.NoError(t, mem.WriteWord(0x00, 0x00500093, 0)) // ADDI x1, x0, 5
	require.NoError(t, mem.WriteWord(0x04, 0x00700113, 0)) // ADDI x2, x0, 7
	require.NoError(t, mem.WriteWord(0x08, 0x002081B3, 0)) // ADD x3, x1, x2

	engine := jit.New()
	block, err := engine.CompileBlock(0x00, mem)
	require.NoError(t, err)

	regs := vm.NewRegisters()
	jit.Execute(block, regs)

	assert.Equal(t, uint32(5), regs.Get(1))
	assert.Equal(t, uint32(7), regs.Get(2))
	assert.Equal(t, uint32(12), regs.Get(3))
	assert.Equal(t, uint32(0), regs.Get(0))
	assert.Equal(t, uint32(0x0C), regs.PC)
}
