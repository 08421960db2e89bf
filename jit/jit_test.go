package jit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rv32emu/rv32emu/jit"
	"github.com/rv32emu/rv32emu/vm"
)

func TestCompileBlock_StraightLineALU(t *testing.T) {
	mem := vm.NewMemory(4096)
	// ADDI x1, x0, 5
	require.NoError(t, mem.WriteWord(0x00, 0x00500093, 0))
	// ADDI x2, x0, 7
	require.NoError(t, mem.WriteWord(0x04, 0x00700113, 0))
	// ADD x3, x1, x2
	require.NoError(t, mem.WriteWord(0x08, 0x002081B3, 0))
	// BNE x1, x0, -4 -- ends the block, not in the ALU subset
	require.NoError(t, mem.WriteWord(0x0C, 0xFE009EE3, 0))

	engine := jit.New()
	block, err := engine.CompileBlock(0x00, mem)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00), block.StartPC)
	assert.Equal(t, 3, block.Instructions)

	cached, ok := engine.Lookup(0x00)
	require.True(t, ok)
	assert.Same(t, block, cached)

	again, err := engine.CompileBlock(0x00, mem)
	require.NoError(t, err)
	assert.Same(t, block, again)
}

func TestCompileBlock_BranchAtEntryIsNotCompilable(t *testing.T) {
	mem := vm.NewMemory(4096)
	// BEQ x0, x0, 0 (infinite self-branch, never executed -- just a
	// non-ALU instruction sitting at the block's entry point)
	require.NoError(t, mem.WriteWord(0x00, 0x00000063, 0))

	engine := jit.New()
	_, err := engine.CompileBlock(0x00, mem)
	require.Error(t, err)
	var notCompilable *jit.NotCompilableError
	require.ErrorAs(t, err, &notCompilable)
}

func TestCompileBlock_UnsupportedRegisterEndsBlockEarly(t *testing.T) {
	mem := vm.NewMemory(4096)
	// ADDI x1, x0, 1
	require.NoError(t, mem.WriteWord(0x00, 0x00100093, 0))
	// ADDI x9, x0, 1 -- x9 is outside the x0-x7 host bank
	require.NoError(t, mem.WriteWord(0x04, 0x00100493, 0))

	engine := jit.New()
	block, err := engine.CompileBlock(0x00, mem)
	require.NoError(t, err)
	assert.Equal(t, 1, block.Instructions)
}
