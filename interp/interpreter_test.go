package interp_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rv32emu/rv32emu/interp"
	"github.com/rv32emu/rv32emu/vm"
)

func newTestInterpreter(t *testing.T) (*interp.Interpreter, *vm.Registers, *vm.Memory) {
	t.Helper()
	regs := vm.NewRegisters()
	mem := vm.NewMemory(4096)
	ip := interp.New(regs, mem)
	return ip, regs, mem
}

func TestInterpreter_ThreeInstructionAdd(t *testing.T) {
	ip, regs, mem := newTestInterpreter(t)

	// ADDI x1, x0, 5
	require.NoError(t, mem.WriteWord(0x00, 0x00500093, 0))
	// ADDI x2, x0, 7
	require.NoError(t, mem.WriteWord(0x04, 0x00700113, 0))
	// ADD x3, x1, x2
	require.NoError(t, mem.WriteWord(0x08, 0x002081B3, 0))

	for i := 0; i < 3; i++ {
		require.NoError(t, ip.Step())
	}

	assert.Equal(t, uint32(5), regs.Get(1))
	assert.Equal(t, uint32(7), regs.Get(2))
	assert.Equal(t, uint32(12), regs.Get(3))
	assert.Equal(t, uint32(0x0C), regs.PC)
	assert.Equal(t, uint64(3), ip.Instructions)
}

func TestInterpreter_X0Immutable(t *testing.T) {
	ip, regs, mem := newTestInterpreter(t)

	// ADDI x0, x0, 5 -- a write to x0 that must be silently dropped.
	require.NoError(t, mem.WriteWord(0x00, 0x00500013, 0))

	require.NoError(t, ip.Step())
	assert.Equal(t, uint32(0), regs.Get(0))
}

func TestInterpreter_BranchBackwardLoop(t *testing.T) {
	ip, regs, mem := newTestInterpreter(t)

	// 0x00: ADDI x1, x0, 3   -- loop counter
	require.NoError(t, mem.WriteWord(0x00, 0x00300093, 0))
	// 0x04: ADDI x2, x0, 0   -- accumulator
	require.NoError(t, mem.WriteWord(0x04, 0x00000113, 0))
	// 0x08: ADDI x2, x2, 1   -- loop body
	require.NoError(t, mem.WriteWord(0x08, 0x00110113, 0))
	// 0x0C: ADDI x1, x1, -1
	require.NoError(t, mem.WriteWord(0x0C, 0xFFF08093, 0))
	// 0x10: BNE x1, x0, -8   -- back to 0x08 while x1 != 0
	require.NoError(t, mem.WriteWord(0x10, 0xFE009CE3, 0))

	// 2 setup instructions + 3 iterations of 3 = 11; the word at 0x14 is
	// zero and would fail to decode if Run went one step further.
	executed, err := ip.Run(11)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), regs.Get(2))
	assert.Equal(t, uint32(0), regs.Get(1))
	assert.Equal(t, uint32(0x14), regs.PC)
	assert.Greater(t, executed, uint64(0))
}

func TestInterpreter_ExitSyscall(t *testing.T) {
	ip, regs, mem := newTestInterpreter(t)

	// ADDI x10, x0, 5   -- exit code
	require.NoError(t, mem.WriteWord(0x00, 0x00500513, 0))
	// ADDI x17, x0, 93  -- syscall number (exit)
	require.NoError(t, mem.WriteWord(0x04, 0x05D00893, 0))
	// ECALL
	require.NoError(t, mem.WriteWord(0x08, 0x00000073, 0))

	executed, err := ip.Run(10)
	require.NoError(t, err)
	assert.Equal(t, interp.StateHalted, ip.State)
	assert.Equal(t, int32(5), ip.ExitCode)
	assert.Equal(t, uint64(3), executed)
	_ = regs
}

func TestInterpreter_WriteSyscall(t *testing.T) {
	ip, regs, mem := newTestInterpreter(t)
	var out bytes.Buffer
	ip.Output = &out

	message := []byte("hi\n")
	require.NoError(t, mem.LoadBytes(0x200, message))

	regs.Set(vm.RegA0, 1)            // fd = stdout
	regs.Set(vm.RegA1, 0x200)        // buf
	regs.Set(vm.RegA2, uint32(len(message)))
	regs.Set(vm.RegA7, 64) // write

	require.NoError(t, mem.WriteWord(0x00, 0x00000073, 0)) // ECALL

	require.NoError(t, ip.Step())
	assert.Equal(t, "hi\n", out.String())
	assert.Equal(t, uint32(len(message)), regs.Get(vm.RegA0))
}

func TestInterpreter_UnknownSyscallContinues(t *testing.T) {
	ip, regs, mem := newTestInterpreter(t)

	regs.Set(vm.RegA7, 999) // not a recognized syscall number
	require.NoError(t, mem.WriteWord(0x00, 0x00000073, 0))    // ECALL
	require.NoError(t, mem.WriteWord(0x04, 0x00100093, 0))    // ADDI x1, x0, 1

	err := ip.Step()
	require.Error(t, err)
	var unknown *interp.UnknownSyscallError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint32(0xFFFFFFFF), regs.Get(vm.RegA0))
	assert.NotEqual(t, interp.StateError, ip.State)

	require.NoError(t, ip.Step())
	assert.Equal(t, uint32(1), regs.Get(1))
}

func TestInterpreter_EBreakHalts(t *testing.T) {
	ip, _, mem := newTestInterpreter(t)

	require.NoError(t, mem.WriteWord(0x00, 0x00100073, 0)) // EBREAK

	err := ip.Step()
	require.Error(t, err)
	var ebreak *interp.EBreakError
	require.ErrorAs(t, err, &ebreak)
	assert.Equal(t, interp.StateBreakpoint, ip.State)
}
