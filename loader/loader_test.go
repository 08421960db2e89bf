package loader_test

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rv32emu/rv32emu/loader"
	"github.com/rv32emu/rv32emu/vm"
)

func writeLE(w io.Writer, data any) error {
	return binary.Write(w, binary.LittleEndian, data)
}

// buildELF assembles a minimal ELFCLASS32/ELFDATA2LSB/EM_RISCV/ET_EXEC
// image with one PT_LOAD segment, for exercising LoadELF without a real
// toolchain on hand.
func buildELF(t *testing.T, text []byte, memsz uint32) []byte {
	t.Helper()

	const vaddr = 0x10000
	const entry = vaddr

	ehdrSize := 52
	phdrSize := 32
	phoff := ehdrSize
	dataOff := phoff + phdrSize

	buf := new(bytes.Buffer)

	hdr := elf.Header32{
		Ident:     [elf.EI_NIDENT]byte{0x7f, 'E', 'L', 'F', 1, 1, 1, 0},
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_RISCV),
		Version:   1,
		Entry:     uint32(entry),
		Phoff:     uint32(phoff),
		Shoff:     0,
		Ehsize:    uint16(ehdrSize),
		Phentsize: uint16(phdrSize),
		Phnum:     1,
	}
	require.NoError(t, writeLE(buf, hdr))

	phdr := elf.Prog32{
		Type:   uint32(elf.PT_LOAD),
		Off:    uint32(dataOff),
		Vaddr:  vaddr,
		Paddr:  vaddr,
		Filesz: uint32(len(text)),
		Memsz:  memsz,
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Align:  4,
	}
	require.NoError(t, writeLE(buf, phdr))
	buf.Write(text)

	return buf.Bytes()
}

func TestLoadELF_CopiesSegmentAndZeroFillsBSS(t *testing.T) {
	text := []byte{0x93, 0x00, 0x50, 0x00} // ADDI x1, x0, 5
	img := buildELF(t, text, uint32(len(text))+8)

	mem := vm.NewMemory(1 << 20)
	result, err := loader.LoadELF(bytes.NewReader(img), mem)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x10000), result.EntryPoint)

	word, err := mem.ReadWord(0x10000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00500093), word)

	tail, err := mem.ReadWord(0x10008, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), tail)
}

func TestLoadELF_RejectsWrongMachine(t *testing.T) {
	img := buildELF(t, []byte{0, 0, 0, 0}, 4)
	img[18] = byte(elf.EM_ARM)

	mem := vm.NewMemory(1 << 20)
	_, err := loader.LoadELF(bytes.NewReader(img), mem)
	require.Error(t, err)
	var loadErr *loader.LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestInitStack_SetsSPAndClearsArgRegisters(t *testing.T) {
	regs := vm.NewRegisters()
	regs.Set(vm.RegA0, 0xDEADBEEF)

	loader.InitStack(regs, vm.DefaultStackTop)

	assert.Equal(t, uint32(vm.DefaultStackTop), regs.Get(vm.RegSP))
	assert.Equal(t, uint32(0), regs.Get(vm.RegA0))
	assert.Equal(t, uint32(0), regs.Get(vm.RegA1))
}
