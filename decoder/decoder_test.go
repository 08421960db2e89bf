package decoder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rv32emu/rv32emu/decoder"
)

func TestDecode_AddiFormatAndFields(t *testing.T) {
	// ADDI x1, x0, 10
	inst, err := decoder.Decode(0x00A00093, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, decoder.FormatI, inst.Format)
	assert.Equal(t, uint32(decoder.OpcodeI), inst.Opcode)
	assert.Equal(t, 1, inst.Rd)
	assert.Equal(t, 0, inst.Rs1)
	assert.Equal(t, int32(10), inst.Imm)
}

func TestDecode_AddRType(t *testing.T) {
	// ADD x3, x1, x2
	inst, err := decoder.Decode(0x002081B3, 0x100C)
	require.NoError(t, err)
	assert.Equal(t, decoder.FormatR, inst.Format)
	assert.Equal(t, 3, inst.Rd)
	assert.Equal(t, 1, inst.Rs1)
	assert.Equal(t, 2, inst.Rs2)
	assert.Equal(t, uint32(0), inst.Funct7)
	assert.Equal(t, int32(0), inst.Imm)
}

func TestDecode_RawPreserved(t *testing.T) {
	for _, raw := range []uint32{0x00A00093, 0x002081B3, 0x00000073} {
		inst, err := decoder.Decode(raw, 0)
		require.NoError(t, err)
		assert.Equal(t, raw, inst.Raw)
	}
}

func TestDecode_UnknownOpcode(t *testing.T) {
	_, err := decoder.Decode(0xFFFFFFFF, 0x2000)
	require.Error(t, err)
	var unknown *decoder.UnknownOpcodeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint32(0x2000), unknown.PC)
}

func TestDecode_ImmediateSignExtension(t *testing.T) {
	tests := []struct {
		name string
		raw  uint32
		want int32
	}{
		{"addi negative one", 0xFFF00093, -1},    // ADDI x1, x0, -1
		{"addi max positive", 0x7FF00093, 2047},  // ADDI x1, x0, 2047
		{"addi min negative", 0x80000093, -2048}, // ADDI x1, x0, -2048
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := decoder.Decode(tt.raw, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, inst.Imm)
		})
	}
}

func TestDecode_BTypeImmediateIsEvenAndAligned(t *testing.T) {
	// BNE x1, x0, -4 (loop back one instruction)
	inst, err := decoder.Decode(0xFE009EE3, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, decoder.FormatB, inst.Format)
	assert.Equal(t, int32(-4), inst.Imm)
	assert.Zero(t, inst.Imm%2)
}

func TestDecode_UTypeLowBitsZero(t *testing.T) {
	// LUI x1, 0x12345
	inst, err := decoder.Decode(0x123450B7, 0)
	require.NoError(t, err)
	assert.Equal(t, decoder.FormatU, inst.Format)
	assert.Equal(t, int32(0x12345000), inst.Imm)
	assert.Zero(t, inst.Imm&0xFFF)
}

func TestDecode_JTypeImmediateIsEven(t *testing.T) {
	// JAL x1, 0 (offset 0 keeps the encoding simple)
	inst, err := decoder.Decode(0x000000EF, 0)
	require.NoError(t, err)
	assert.Equal(t, decoder.FormatJ, inst.Format)
	assert.Zero(t, inst.Imm%2)
}
