package arm64asm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rv32emu/rv32emu/arm64asm"
)

func TestEmit_KnownEncodings(t *testing.T) {
	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"ADD W0, W1, W2", arm64asm.ADD(arm64asm.W0, arm64asm.W1, arm64asm.W2), 0x0B020020},
		{"SUB W0, W1, W2", arm64asm.SUB(arm64asm.W0, arm64asm.W1, arm64asm.W2), 0x4B020020},
		{"AND W0, W1, W2", arm64asm.AND(arm64asm.W0, arm64asm.W1, arm64asm.W2), 0x0A020020},
		{"ORR W0, W1, W2", arm64asm.ORR(arm64asm.W0, arm64asm.W1, arm64asm.W2), 0x2A020020},
		{"EOR W0, W1, W2", arm64asm.EOR(arm64asm.W0, arm64asm.W1, arm64asm.W2), 0x4A020020},
		{"CMP W1, W2", arm64asm.CMP(arm64asm.W1, arm64asm.W2), 0x6B02003F},
		{"MOVZ W0, #0", arm64asm.MOVZ(arm64asm.W0, 0, 0), 0x52800000},
		{"MOVZ W0, #1", arm64asm.MOVZ(arm64asm.W0, 1, 0), 0x52800020},
		{"MOVK W0, #1, LSL #16", arm64asm.MOVK(arm64asm.W0, 1, 1), 0x72A00020},
		{"LDR W0, [X1]", arm64asm.LDR(arm64asm.W0, arm64asm.W1, 0), 0xB9400020},
		{"STR W0, [X1]", arm64asm.STR(arm64asm.W0, arm64asm.W1, 0), 0xB9000020},
		{"RET", arm64asm.RET(arm64asm.LR), 0xD65F03C0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestMOVImm32_SmallValueUsesOnlyMOVZ(t *testing.T) {
	words := arm64asm.MOVImm32(arm64asm.W0, 5)
	assert.Len(t, words, 1)
	assert.Equal(t, arm64asm.MOVZ(arm64asm.W0, 5, 0), words[0])
}

func TestMOVImm32_LargeValueUsesMOVZAndMOVK(t *testing.T) {
	words := arm64asm.MOVImm32(arm64asm.W0, 0x12340000)
	assert.Len(t, words, 2)
	assert.Equal(t, arm64asm.MOVZ(arm64asm.W0, 0, 0), words[0])
	assert.Equal(t, arm64asm.MOVK(arm64asm.W0, 0x1234, 1), words[1])
}

func TestBCond_EncodesConditionAndOffset(t *testing.T) {
	word := arm64asm.BCond(arm64asm.CondEQ, 8)
	assert.Equal(t, uint32(arm64asm.CondEQ), word&0xF)
	assert.Equal(t, uint32(0x54000000), word&0xFF000000)
	assert.Equal(t, uint32(2), (word>>5)&0x7FFFF) // imm19 = offset/4
}
