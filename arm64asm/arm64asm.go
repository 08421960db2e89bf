// Package arm64asm encodes the small subset of the ARM64 instruction set
// the JIT's template compiler needs: wide immediate moves, three-register
// ALU ops, comparison and conditional branch, word load/store, and return.
// Each encoding function, named after its mnemonic (MOVZ, ADD, LDR, RET,
// ...), returns the raw 32-bit instruction word; callers feed the result to
// a codebuf.Buffer.
package arm64asm

// Reg names a 32-bit ("W") general-purpose ARM64 register by number.
// WZR (the zero register) is modeled as register 31, matching the
// hardware encoding where Rd/Rn/Rm == 31 means the zero register in most
// contexts (and the stack pointer in a few, none of which this emitter
// uses).
type Reg uint8

const (
	W0 Reg = iota
	W1
	W2
	W3
	W4
	W5
	W6
	W7
	W8
	W9
	W10
	W11
	W12
	W13
	W14
	W15
	W16
	W17
	W18
	W19
	W20
	W21
	W22
	W23
	W24
	W25
	W26
	W27
	W28
	W29
	LR  = 30
	WZR = 31
)

// Cond is an ARM64 condition code, used by B.cond.
type Cond uint8

const (
	CondEQ Cond = 0x0
	CondNE Cond = 0x1
	CondLT Cond = 0xB
	CondGE Cond = 0xA
	CondLO Cond = 0x3 // unsigned <
	CondHS Cond = 0x2 // unsigned >=
)

// MOVZ Rd, #imm16, LSL #(hw*16) -- zeroes Rd before inserting imm16 at the
// given half-word position (hw in 0..1 for the 32-bit variant).
func MOVZ(rd Reg, imm16 uint16, hw uint8) uint32 {
	return 0x52800000 | uint32(hw&1)<<21 | uint32(imm16)<<5 | uint32(rd)
}

// MOVK Rd, #imm16, LSL #(hw*16) -- inserts imm16 without touching the rest
// of Rd. Paired with MOVZ to materialize a full 32-bit constant.
func MOVK(rd Reg, imm16 uint16, hw uint8) uint32 {
	return 0x72800000 | uint32(hw&1)<<21 | uint32(imm16)<<5 | uint32(rd)
}

// ADD Rd, Rn, Rm (register, no shift).
func ADD(rd, rn, rm Reg) uint32 {
	return 0x0B000000 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

// SUB Rd, Rn, Rm (register, no shift).
func SUB(rd, rn, rm Reg) uint32 {
	return 0x4B000000 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

// AND Rd, Rn, Rm (register, no shift).
func AND(rd, rn, rm Reg) uint32 {
	return 0x0A000000 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

// ORR Rd, Rn, Rm (register, no shift).
func ORR(rd, rn, rm Reg) uint32 {
	return 0x2A000000 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

// EOR Rd, Rn, Rm (register, no shift).
func EOR(rd, rn, rm Reg) uint32 {
	return 0x4A000000 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

// CMP Rn, Rm -- SUBS WZR, Rn, Rm; sets flags without keeping the result.
func CMP(rn, rm Reg) uint32 {
	return 0x6B000000 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(WZR)
}

// BCond encodes a conditional branch to a PC-relative byte offset. offset
// must be a multiple of 4 and fit in the 19-bit signed field (+-1MiB); the
// JIT enforces this by keeping compiled blocks short.
func BCond(cond Cond, offset int32) uint32 {
	imm19 := uint32(offset/4) & 0x7FFFF
	return 0x54000000 | imm19<<5 | uint32(cond)
}

// B encodes an unconditional branch to a PC-relative byte offset.
func B(offset int32) uint32 {
	imm26 := uint32(offset/4) & 0x3FFFFFF
	return 0x14000000 | imm26
}

// LDR Rt, [Rn, #imm12*4] -- 32-bit unsigned-offset load. imm12 is a
// word-count, not a byte offset (the encoding scales it by 4).
func LDR(rt, rn Reg, imm12 uint16) uint32 {
	return 0xB9400000 | uint32(imm12&0xFFF)<<10 | uint32(rn)<<5 | uint32(rt)
}

// STR Rt, [Rn, #imm12*4] -- 32-bit unsigned-offset store.
func STR(rt, rn Reg, imm12 uint16) uint32 {
	return 0xB9000000 | uint32(imm12&0xFFF)<<10 | uint32(rn)<<5 | uint32(rt)
}

// RET Rn -- returns to the address in Rn (LR if unspecified, as in the
// plain "RET" mnemonic).
func RET(rn Reg) uint32 {
	return 0xD65F0000 | uint32(rn)<<5
}

// MOVImm32 returns the MOVZ+MOVK pair needed to materialize an arbitrary
// 32-bit constant in rd, used by the JIT for immediate operands that don't
// fit a single MOVZ.
func MOVImm32(rd Reg, value uint32) []uint32 {
	lo := uint16(value)
	hi := uint16(value >> 16)
	if hi == 0 {
		return []uint32{MOVZ(rd, lo, 0)}
	}
	return []uint32{MOVZ(rd, lo, 0), MOVK(rd, hi, 1)}
}
