// Package codebuf manages the JIT's executable memory region: a mmap'd
// buffer that starts writable, accepts emitted ARM64 words, and is sealed
// (made read+exec, never both at once) before any compiled block runs.
package codebuf

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// state is the buffer's WRITING -> SEALED lifecycle. A sealed buffer can
// never be written to again; emission failures on an open buffer must
// discard it rather than seal it.
type state int

const (
	stateWriting state = iota
	stateSealed
	stateClosed
)

// OverflowError reports an emission that would exceed the buffer's fixed
// capacity.
type OverflowError struct {
	Requested int
	Capacity  int
	Used      int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("code buffer overflow: requested %d bytes, only %d of %d available",
		e.Requested, e.Capacity-e.Used, e.Capacity)
}

// SealedBufferError reports a write attempted after Seal.
type SealedBufferError struct{}

func (e *SealedBufferError) Error() string {
	return "cannot write to a sealed code buffer"
}

// Buffer is a single mmap'd region of executable memory. It is not safe for
// concurrent use; the JIT compiler owns one per in-progress compilation and
// hands the sealed result to the block cache.
type Buffer struct {
	mem   []byte
	used  int
	state state
}

// New mmaps a fresh, writable, non-executable buffer of the given capacity.
func New(capacity int) (*Buffer, error) {
	mem, err := unix.Mmap(-1, 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap code buffer: %w", err)
	}
	return &Buffer{mem: mem, state: stateWriting}, nil
}

// Len returns the number of bytes emitted so far.
func (b *Buffer) Len() int { return b.used }

// Cap returns the buffer's fixed capacity.
func (b *Buffer) Cap() int { return len(b.mem) }

// Base returns the address of the buffer's first byte; only meaningful
// after Seal, when the region has stopped moving and become executable.
func (b *Buffer) Base() uintptr {
	if len(b.mem) == 0 {
		return 0
	}
	return uintptr(unsafePointer(b.mem))
}

func (b *Buffer) checkWritable(n int) error {
	if b.state != stateWriting {
		return &SealedBufferError{}
	}
	if b.used+n > len(b.mem) {
		return &OverflowError{Requested: n, Capacity: len(b.mem), Used: b.used}
	}
	return nil
}

// EmitU8 appends a single byte.
func (b *Buffer) EmitU8(v uint8) error {
	if err := b.checkWritable(1); err != nil {
		return err
	}
	b.mem[b.used] = v
	b.used++
	return nil
}

// EmitU32 appends a little-endian 32-bit word, the ARM64 instruction width.
func (b *Buffer) EmitU32(v uint32) error {
	if err := b.checkWritable(4); err != nil {
		return err
	}
	b.mem[b.used] = byte(v)
	b.mem[b.used+1] = byte(v >> 8)
	b.mem[b.used+2] = byte(v >> 16)
	b.mem[b.used+3] = byte(v >> 24)
	b.used += 4
	return nil
}

// EmitU64 appends a little-endian 64-bit value. The jit package does not
// call it; its blocks carry no literal pool.
func (b *Buffer) EmitU64(v uint64) error {
	if err := b.checkWritable(8); err != nil {
		return err
	}
	for i := 0; i < 8; i++ {
		b.mem[b.used+i] = byte(v >> (8 * i))
	}
	b.used += 8
	return nil
}

// Bytes returns the emitted prefix of the buffer, valid in either state.
func (b *Buffer) Bytes() []byte {
	return b.mem[:b.used]
}

// Seal flips the buffer from writable to executable (never both), flushing
// the instruction cache so the CPU sees the freshly written code. Once
// sealed the buffer can be cast to a function pointer and entered.
func (b *Buffer) Seal() error {
	if b.state != stateWriting {
		return fmt.Errorf("cannot seal a buffer in state %d", b.state)
	}
	if err := unix.Mprotect(b.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("mprotect code buffer executable: %w", err)
	}
	flushICache(b.mem)
	b.state = stateSealed
	return nil
}

// Close unmaps the buffer. A buffer must not be entered after Close.
func (b *Buffer) Close() error {
	if b.state == stateClosed {
		return nil
	}
	if err := unix.Munmap(b.mem); err != nil {
		return fmt.Errorf("munmap code buffer: %w", err)
	}
	b.state = stateClosed
	b.mem = nil
	return nil
}

// Sealed reports whether the buffer has been sealed and is safe to execute.
func (b *Buffer) Sealed() bool {
	return b.state == stateSealed
}
