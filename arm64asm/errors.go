package arm64asm

import "fmt"

// EncodingError reports an ARM64 instruction that the emitter cannot
// produce, tagged with the guest PC whose translation triggered it. It
// mirrors the Message/Wrapped shape the ARM assembly encoder used, but
// carries a guest address instead of a source position.
type EncodingError struct {
	PC      uint32
	Message string
	Wrapped error
}

func (e *EncodingError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("arm64 encoding error at guest pc=0x%08X: %s: %v", e.PC, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("arm64 encoding error at guest pc=0x%08X: %s", e.PC, e.Message)
}

func (e *EncodingError) Unwrap() error { return e.Wrapped }

// NewEncodingError creates an EncodingError with no wrapped cause.
func NewEncodingError(pc uint32, message string) *EncodingError {
	return &EncodingError{PC: pc, Message: message}
}

// WrapEncodingError wraps err with pc context, passing nil through and
// leaving an existing EncodingError unwrapped.
func WrapEncodingError(pc uint32, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*EncodingError); ok {
		return err
	}
	return &EncodingError{PC: pc, Message: "failed to encode instruction", Wrapped: err}
}
