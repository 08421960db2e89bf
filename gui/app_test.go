package main

import (
	"testing"

	_ "fyne.io/fyne/v2/test"
)

// writeTestProgram hand-encodes a tiny RV32I program directly into the
// app's memory: ADDI x10, x0, 42; ECALL. There's no assembler in this
// project, so fixtures are raw encoded words, the same style
// interp/interpreter_test.go and debugger/gui_test.go use for theirs.
func writeTestProgram(t *testing.T, a *App) {
	t.Helper()
	if err := a.machine.Mem.WriteWord(0x00, 0x02A00513, 0); err != nil { // ADDI x10, x0, 42
		t.Fatalf("WriteWord failed: %v", err)
	}
	if err := a.machine.Mem.WriteWord(0x04, 0x00000073, 0); err != nil { // ECALL
		t.Fatalf("WriteWord failed: %v", err)
	}
}

func TestAppCreation(t *testing.T) {
	a := NewApp()
	if a == nil {
		t.Fatal("NewApp returned nil")
	}
	if a.RegisterView == nil {
		t.Error("RegisterView not initialized")
	}
	if a.DisassemblyView == nil {
		t.Error("DisassemblyView not initialized")
	}
	if a.MemoryView == nil {
		t.Error("MemoryView not initialized")
	}
	if a.StackView == nil {
		t.Error("StackView not initialized")
	}
	if a.BreakpointsList == nil {
		t.Error("BreakpointsList not initialized")
	}
	if a.ConsoleOutput == nil {
		t.Error("ConsoleOutput not initialized")
	}
	if a.Toolbar == nil {
		t.Error("Toolbar not initialized")
	}
}

func TestAppStepExecution(t *testing.T) {
	a := NewApp()
	writeTestProgram(t, a)

	a.stepProgram()

	regs := a.service.GetRegisterState()
	if regs.Registers[10] != 42 {
		t.Errorf("expected x10=42, got %d", regs.Registers[10])
	}
	if regs.PC != 0x04 {
		t.Errorf("expected pc=0x04, got 0x%08X", regs.PC)
	}
}

func TestAppBreakpoints(t *testing.T) {
	a := NewApp()
	writeTestProgram(t, a)

	a.addBreakpoint()
	if len(a.breakpoints) != 1 {
		t.Fatalf("expected 1 breakpoint, got %d", len(a.breakpoints))
	}

	a.clearBreakpoints()
	if len(a.breakpoints) != 0 {
		t.Errorf("expected 0 breakpoints after clear, got %d", len(a.breakpoints))
	}
}

func TestAppUpdateViews(t *testing.T) {
	a := NewApp()
	writeTestProgram(t, a)

	// Should not panic with no ELF loaded.
	a.updateViews()

	if a.RegisterView.Text() == "" {
		t.Error("expected register view to render text")
	}
	if a.DisassemblyView.Text() == "" {
		t.Error("expected disassembly view to render text")
	}
}
