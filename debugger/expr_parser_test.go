package debugger

import (
	"testing"

	"github.com/rv32emu/rv32emu/interp"
)

func evalWithParser(t *testing.T, expr string, machine *interp.Interpreter, symbols map[string]uint32, eval *ExpressionEvaluator) uint32 {
	t.Helper()
	lexer := NewExprLexer(expr)
	tokens := lexer.TokenizeAll()
	parser := NewExprParser(tokens, machine, symbols, eval)
	result, err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", expr, err)
	}
	return result
}

func TestExprParser_RegisterArithmetic(t *testing.T) {
	machine := newTestMachine()
	machine.Regs.Set(1, 10)
	machine.Regs.Set(2, 20)
	eval := NewExpressionEvaluator()
	symbols := make(map[string]uint32)

	tests := []struct {
		name string
		expr string
		want uint32
	}{
		{"register addition", "x1 + x2", 30},
		{"register with constant", "x1 + 5", 15},
		{"register subtraction", "x2 - x1", 10},
		{"precedence", "x1 + x2 * 2", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalWithParser(t, tt.expr, machine, symbols, eval)
			if got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.expr, got, tt.want)
			}
		})
	}
}

func TestExprParser_HexOperandsInBinaryExpression(t *testing.T) {
	machine := newTestMachine()
	eval := NewExpressionEvaluator()
	symbols := make(map[string]uint32)

	tests := []struct {
		name string
		expr string
		want uint32
	}{
		{"hex addition", "0x10 + 0x20", 0x30},
		{"hex AND", "0xFF & 0x0F", 0x0F},
		{"hex OR", "0xF0 | 0x0F", 0xFF},
		{"hex XOR", "0xFF ^ 0x0F", 0xF0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalWithParser(t, tt.expr, machine, symbols, eval)
			if got != tt.want {
				t.Errorf("Parse(%q) = 0x%X, want 0x%X", tt.expr, got, tt.want)
			}
		})
	}
}

func TestExprParser_MemoryAndParens(t *testing.T) {
	machine := newTestMachine()
	if err := machine.Mem.WriteWord(0x1000, 0xCAFEBABE, 0); err != nil {
		t.Fatalf("WriteWord() error = %v", err)
	}
	eval := NewExpressionEvaluator()
	symbols := make(map[string]uint32)

	if got := evalWithParser(t, "[0x1000]", machine, symbols, eval); got != 0xCAFEBABE {
		t.Errorf("[0x1000] = 0x%X, want 0xCAFEBABE", got)
	}
	if got := evalWithParser(t, "(1 + 2) * 3", machine, symbols, eval); got != 9 {
		t.Errorf("(1 + 2) * 3 = %d, want 9", got)
	}
}
