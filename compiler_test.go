package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeWord(w uint32) (Opcode, int) {
	op := Opcode(w >> 16)
	operand := int(int16(w & 0xffff))
	return op, operand
}

func compileSource(t *testing.T, src string) []uint32 {
	t.Helper()
	program, err := NewParser(strings.NewReader(src)).ParseProgram()
	require.NoError(t, err)
	expanded, err := NewMacroProcessor().ProcessProgram(program)
	require.NoError(t, err)
	optimized := NewOptimizer().OptimizeProgram(expanded)
	words, err := NewCompiler().CompileProgram(optimized)
	require.NoError(t, err)
	return words
}

func Test_Compiler_callsAFunction(t *testing.T) {
	words := compileSource(t, `(function add (a b) (+ a b)) (add 2 3)`)

	var sawCall, sawAdd, sawGetlocal int
	for _, w := range words {
		op, _ := decodeWord(w)
		switch op {
		case OpCall:
			sawCall++
		case OpAdd:
			sawAdd++
		case OpGetlocal:
			sawGetlocal++
		}
	}
	assert.Equal(t, 1, sawCall, "the non-tail call to add should emit exactly one call")
	assert.Equal(t, 1, sawAdd, "add's body should emit one add")
	assert.Equal(t, 2, sawGetlocal, "add's body should read both of its parameters")
}

func Test_Compiler_foldsConstantArithmetic(t *testing.T) {
	words := compileSource(t, `(+ 2 3)`)
	var sawPush5 bool
	for _, w := range words {
		op, operand := decodeWord(w)
		if op == OpPush && operand == 5 {
			sawPush5 = true
		}
		assert.NotEqual(t, OpAdd, op, "constant-folded addition should never reach codegen as an add instruction")
	}
	assert.True(t, sawPush5, "(+ 2 3) should fold to a single push 5")
}

func Test_Compiler_strengthReducesMultiplyByPowerOfTwo(t *testing.T) {
	words := compileSource(t, `(function scaleUp (x) (* x 8)) (scaleUp 4)`)
	var sawLshift bool
	for i, w := range words {
		op, _ := decodeWord(w)
		if op != OpLshift {
			continue
		}
		sawLshift = true
		// The shift count is the second operand, which is compiled first, so
		// push 3 sits two words before lshift, with getlocal x between them.
		prev, prevOperand := decodeWord(words[i-2])
		assert.Equal(t, OpPush, prev)
		assert.Equal(t, 3, prevOperand, "(* x 8) should shift left by log2(8) = 3")
	}
	assert.True(t, sawLshift, "(* x 8) should strength-reduce to a left shift")
}

func Test_Compiler_ifWithConstantTestFolds(t *testing.T) {
	words := compileSource(t, `(if 0 111 222)`)
	var saw111, saw222 bool
	for _, w := range words {
		_, operand := decodeWord(w)
		if operand == 111 {
			saw111 = true
		}
		if operand == 222 {
			saw222 = true
		}
	}
	assert.False(t, saw111, "the false branch of a constant-0 test should be the only survivor")
	assert.True(t, saw222)
}

func Test_Compiler_tailSelfCallNeverEmitsCall(t *testing.T) {
	src := `
		(function countdown (n)
			(if (= n 0)
				0
				(countdown (- n 1))))
		(countdown 10)`

	c := NewCompiler()
	_, err := c.CompileProgram(NewOptimizer().OptimizeProgram(mustExpand(t, src)))
	require.NoError(t, err)

	var fn *Function
	for _, retained := range c.Retained {
		if retained.Name == "countdown" {
			fn = retained
		}
	}
	require.NotNil(t, fn, "countdown must be retained: the call from <main> keeps it referenced")

	for _, in := range fn.Code {
		assert.NotEqual(t, OpCall, in.op, "a tail-recursive self-call compiles to setlocal+goto, never call")
	}
}

func Test_Compiler_everyFunctionReservesItsLocalCount(t *testing.T) {
	src := `
		(function f (a)
			(let ((x 1) (y 2))
				(+ x y)))
		(f 10)`

	c := NewCompiler()
	_, err := c.CompileProgram(NewOptimizer().OptimizeProgram(mustExpand(t, src)))
	require.NoError(t, err)

	for _, fn := range c.Retained {
		require.NotEmpty(t, fn.Code)
		op, operand := fn.Code[0].op, fn.Code[0].operand
		assert.Equal(t, OpReserve, op, "offset 0 of every function must be its reserve placeholder")
		assert.Equal(t, fn.NumLocals, operand, "the reserve operand must match the function's declared local count")
	}
}

func Test_Compiler_everyWordHasAKnownOpcodeAndFitsOneWord(t *testing.T) {
	words := compileSource(t, `
		(function fact (n)
			(if (= n 0) 1 (* n (fact (- n 1)))))
		(fact 5)`)

	for _, w := range words {
		op, operand := decodeWord(w)
		assert.NotContains(t, op.String(), "opcode(", "every emitted opcode must be one of the named instructions")
		assert.GreaterOrEqual(t, operand, -32768)
		assert.LessOrEqual(t, operand, 32767)
	}
}

func Test_Compiler_redefiningAFunctionAsAVariableFails(t *testing.T) {
	_, err := NewCompiler().CompileProgram(NewOptimizer().OptimizeProgram(mustExpand(t, `
		(function f (x) x)
		(assign f 5)`)))
	assert.Error(t, err)
}

func mustExpand(t *testing.T, src string) []Expr {
	t.Helper()
	program, err := NewParser(strings.NewReader(src)).ParseProgram()
	require.NoError(t, err)
	expanded, err := NewMacroProcessor().ProcessProgram(program)
	require.NoError(t, err)
	return expanded
}
