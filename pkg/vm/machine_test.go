package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func op(o Op) Instruction { return Instruction{Op: o} }

func with(o Op, mode AddressingMode, k int) Instruction {
	return Instruction{Op: o, Mode: mode, Operand: Int(int64(k))}
}

func pushI(v int64) Instruction { return Instruction{Op: OpPush, Operand: Int(v)} }

func run(t *testing.T, code ...Instruction) (*Machine, error) {
	t.Helper()
	m := NewMachine(&Program{Code: code}, nil)
	return m, m.Run()
}

func TestCallAndReturn(t *testing.T) {
	// 0..4: push return slot and two arguments, call, drop arguments
	// 6..: sub(a, b) stores a-b in the return slot
	m, err := run(t,
		pushI(0),
		pushI(10),
		pushI(3),
		with(OpCall, Relative, 3),
		with(OpPop, NoMode, 2),
		op(OpHalt),
		with(OpLoad, BasePointerRelative, -4),
		with(OpLoad, BasePointerRelative, -3),
		op(OpSub),
		with(OpStore, BasePointerRelative, -5),
		op(OpReturn),
	)
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(7)}, m.Stack())
}

func TestCallThroughFunctionValue(t *testing.T) {
	m, err := run(t,
		pushI(0),
		Instruction{Op: OpPushFunction, Operand: Int(5)},
		with(OpCall, Pop, 0),
		op(OpHalt),
		op(OpNop),
		pushI(42),
		with(OpStore, BasePointerRelative, -3),
		op(OpReturn),
	)
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(42)}, m.Stack())
}

func TestReturnChecksFrameBalance(t *testing.T) {
	_, err := run(t,
		with(OpCall, Relative, 2),
		op(OpHalt),
		pushI(1), // left on the frame
		op(OpReturn),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbalanced frame")
}

func TestRelativeAddressing(t *testing.T) {
	m, err := run(t,
		pushI(1),
		pushI(2),
		pushI(3),
		with(OpLoad, Relative, -3),
		with(OpStore, Relative, -1),
		with(OpLoad, Absolute, 1),
		op(OpAdd),
	)
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(1), Int(2), Int(3)}, m.Stack())
}

func TestHeap(t *testing.T) {
	m, err := run(t,
		with(OpAlloc, NoMode, 2),
		pushI(5),
		with(OpLoad, Relative, -2),
		with(OpStore, RuntimeComputed, 1), // heap[p+1] = 5
		with(OpLoad, Relative, -1),
		with(OpLoad, RuntimeComputed, 1), // p 5
		with(OpLoad, Relative, -2),
		with(OpLoad, RuntimeComputed, 0), // p 5 nil
		with(OpPop, NoMode, 1),
	)
	require.NoError(t, err)
	require.Len(t, m.Stack(), 2)
	assert.Equal(t, PointerValue, m.Stack()[0].Kind)
	assert.NotZero(t, m.Stack()[0].I, "address 0 is never handed out")
	assert.Equal(t, Int(5), m.Stack()[1])
	assert.Equal(t, 1, m.LiveAllocations())

	cell, err := m.HeapCell(m.Stack()[0], 1)
	require.NoError(t, err)
	assert.Equal(t, Int(5), cell)
	_, err = m.HeapCell(m.Stack()[0], 2)
	assert.Error(t, err)
}

func TestFree(t *testing.T) {
	m, err := run(t,
		with(OpAlloc, NoMode, 1),
		op(OpFree),
		Instruction{Op: OpPush, Operand: Nil()},
		op(OpFree),
	)
	require.NoError(t, err)
	assert.Zero(t, m.LiveAllocations())

	_, err = run(t,
		with(OpAlloc, NoMode, 1),
		with(OpLoad, Relative, -1),
		op(OpFree),
		with(OpLoad, RuntimeComputed, 0),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "freed")
}

func TestBuiltins(t *testing.T) {
	var out bytes.Buffer
	p := &Program{Code: []Instruction{
		{Op: OpPush, Operand: String("ab")},
		{Op: OpPush, Operand: String("len")},
		with(OpCallBuiltin, NoMode, 1),
		{Op: OpPush, Operand: String("println")},
		with(OpCallBuiltin, NoMode, 1),
	}}
	m := NewMachine(p, &out)
	require.NoError(t, m.Run())
	assert.Equal(t, "2\n", out.String())
	assert.Equal(t, []Value{Nil()}, m.Stack(), "void builtins still leave one cell")
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name string
		code []Instruction
		want string
	}{
		{"underflow", []Instruction{op(OpAdd)}, "underflow"},
		{"division by zero", []Instruction{pushI(1), pushI(0), op(OpDiv)}, "division by zero"},
		{"unknown builtin", []Instruction{{Op: OpPush, Operand: String("nope")}, with(OpCallBuiltin, NoMode, 0)}, "unknown"},
		{"bad slot", []Instruction{with(OpLoad, Absolute, 3)}, "out of range"},
		{"mixed operands", []Instruction{pushI(1), {Op: OpPush, Operand: Float(1)}, op(OpMul)}, "MUL"},
		{"call through int", []Instruction{pushI(3), with(OpCall, Pop, 0)}, "call through"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.code...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStepLimit(t *testing.T) {
	m := NewMachine(&Program{Code: []Instruction{with(OpJumpBy, NoMode, 0)}}, nil)
	m.StepLimit = 100
	err := m.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step limit")
}

func TestConditionalJumps(t *testing.T) {
	m, err := run(t,
		Instruction{Op: OpPush, Operand: Bool(false)},
		with(OpJumpByIfFalse, NoMode, 2),
		pushI(1), // skipped
		Instruction{Op: OpPush, Operand: Bool(true)},
		with(OpJumpByIfTrue, NoMode, 2),
		pushI(2), // skipped
		pushI(3),
	)
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(3)}, m.Stack())
}
