package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStackEffectMatchesMachine executes single instructions on a prepared
// stack and compares the depth change with the static effect.
func TestStackEffectMatchesMachine(t *testing.T) {
	tests := []struct {
		name  string
		setup []Instruction
		in    Instruction
	}{
		{"push", nil, pushI(1)},
		{"push function", nil, Instruction{Op: OpPushFunction, Operand: Int(0)}},
		{"load", []Instruction{pushI(1)}, with(OpLoad, Relative, -1)},
		{"store", []Instruction{pushI(1), pushI(2)}, with(OpStore, Absolute, 0)},
		{"load heap", []Instruction{with(OpAlloc, NoMode, 1)}, with(OpLoad, RuntimeComputed, 0)},
		{"store heap", []Instruction{pushI(1), with(OpAlloc, NoMode, 1)}, with(OpStore, RuntimeComputed, 0)},
		{"pop", []Instruction{pushI(1), pushI(2), pushI(3)}, with(OpPop, NoMode, 2)},
		{"alloc", nil, with(OpAlloc, NoMode, 3)},
		{"free", []Instruction{with(OpAlloc, NoMode, 1)}, op(OpFree)},
		{"add", []Instruction{pushI(1), pushI(2)}, op(OpAdd)},
		{"compare", []Instruction{pushI(1), pushI(2)}, op(OpCLt)},
		{"negate", []Instruction{pushI(1)}, op(OpNeg)},
		{"to float", []Instruction{pushI(1)}, op(OpToFloat)},
		{"jump if false", []Instruction{{Op: OpPush, Operand: Bool(true)}}, with(OpJumpByIfFalse, NoMode, 1)},
		{"builtin", []Instruction{pushI(-4), {Op: OpPush, Operand: String("abs")}}, with(OpCallBuiltin, NoMode, 1)},
		{"comment", nil, Instruction{Op: OpComment, Comment: "x"}},
		{"debug tag", nil, Instruction{Op: OpSetDebugTag, Operand: String("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := append(append([]Instruction(nil), tt.setup...), tt.in)
			m := NewMachine(&Program{Code: code}, nil)
			for range tt.setup {
				require.NoError(t, m.step(m.code[m.ip]))
			}
			before := len(m.Stack())
			require.NoError(t, m.step(tt.in))
			assert.Equal(t, StackEffect(tt.in), len(m.Stack())-before)
		})
	}
}

func TestDepth(t *testing.T) {
	code := []Instruction{
		pushI(0),
		pushI(1),
		pushI(2),
		with(OpCall, Relative, 10),
		with(OpPop, NoMode, 2),
	}
	assert.Equal(t, 1, Depth(code))
	assert.Equal(t, 0, Depth(nil))
}
