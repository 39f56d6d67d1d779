package optimizer

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/xplshn/sbc/pkg/vm"
)

func push(v int64) vm.Instruction { return vm.Instruction{Op: vm.OpPush, Operand: vm.Int(v)} }

func jump(op vm.Op, d int64) vm.Instruction { return vm.Instruction{Op: op, Operand: vm.Int(d)} }

func TestRemovesJumpToNext(t *testing.T) {
	p := &vm.Program{Code: []vm.Instruction{
		jump(vm.OpJumpBy, 1),
		push(7),
		{Op: vm.OpHalt},
	}}
	require.Equal(t, 1, Run(p))
	want := []vm.Instruction{push(7), {Op: vm.OpHalt}}
	if diff := cmp.Diff(want, p.Code); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
}

func TestKeepsOtherJumps(t *testing.T) {
	code := []vm.Instruction{
		jump(vm.OpJumpBy, 2),
		jump(vm.OpJumpByIfFalse, 1),
		jump(vm.OpJumpBy, 0),
		jump(vm.OpJumpBy, -1),
		{Op: vm.OpHalt},
	}
	p := &vm.Program{Code: append([]vm.Instruction(nil), code...)}
	assert.Equal(t, 0, Run(p))
	assert.Equal(t, code, p.Code)
}

func TestCrossingJumpsAreAdjusted(t *testing.T) {
	// 0: JUMP_BY +4 -> 4
	// 1: PUSH 1
	// 2: JUMP_BY +1 (removed)
	// 3: PUSH 2
	// 4: JUMP_BY -3 -> 1
	// 5: HALT
	p := &vm.Program{Code: []vm.Instruction{
		jump(vm.OpJumpBy, 4),
		push(1),
		jump(vm.OpJumpBy, 1),
		push(2),
		jump(vm.OpJumpBy, -3),
		{Op: vm.OpHalt},
	}}
	require.Equal(t, 1, Run(p))
	want := []vm.Instruction{
		jump(vm.OpJumpBy, 3),
		push(1),
		push(2),
		jump(vm.OpJumpBy, -2),
		{Op: vm.OpHalt},
	}
	if diff := cmp.Diff(want, p.Code); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
}

func TestJumpToRemovedInstructionLandsOnSuccessor(t *testing.T) {
	// 0: PUSH 1
	// 1: JUMP_BY +1 (removed)
	// 2: PUSH 2
	// 3: JUMP_BY_IF_TRUE -2 -> 1, must end up at PUSH 2
	p := &vm.Program{Code: []vm.Instruction{
		push(1),
		jump(vm.OpJumpBy, 1),
		push(2),
		jump(vm.OpJumpByIfTrue, -2),
	}}
	require.Equal(t, 1, Run(p))
	require.Len(t, p.Code, 3)
	assert.Equal(t, 1, p.Code[2].Target(2))
	assert.Equal(t, push(2), p.Code[1])
}

func TestChainedNoOpJumps(t *testing.T) {
	// Removing the inner jump turns the outer one into a jump to next.
	p := &vm.Program{Code: []vm.Instruction{
		jump(vm.OpJumpBy, 2),
		jump(vm.OpJumpBy, 1),
		{Op: vm.OpHalt},
	}}
	require.Equal(t, 2, Run(p))
	assert.Equal(t, []vm.Instruction{{Op: vm.OpHalt}}, p.Code)
}

func TestOnlyNoOpJumps(t *testing.T) {
	p := &vm.Program{Code: []vm.Instruction{jump(vm.OpJumpBy, 1)}}
	require.Equal(t, 1, Run(p))
	assert.Empty(t, p.Code)
	sum := p.Fingerprint()

	before := append(p.Code[:0:0], p.Code...)
	require.Equal(t, 0, Run(p))
	assert.Equal(t, sum, p.Fingerprint())
	if diff := cmp.Diff(before, p.Code); diff != "" {
		t.Errorf("second run changed the code (-first +second):\n%s", diff)
	}
}

func TestEntriesAndDebugRecordsFollowCode(t *testing.T) {
	p := &vm.Program{
		// 1 is removed, 3 pushes the address of 4 and 5 calls 4.
		Code: []vm.Instruction{
			push(1),
			jump(vm.OpJumpBy, 1),
			{Op: vm.OpHalt},
			{Op: vm.OpPushFunction, Operand: vm.Int(4)},
			{Op: vm.OpReturn},
			{Op: vm.OpCall, Mode: vm.Relative, Operand: vm.Int(-1)},
		},
		Functions: []vm.Entry{{Name: "main", Offset: 0}, {Name: "f", Offset: 4}},
		Debug: []vm.DebugRecord{
			{First: 0, Last: 2},
			{First: 1, Last: 1},
			{First: 3, Last: 5},
		},
	}
	require.Equal(t, 1, Run(p))

	assert.Equal(t, 0, p.Functions[0].Offset)
	assert.Equal(t, 3, p.Functions[1].Offset)
	assert.Equal(t, int64(3), p.Code[2].Operand.I)
	assert.Equal(t, 3, p.Code[4].Target(4))
	assert.Equal(t, []vm.DebugRecord{
		{First: 0, Last: 1},
		{First: 1, Last: 0},
		{First: 2, Last: 4},
	}, p.Debug)
}

// genProgram draws a buffer of pushes, jumps, conditional jumps, relative
// calls and function pushes whose targets all lie inside [0, n].
func genProgram(t *rapid.T) *vm.Program {
	n := rapid.IntRange(1, 40).Draw(t, "n")
	code := make([]vm.Instruction, n)
	for i := range code {
		switch rapid.IntRange(0, 5).Draw(t, fmt.Sprintf("kind%d", i)) {
		case 0:
			code[i] = push(int64(i))
		case 1:
			code[i] = jump(vm.OpJumpBy, 1)
		case 2, 3:
			op := rapid.SampledFrom([]vm.Op{vm.OpJumpBy, vm.OpJumpByIfTrue, vm.OpJumpByIfFalse}).Draw(t, fmt.Sprintf("op%d", i))
			target := rapid.IntRange(0, n).Draw(t, fmt.Sprintf("target%d", i))
			code[i] = jump(op, int64(target-i))
		case 4:
			target := rapid.IntRange(0, n).Draw(t, fmt.Sprintf("call%d", i))
			code[i] = vm.Instruction{Op: vm.OpCall, Mode: vm.Relative, Operand: vm.Int(int64(target - i))}
		case 5:
			target := rapid.IntRange(0, n-1).Draw(t, fmt.Sprintf("fn%d", i))
			code[i] = vm.Instruction{Op: vm.OpPushFunction, Operand: vm.Int(int64(target))}
		}
		code[i].Comment = fmt.Sprintf("i%d", i)
	}
	p := &vm.Program{Code: code}
	entries := rapid.IntRange(0, 3).Draw(t, "entries")
	for e := 0; e < entries; e++ {
		off := rapid.IntRange(0, n-1).Draw(t, fmt.Sprintf("entry%d", e))
		p.Functions = append(p.Functions, vm.Entry{Name: fmt.Sprintf("f%d", e), Offset: off})
	}
	return p
}

// survivor finds, in the optimized code, the first instruction that was at
// or after old index t before optimization. Instructions are identified by
// their comment; "end" stands for one past the last instruction.
func survivor(before []vm.Instruction, after map[string]int, afterLen, t int) int {
	for ; t < len(before); t++ {
		if idx, ok := after[before[t].Comment]; ok {
			return idx
		}
	}
	return afterLen
}

func TestJumpIntegrity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := genProgram(t)
		before := append([]vm.Instruction(nil), p.Code...)
		entries := append([]vm.Entry(nil), p.Functions...)

		removed := Run(p)
		require.Equal(t, len(before)-removed, len(p.Code))

		after := make(map[string]int, len(p.Code))
		for i, in := range p.Code {
			after[in.Comment] = i
		}
		oldIndex := make(map[string]int, len(before))
		for i, in := range before {
			oldIndex[in.Comment] = i
		}

		for i, in := range p.Code {
			require.False(t, IsNoOpJump(in), "no-op jump left at %d", i)
			old := before[oldIndex[in.Comment]]
			switch {
			case in.IsRelativeTransfer():
				want := survivor(before, after, len(p.Code), old.Target(oldIndex[in.Comment]))
				require.Equal(t, want, in.Target(i), "transfer %s at %d", in.Comment, i)
			case in.Op == vm.OpPushFunction:
				want := survivor(before, after, len(p.Code), old.Operand.AsInt())
				require.Equal(t, want, in.Operand.AsInt(), "function address %s at %d", in.Comment, i)
			default:
				require.Equal(t, old, in)
			}
		}
		for i, e := range p.Functions {
			want := survivor(before, after, len(p.Code), entries[i].Offset)
			require.Equal(t, want, e.Offset, "entry %s", e.Name)
		}
	})
}

func TestIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := genProgram(t)
		Run(p)
		once := append(p.Code[:0:0], p.Code...)
		sum := p.Fingerprint()

		require.Equal(t, 0, Run(p))
		require.Equal(t, sum, p.Fingerprint())
		if diff := cmp.Diff(once, p.Code); diff != "" {
			t.Fatalf("second run changed the code (-first +second):\n%s", diff)
		}
	})
}
