// Package optimizer rewrites finished programs. Its only pass deletes
// unconditional jumps to the next instruction.
package optimizer

import (
	"github.com/golang/glog"
	"github.com/xplshn/sbc/pkg/vm"
)

// Run deletes every JUMP_BY +1 from p, scanning back to front and repeating
// until none is left, and returns how many instructions it removed. Every
// relative jump and call, PUSH_FUNCTION address, callable entry and debug
// record keeps pointing at the same instruction. A jump whose target is the
// deleted instruction is retargeted to the instruction that followed it.
func Run(p *vm.Program) int {
	removed := 0
	for {
		n := pass(p)
		if n == 0 {
			break
		}
		removed += n
	}
	if removed > 0 {
		glog.V(1).Infof("optimizer: removed %d no-op jumps, %d instructions left", removed, len(p.Code))
	}
	return removed
}

// IsNoOpJump matches the one pattern the optimizer removes.
func IsNoOpJump(in vm.Instruction) bool {
	return in.Op == vm.OpJumpBy && in.Operand.Kind == vm.IntValue && in.Operand.I == 1
}

func pass(p *vm.Program) int {
	n := 0
	for i := len(p.Code) - 1; i >= 0; i-- {
		if IsNoOpJump(p.Code[i]) {
			Remove(p, i)
			n++
		}
	}
	return n
}

// Remove deletes the instruction at k and repairs every reference to code
// positions in p.
func Remove(p *vm.Program, k int) {
	// New index of old index x, x != k.
	moved := func(x int) int {
		if x > k {
			return x - 1
		}
		return x
	}

	for i := range p.Code {
		if i == k {
			continue
		}
		in := &p.Code[i]
		switch {
		case in.IsRelativeTransfer():
			target := in.Target(i)
			// A target of k now names its successor, which moves into k.
			in.Operand = vm.Int(int64(moved(target) - moved(i)))
		case in.Op == vm.OpPushFunction:
			in.Operand = vm.Int(int64(moved(in.Operand.AsInt())))
		}
	}

	for i := range p.Functions {
		if p.Functions[i].Offset > k {
			p.Functions[i].Offset--
		}
	}
	for i := range p.Debug {
		d := &p.Debug[i]
		d.First = moved(d.First)
		if d.Last >= k {
			d.Last--
		}
	}

	p.Code = append(p.Code[:k], p.Code[k+1:]...)
}
