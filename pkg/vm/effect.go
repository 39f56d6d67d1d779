package vm

// StackEffect is the net change in stack depth caused by executing in,
// measured from just before it to just after control comes back to the next
// instruction. A CALL is balanced by the callee's RETURN and so only counts
// what it pops itself. RETURN and HALT leave the frame and report 0.
func StackEffect(in Instruction) int {
	switch in.Op {
	case OpPush, OpPushFunction, OpAlloc:
		return 1
	case OpLoad:
		if in.Mode == RuntimeComputed {
			return 0
		}
		return 1
	case OpStore:
		if in.Mode == RuntimeComputed {
			return -2
		}
		return -1
	case OpPop:
		return -in.Operand.AsInt()
	case OpFree:
		return -1
	case OpAdd, OpSub, OpMul, OpDiv, OpRem,
		OpCEq, OpCNeq, OpCLt, OpCLe, OpCGt, OpCGe,
		OpAnd, OpOr, OpXor, OpShl, OpShr:
		return -1
	case OpJumpByIfTrue, OpJumpByIfFalse:
		return -1
	case OpCall:
		if in.Mode == Pop {
			return -1
		}
		return 0
	case OpCallBuiltin, OpCallExternal:
		// Pops the arguments and the name, pushes one result cell.
		return -in.Operand.AsInt()
	}
	return 0
}

// Depth sums StackEffect over code.
func Depth(code []Instruction) int {
	d := 0
	for _, in := range code {
		d += StackEffect(in)
	}
	return d
}
