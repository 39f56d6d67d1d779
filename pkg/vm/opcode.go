// Package vm defines the instruction set of the stack machine the code
// generator targets, the finished program image, and a reference interpreter.
package vm

type Op int

const (
	OpNop Op = iota
	OpComment
	OpSetDebugTag
	OpPush
	OpPushFunction
	OpLoad
	OpStore
	OpPop
	OpAlloc
	OpFree
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg
	OpCEq
	OpCNeq
	OpCLt
	OpCLe
	OpCGt
	OpCGe
	OpNot
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpComplement
	OpToFloat
	OpToInt
	OpJumpBy
	OpJumpByIfTrue
	OpJumpByIfFalse
	OpCall
	OpCallBuiltin
	OpCallExternal
	OpReturn
	OpHalt
)

var opNames = [...]string{
	OpNop:           "NOP",
	OpComment:       "COMMENT",
	OpSetDebugTag:   "SET_DEBUG_TAG",
	OpPush:          "PUSH",
	OpPushFunction:  "PUSH_FUNCTION",
	OpLoad:          "LOAD",
	OpStore:         "STORE",
	OpPop:           "POP",
	OpAlloc:         "ALLOC",
	OpFree:          "FREE",
	OpAdd:           "ADD",
	OpSub:           "SUB",
	OpMul:           "MUL",
	OpDiv:           "DIV",
	OpRem:           "REM",
	OpNeg:           "NEG",
	OpCEq:           "EQ",
	OpCNeq:          "NEQ",
	OpCLt:           "LT",
	OpCLe:           "LE",
	OpCGt:           "GT",
	OpCGe:           "GE",
	OpNot:           "NOT",
	OpAnd:           "AND",
	OpOr:            "OR",
	OpXor:           "XOR",
	OpShl:           "SHL",
	OpShr:           "SHR",
	OpComplement:    "COMPL",
	OpToFloat:       "TO_FLOAT",
	OpToInt:         "TO_INT",
	OpJumpBy:        "JUMP_BY",
	OpJumpByIfTrue:  "JUMP_BY_IF_TRUE",
	OpJumpByIfFalse: "JUMP_BY_IF_FALSE",
	OpCall:          "CALL",
	OpCallBuiltin:   "CALL_BUILTIN",
	OpCallExternal:  "CALL_EXTERNAL",
	OpReturn:        "RETURN",
	OpHalt:          "HALT",
}

func (op Op) String() string {
	if op >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return "OP?"
}

// IsJump reports whether op transfers control by a relative distance.
func (op Op) IsJump() bool {
	return op == OpJumpBy || op == OpJumpByIfTrue || op == OpJumpByIfFalse
}

// IsPseudo reports whether op has no effect at run time.
func (op Op) IsPseudo() bool {
	return op == OpNop || op == OpComment || op == OpSetDebugTag
}

// AddressingMode selects how LOAD, STORE and CALL interpret their operand.
type AddressingMode int

const (
	NoMode AddressingMode = iota
	// Absolute addresses stack slot operand, counted from the bottom.
	Absolute
	// BasePointerRelative addresses stack slot BP+operand.
	BasePointerRelative
	// Relative addresses stack slot SP+operand, so -1 is the top.
	Relative
	// RuntimeComputed pops a heap pointer and addresses pointer+operand.
	RuntimeComputed
	// Pop takes the address from the top of the stack.
	Pop
)

var modeNames = [...]string{
	NoMode:              "",
	Absolute:            "abs",
	BasePointerRelative: "bp",
	Relative:            "rel",
	RuntimeComputed:     "heap",
	Pop:                 "pop",
}

func (m AddressingMode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "mode?"
}
