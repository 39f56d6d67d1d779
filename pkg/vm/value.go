package vm

import (
	"fmt"
	"strconv"
)

type ValueKind uint8

const (
	NilValue ValueKind = iota
	IntValue
	FloatValue
	BoolValue
	StringValue
	PointerValue  // heap address
	FunctionValue // absolute code address
)

var valueKindNames = [...]string{"nil", "int", "float", "bool", "string", "pointer", "function"}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "value?"
}

// Value is one stack or heap cell. It is also the operand type of every
// instruction.
type Value struct {
	Kind ValueKind
	I    int64
	F    float64
	S    string
}

func Nil() Value                { return Value{} }
func Int(v int64) Value         { return Value{Kind: IntValue, I: v} }
func Float(v float64) Value     { return Value{Kind: FloatValue, F: v} }
func String(v string) Value     { return Value{Kind: StringValue, S: v} }
func Pointer(addr int) Value    { return Value{Kind: PointerValue, I: int64(addr)} }
func FunctionAt(addr int) Value { return Value{Kind: FunctionValue, I: int64(addr)} }

func Bool(v bool) Value {
	if v {
		return Value{Kind: BoolValue, I: 1}
	}
	return Value{Kind: BoolValue}
}

func (v Value) IsNil() bool { return v.Kind == NilValue }
func (v Value) AsBool() bool {
	switch v.Kind {
	case FloatValue:
		return v.F != 0
	case StringValue:
		return v.S != ""
	}
	return v.I != 0
}

// AsInt returns the integer payload; int operands are how jumps, calls and
// addressing encode their distances.
func (v Value) AsInt() int { return int(v.I) }

func (v Value) String() string {
	switch v.Kind {
	case NilValue:
		return "null"
	case IntValue:
		return strconv.FormatInt(v.I, 10)
	case FloatValue:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case BoolValue:
		return strconv.FormatBool(v.I != 0)
	case StringValue:
		return strconv.Quote(v.S)
	case PointerValue:
		return fmt.Sprintf("&%d", v.I)
	case FunctionValue:
		return fmt.Sprintf("@%d", v.I)
	}
	return "?"
}
