package vm

import (
	"fmt"
	"math"
	"strconv"
)

// Display renders v the way print shows it: strings without quotes.
func Display(v Value) string {
	if v.Kind == StringValue {
		return v.S
	}
	return v.String()
}

func (m *Machine) unary(op Op, x Value) (Value, error) {
	switch op {
	case OpNeg:
		switch x.Kind {
		case IntValue: return Int(-x.I), nil
		case FloatValue: return Float(-x.F), nil
		}
	case OpNot:
		if x.Kind == BoolValue {
			return Bool(x.I == 0), nil
		}
	case OpComplement:
		if x.Kind == IntValue {
			return Int(^x.I), nil
		}
	case OpToFloat:
		switch x.Kind {
		case IntValue: return Float(float64(x.I)), nil
		case FloatValue: return x, nil
		}
	case OpToInt:
		switch x.Kind {
		case FloatValue: return Int(int64(x.F)), nil
		case IntValue: return x, nil
		}
	}
	return Value{}, m.fault("%s on %s", op, x.Kind)
}

func equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case FloatValue:
		return a.F == b.F
	case StringValue:
		return a.S == b.S
	}
	return a.I == b.I
}

func (m *Machine) binary(op Op, a, b Value) (Value, error) {
	switch op {
	case OpCEq:
		return Bool(equal(a, b)), nil
	case OpCNeq:
		return Bool(!equal(a, b)), nil
	}

	if op == OpAdd && (a.Kind == StringValue || b.Kind == StringValue) {
		return String(Display(a) + Display(b)), nil
	}

	if a.Kind != b.Kind {
		return Value{}, m.fault("%s on %s and %s", op, a.Kind, b.Kind)
	}

	switch a.Kind {
	case IntValue:
		return m.binaryInt(op, a.I, b.I)
	case FloatValue:
		return m.binaryFloat(op, a.F, b.F)
	case BoolValue:
		x, y := a.I != 0, b.I != 0
		switch op {
		case OpAnd: return Bool(x && y), nil
		case OpOr: return Bool(x || y), nil
		case OpXor: return Bool(x != y), nil
		}
	case StringValue:
		switch op {
		case OpCLt: return Bool(a.S < b.S), nil
		case OpCLe: return Bool(a.S <= b.S), nil
		case OpCGt: return Bool(a.S > b.S), nil
		case OpCGe: return Bool(a.S >= b.S), nil
		}
	}
	return Value{}, m.fault("%s on %s", op, a.Kind)
}

func (m *Machine) binaryInt(op Op, l, r int64) (Value, error) {
	switch op {
	case OpAdd: return Int(l + r), nil
	case OpSub: return Int(l - r), nil
	case OpMul: return Int(l * r), nil
	case OpAnd: return Int(l & r), nil
	case OpOr: return Int(l | r), nil
	case OpXor: return Int(l ^ r), nil
	case OpShl: return Int(l << uint64(r)), nil
	case OpShr: return Int(l >> uint64(r)), nil
	case OpCLt: return Bool(l < r), nil
	case OpCLe: return Bool(l <= r), nil
	case OpCGt: return Bool(l > r), nil
	case OpCGe: return Bool(l >= r), nil
	case OpDiv, OpRem:
		if r == 0 {
			return Value{}, m.fault("integer division by zero")
		}
		if op == OpDiv {
			return Int(l / r), nil
		}
		return Int(l % r), nil
	}
	return Value{}, m.fault("%s on int", op)
}

func (m *Machine) binaryFloat(op Op, l, r float64) (Value, error) {
	switch op {
	case OpAdd: return Float(l + r), nil
	case OpSub: return Float(l - r), nil
	case OpMul: return Float(l * r), nil
	case OpDiv: return Float(l / r), nil
	case OpRem: return Float(math.Mod(l, r)), nil
	case OpCLt: return Bool(l < r), nil
	case OpCLe: return Bool(l <= r), nil
	case OpCGt: return Bool(l > r), nil
	case OpCGe: return Bool(l >= r), nil
	}
	return Value{}, m.fault("%s on float", op)
}

// DefaultBuiltins is the runtime side of symbols.DefaultRegistry.
func DefaultBuiltins() map[string]BuiltinFunc {
	return map[string]BuiltinFunc{
		"print": func(m *Machine, args []Value) (Value, error) {
			if m.Out != nil {
				fmt.Fprint(m.Out, Display(args[0]))
			}
			return Nil(), nil
		},
		"println": func(m *Machine, args []Value) (Value, error) {
			if m.Out != nil {
				fmt.Fprintln(m.Out, Display(args[0]))
			}
			return Nil(), nil
		},
		"sqrt": func(m *Machine, args []Value) (Value, error) {
			return Float(math.Sqrt(args[0].F)), nil
		},
		"abs": func(m *Machine, args []Value) (Value, error) {
			if args[0].I < 0 {
				return Int(-args[0].I), nil
			}
			return args[0], nil
		},
		"len": func(m *Machine, args []Value) (Value, error) {
			return Int(int64(len(args[0].S))), nil
		},
		"to_string": func(m *Machine, args []Value) (Value, error) {
			return String(Display(args[0])), nil
		},
		"to_int": func(m *Machine, args []Value) (Value, error) {
			n, err := strconv.ParseInt(args[0].S, 10, 64)
			if err != nil {
				return Value{}, err
			}
			return Int(n), nil
		},
	}
}
