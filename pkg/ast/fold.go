package ast

import "github.com/xplshn/sbc/pkg/token"

// Constant is the compile-time value of a predictable expression.
type Constant struct {
	Kind  TypeKind
	Int   int64
	Float float64
	Bool  bool
	Str   string
}

func intConst(v int64) Constant     { return Constant{Kind: TYPE_INT, Int: v} }
func floatConst(v float64) Constant { return Constant{Kind: TYPE_FLOAT, Float: v} }
func boolConst(v bool) Constant     { return Constant{Kind: TYPE_BOOL, Bool: v} }

// Truthy reports whether the constant counts as true in a condition.
func (c Constant) Truthy() bool {
	switch c.Kind {
	case TYPE_BOOL: return c.Bool
	case TYPE_INT: return c.Int != 0
	case TYPE_FLOAT: return c.Float != 0
	case TYPE_STRING: return c.Str != ""
	}
	return false
}

// Predict evaluates e at compile time when it is built only from literals and
// built-in operators. Overloaded operators, calls and variables make it
// unpredictable. Division by zero is left to the runtime.
func Predict(e Expr) (Constant, bool) {
	switch e := e.(type) {
	case *IntLit:
		return intConst(e.Value), true
	case *FloatLit:
		return floatConst(e.Value), true
	case *BoolLit:
		return boolConst(e.Value), true
	case *StringLit:
		return Constant{Kind: TYPE_STRING, Str: e.Value}, true
	case *Cast:
		c, ok := Predict(e.X)
		if !ok {
			return Constant{}, false
		}
		return convert(c, e.To)
	case *Unary:
		if e.Operator != nil {
			return Constant{}, false
		}
		c, ok := Predict(e.X)
		if !ok {
			return Constant{}, false
		}
		return foldUnary(e.Op, c)
	case *Binary:
		if e.Operator != nil {
			return Constant{}, false
		}
		l, ok := Predict(e.Left)
		if !ok {
			return Constant{}, false
		}
		// Short-circuit operators only need the left side when it decides.
		if e.Op == token.AndAnd && l.Kind == TYPE_BOOL && !l.Bool {
			return boolConst(false), true
		}
		if e.Op == token.OrOr && l.Kind == TYPE_BOOL && l.Bool {
			return boolConst(true), true
		}
		r, ok := Predict(e.Right)
		if !ok {
			return Constant{}, false
		}
		return foldBinary(e.Op, l, r)
	}
	return Constant{}, false
}

func convert(c Constant, to *Type) (Constant, bool) {
	switch {
	case c.Kind == to.Kind:
		return c, true
	case c.Kind == TYPE_INT && to.Kind == TYPE_FLOAT:
		return floatConst(float64(c.Int)), true
	case c.Kind == TYPE_FLOAT && to.Kind == TYPE_INT:
		return intConst(int64(c.Float)), true
	}
	return Constant{}, false
}

func foldUnary(op token.Type, c Constant) (Constant, bool) {
	switch c.Kind {
	case TYPE_INT:
		switch op {
		case token.Minus: return intConst(-c.Int), true
		case token.Complement: return intConst(^c.Int), true
		}
	case TYPE_FLOAT:
		if op == token.Minus {
			return floatConst(-c.Float), true
		}
	case TYPE_BOOL:
		if op == token.Not {
			return boolConst(!c.Bool), true
		}
	}
	return Constant{}, false
}

func foldBinary(op token.Type, l, r Constant) (Constant, bool) {
	if l.Kind != r.Kind {
		return Constant{}, false
	}
	switch l.Kind {
	case TYPE_INT:
		return foldInt(op, l.Int, r.Int)
	case TYPE_FLOAT:
		return foldFloat(op, l.Float, r.Float)
	case TYPE_BOOL:
		a, b := l.Bool, r.Bool
		switch op {
		case token.AndAnd: return boolConst(a && b), true
		case token.OrOr: return boolConst(a || b), true
		case token.EqEq: return boolConst(a == b), true
		case token.Neq: return boolConst(a != b), true
		}
	case TYPE_STRING:
		a, b := l.Str, r.Str
		switch op {
		case token.Plus: return Constant{Kind: TYPE_STRING, Str: a + b}, true
		case token.EqEq: return boolConst(a == b), true
		case token.Neq: return boolConst(a != b), true
		}
	}
	return Constant{}, false
}

func foldInt(op token.Type, l, r int64) (Constant, bool) {
	switch op {
	case token.Plus: return intConst(l + r), true
	case token.Minus: return intConst(l - r), true
	case token.Star: return intConst(l * r), true
	case token.And: return intConst(l & r), true
	case token.Or: return intConst(l | r), true
	case token.Xor: return intConst(l ^ r), true
	case token.Shl: return intConst(l << uint64(r)), true
	case token.Shr: return intConst(l >> uint64(r)), true
	case token.EqEq: return boolConst(l == r), true
	case token.Neq: return boolConst(l != r), true
	case token.Lt: return boolConst(l < r), true
	case token.Gt: return boolConst(l > r), true
	case token.Lte: return boolConst(l <= r), true
	case token.Gte: return boolConst(l >= r), true
	case token.Slash:
		if r == 0 {
			return Constant{}, false
		}
		return intConst(l / r), true
	case token.Rem:
		if r == 0 {
			return Constant{}, false
		}
		return intConst(l % r), true
	}
	return Constant{}, false
}

func foldFloat(op token.Type, l, r float64) (Constant, bool) {
	switch op {
	case token.Plus: return floatConst(l + r), true
	case token.Minus: return floatConst(l - r), true
	case token.Star: return floatConst(l * r), true
	case token.Slash:
		if r == 0 {
			return Constant{}, false
		}
		return floatConst(l / r), true
	case token.EqEq: return boolConst(l == r), true
	case token.Neq: return boolConst(l != r), true
	case token.Lt: return boolConst(l < r), true
	case token.Gt: return boolConst(l > r), true
	case token.Lte: return boolConst(l <= r), true
	case token.Gte: return boolConst(l >= r), true
	}
	return Constant{}, false
}
