package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xplshn/sbc/pkg/token"
)

func lit(v int64) *IntLit { return &IntLit{Value: v} }

func bin(op token.Type, l, r Expr) *Binary { return &Binary{Op: op, Left: l, Right: r} }

func TestPredict(t *testing.T) {
	variable := &Ident{Name: "x", Typ: TypeInt}
	overloaded := bin(token.Plus, lit(1), lit(2))
	overloaded.Operator = &FuncDecl{Name: "+"}

	tests := []struct {
		name string
		expr Expr
		want Constant
		ok   bool
	}{
		{"literal", lit(4), intConst(4), true},
		{"arithmetic", bin(token.Star, bin(token.Plus, lit(1), lit(2)), lit(3)), intConst(9), true},
		{"comparison", bin(token.Lt, lit(1), lit(2)), boolConst(true), true},
		{"float", bin(token.Slash, &FloatLit{Value: 1}, &FloatLit{Value: 4}), floatConst(0.25), true},
		{"strings", bin(token.Plus, &StringLit{Value: "a"}, &StringLit{Value: "b"}), Constant{Kind: TYPE_STRING, Str: "ab"}, true},
		{"negation", &Unary{Op: token.Minus, X: lit(5)}, intConst(-5), true},
		{"not", &Unary{Op: token.Not, X: &BoolLit{Value: false}}, boolConst(true), true},
		{"cast", &Cast{X: lit(2), To: TypeFloat}, floatConst(2), true},
		{"division by zero", bin(token.Slash, lit(1), lit(0)), Constant{}, false},
		{"remainder by zero", bin(token.Rem, lit(1), lit(0)), Constant{}, false},
		{"variable", bin(token.Plus, variable, lit(1)), Constant{}, false},
		{"overloaded operator", overloaded, Constant{}, false},
		{"mixed kinds", bin(token.Plus, lit(1), &FloatLit{Value: 1}), Constant{}, false},
		{"and decided by left", bin(token.AndAnd, &BoolLit{Value: false}, variable), boolConst(false), true},
		{"or decided by left", bin(token.OrOr, &BoolLit{Value: true}, variable), boolConst(true), true},
		{"and needs right", bin(token.AndAnd, &BoolLit{Value: true}, variable), Constant{}, false},
		{"cast to string", &Cast{X: lit(2), To: TypeString}, Constant{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Predict(tt.expr)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruthy(t *testing.T) {
	assert.True(t, intConst(2).Truthy())
	assert.False(t, floatConst(0).Truthy())
	assert.True(t, Constant{Kind: TYPE_STRING, Str: "x"}.Truthy())
	assert.False(t, boolConst(false).Truthy())
	assert.False(t, Constant{Kind: TYPE_NULL}.Truthy())
}
