package token

type Type int

// Operator types. The zero Type is not an operator.
const (
	_ Type = iota
	Plus
	Minus
	Star
	Slash
	Rem
	And
	Or
	Xor
	Shl
	Shr
	EqEq
	Neq
	Lt
	Gt
	Gte
	Lte
	AndAnd
	OrOr
	Not
	Complement
)

var operatorStrings = map[Type]string{
	Plus:       "+",
	Minus:      "-",
	Star:       "*",
	Slash:      "/",
	Rem:        "%",
	And:        "&",
	Or:         "|",
	Xor:        "^",
	Shl:        "<<",
	Shr:        ">>",
	EqEq:       "==",
	Neq:        "!=",
	Lt:         "<",
	Gt:         ">",
	Gte:        ">=",
	Lte:        "<=",
	AndAnd:     "&&",
	OrOr:       "||",
	Not:        "!",
	Complement: "~",
}

func (t Type) String() string {
	if s, ok := operatorStrings[t]; ok {
		return s
	}
	return "unknown"
}

// Token is the source anchor every AST node carries. The generator only uses
// its position; Type and Value are kept for diagnostics.
type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
