package ast

import "strings"

// TypeKind defines the kind of a Type
type TypeKind int

const (
	TYPE_VOID TypeKind = iota
	TYPE_INT
	TYPE_FLOAT
	TYPE_BOOL
	TYPE_STRING
	TYPE_NULL
	TYPE_ANY
	TYPE_STRUCT
	TYPE_CLASS
	TYPE_FUNC
)

// Type is a resolved semantic type as produced by the type checker.
// Structs are stored inline on the stack; classes live on the heap and are
// referred to through a one-cell pointer.
type Type struct {
	Kind   TypeKind
	Name   string
	Fields []*Field // struct and class members, in declaration order
	Params []*Type  // function types
	Return *Type    // function types
}

type Field struct {
	Name      string
	Type      *Type
	Protected bool
}

// Pre-defined types
var (
	TypeVoid   = &Type{Kind: TYPE_VOID, Name: "void"}
	TypeInt    = &Type{Kind: TYPE_INT, Name: "int"}
	TypeFloat  = &Type{Kind: TYPE_FLOAT, Name: "float"}
	TypeBool   = &Type{Kind: TYPE_BOOL, Name: "bool"}
	TypeString = &Type{Kind: TYPE_STRING, Name: "string"}
	TypeNull   = &Type{Kind: TYPE_NULL, Name: "null"}
	TypeAny    = &Type{Kind: TYPE_ANY, Name: "any"}
)

func NewStruct(name string, fields ...*Field) *Type {
	return &Type{Kind: TYPE_STRUCT, Name: name, Fields: fields}
}

func NewClass(name string, fields ...*Field) *Type {
	return &Type{Kind: TYPE_CLASS, Name: name, Fields: fields}
}

func NewFuncType(ret *Type, params ...*Type) *Type {
	return &Type{Kind: TYPE_FUNC, Params: params, Return: ret}
}

// StackSize is the number of stack cells a value of the type occupies.
// Class values are a single pointer cell regardless of their field count.
func (t *Type) StackSize() int {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case TYPE_VOID:
		return 0
	case TYPE_STRUCT:
		size := 0
		for _, f := range t.Fields {
			size += f.Type.StackSize()
		}
		return size
	}
	return 1
}

// IsBoxed reports whether values of the type reside on the heap.
func (t *Type) IsBoxed() bool { return t != nil && t.Kind == TYPE_CLASS }

func (t *Type) IsVoid() bool { return t == nil || t.Kind == TYPE_VOID }

func (t *Type) IsRecord() bool {
	return t != nil && (t.Kind == TYPE_STRUCT || t.Kind == TYPE_CLASS)
}

// Field looks up a member by name and returns it with its declaration index.
func (t *Type) Field(name string) (*Field, int) {
	if t == nil {
		return nil, -1
	}
	for i, f := range t.Fields {
		if f.Name == name {
			return f, i
		}
	}
	return nil, -1
}

func (t *Type) String() string {
	if t == nil {
		return "void"
	}
	if t.Kind == TYPE_FUNC {
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = p.String()
		}
		return "func(" + strings.Join(params, ", ") + ") " + t.Return.String()
	}
	return t.Name
}

// Identical reports whether two types denote the same type. Records are
// nominal, function types structural.
func Identical(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return a.IsVoid() && b.IsVoid()
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case TYPE_STRUCT, TYPE_CLASS:
		return a.Name == b.Name
	case TYPE_FUNC:
		if len(a.Params) != len(b.Params) || !Identical(a.Return, b.Return) {
			return false
		}
		for i := range a.Params {
			if !Identical(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	}
	return true
}

// AssignableTo reports whether a value of type src may be stored in dst.
// An any slot is one cell and only takes single-cell values. An int widens
// to float.
func AssignableTo(src, dst *Type) bool {
	if Identical(src, dst) {
		return true
	}
	if dst != nil && dst.Kind == TYPE_ANY {
		return src.StackSize() == 1
	}
	if src != nil && dst != nil && src.Kind == TYPE_INT && dst.Kind == TYPE_FLOAT {
		return true
	}
	if src != nil && src.Kind == TYPE_NULL {
		return dst != nil && (dst.Kind == TYPE_CLASS || dst.Kind == TYPE_FUNC || dst.Kind == TYPE_STRING)
	}
	return false
}
