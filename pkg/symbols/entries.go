package symbols

import (
	"fmt"
	"strings"

	"github.com/xplshn/sbc/pkg/ast"
)

// Unresolved is the Offset of a callable whose body has not been emitted.
const Unresolved = -1

// Variable is a declared global or local. Address is assigned by the
// generator when the declaration is emitted.
type Variable struct {
	Name    string
	Type    *ast.Type
	Global  bool
	Address int
	// OnHeap is true exactly when the value lives on the heap and the stack
	// slot holds a pointer to it.
	OnHeap bool
}

func NewVariable(name string, typ *ast.Type, global bool) *Variable {
	return &Variable{Name: name, Type: typ, Global: global, OnHeap: typ.IsBoxed()}
}

func (v *Variable) SymbolName() string { return v.Name }

// Parameter is a formal parameter of the function being generated. The
// receiver of a method is Position 0 and named "this".
type Parameter struct {
	Name     string
	Type     *ast.Type
	Position int
	Address  int
	OnHeap   bool
}

func NewParameter(name string, typ *ast.Type, position int) *Parameter {
	return &Parameter{Name: name, Type: typ, Position: position, OnHeap: typ.IsBoxed()}
}

func (p *Parameter) SymbolName() string { return p.Name }

// Function is one callable entity: a plain function, an operator, or a
// general function attached to a class.
type Function struct {
	Name   string
	Kind   ast.CallableKind
	Owner  *ast.Type
	Params []*ast.Type
	Return *ast.Type

	// Offset is the index of the first instruction of the body, set once
	// when emission of the body begins.
	Offset int
	// Emitted is set when the whole body has been generated. Calls to a
	// function that is not yet Emitted go through a forward reference.
	Emitted bool

	IsBuiltin  bool
	IsExternal bool
	Protected  bool
	TimesUsed  int
	Decl       *ast.FuncDecl
}

// FromDecl builds the table entry for a checked declaration.
func FromDecl(d *ast.FuncDecl) *Function {
	return &Function{
		Name:       d.Name,
		Kind:       d.Kind,
		Owner:      d.Owner,
		Params:     d.ParamTypes(),
		Return:     d.Return,
		Offset:     Unresolved,
		IsExternal: d.IsExternal,
		Protected:  d.Protected,
		TimesUsed:  d.TimesUsed,
		Decl:       d,
	}
}

func (f *Function) SymbolName() string { return f.Name }

func (f *Function) HasReceiver() bool { return f.Kind.HasReceiver() }

// ParamSize is the stack size of the arguments, excluding the receiver.
func (f *Function) ParamSize() int {
	size := 0
	for _, p := range f.Params {
		size += p.StackSize()
	}
	return size
}

func (f *Function) Resolved() bool { return f.Offset != Unresolved }

// Signature renders the callable for diagnostics, e.g. "Vec.add(int, int) int".
func (f *Function) Signature() string {
	var sb strings.Builder
	if f.Owner != nil {
		sb.WriteString(f.Owner.Name)
		sb.WriteString(".")
	}
	sb.WriteString(f.Name)
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	fmt.Fprintf(&sb, "(%s)", strings.Join(params, ", "))
	if !f.Return.IsVoid() {
		sb.WriteString(" ")
		sb.WriteString(f.Return.String())
	}
	return sb.String()
}

// SameParams reports whether types matches the parameter list exactly.
func (f *Function) SameParams(types []*ast.Type) bool {
	if len(types) != len(f.Params) {
		return false
	}
	for i, t := range types {
		if !ast.Identical(t, f.Params[i]) {
			return false
		}
	}
	return true
}
