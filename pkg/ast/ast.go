// Package ast defines the typed syntax tree consumed by the code generator.
// Every node has already been through the type checker: expressions carry
// their resolved type and declarations their resolved parameter and field
// types.
package ast

import "github.com/xplshn/sbc/pkg/token"

// Node is implemented by every expression and statement.
type Node interface {
	Pos() token.Token
}

// Expr is the closed set of expression nodes. The unexported marker keeps
// foreign types out of the generator's type switches.
type Expr interface {
	Node
	Type() *Type
	exprNode()
}

// Stmt is the closed set of statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// --- Expressions ---

type IntLit struct {
	Tok   token.Token
	Value int64
}

type FloatLit struct {
	Tok   token.Token
	Value float64
}

type BoolLit struct {
	Tok   token.Token
	Value bool
}

type StringLit struct {
	Tok   token.Token
	Value string
}

// NullLit is the null reference. Typ is the class or function type the
// checker inferred from context, or TypeNull.
type NullLit struct {
	Tok token.Token
	Typ *Type
}

// Ident names a variable, a parameter or, when Typ is a function type and no
// variable of that name is visible, a function used as a value.
type Ident struct {
	Tok  token.Token
	Name string
	Typ  *Type
}

type This struct {
	Tok token.Token
	Typ *Type
}

// FieldAccess is X.Name on a struct or class value.
type FieldAccess struct {
	Tok  token.Token
	X    Expr
	Name string
	Typ  *Type
}

// Unary is Op X. Operator is set by the checker when the operator is
// overloaded for X's type.
type Unary struct {
	Tok      token.Token
	Op       token.Type
	X        Expr
	Typ      *Type
	Operator *FuncDecl
}

type Binary struct {
	Tok         token.Token
	Op          token.Type
	Left, Right Expr
	Typ         *Type
	Operator    *FuncDecl
}

// Call invokes a named function, or a method when Receiver is non-nil.
// Target is the declaration chosen by overload resolution; it is nil for
// builtins.
type Call struct {
	Tok      token.Token
	Name     string
	Receiver Expr
	Args     []Expr
	Target   *FuncDecl
	Typ      *Type
}

// CallValue invokes a function-typed value.
type CallValue struct {
	Tok    token.Token
	Callee Expr
	Args   []Expr
	Typ    *Type
}

// Index is X[Index]. X must be a class with an indexer.
type Index struct {
	Tok     token.Token
	X       Expr
	Index   Expr
	Indexer *FuncDecl
	Typ     *Type
}

// New allocates an instance of Class and runs Constructor, if any.
type New struct {
	Tok         token.Token
	Class       *Type
	Args        []Expr
	Constructor *FuncDecl
}

// Clone copies a class instance, through its cloner when it has one.
type Clone struct {
	Tok    token.Token
	X      Expr
	Cloner *FuncDecl
}

type Cast struct {
	Tok token.Token
	X   Expr
	To  *Type
}

func (e *IntLit) Pos() token.Token      { return e.Tok }
func (e *FloatLit) Pos() token.Token    { return e.Tok }
func (e *BoolLit) Pos() token.Token     { return e.Tok }
func (e *StringLit) Pos() token.Token   { return e.Tok }
func (e *NullLit) Pos() token.Token     { return e.Tok }
func (e *Ident) Pos() token.Token       { return e.Tok }
func (e *This) Pos() token.Token        { return e.Tok }
func (e *FieldAccess) Pos() token.Token { return e.Tok }
func (e *Unary) Pos() token.Token       { return e.Tok }
func (e *Binary) Pos() token.Token      { return e.Tok }
func (e *Call) Pos() token.Token        { return e.Tok }
func (e *CallValue) Pos() token.Token   { return e.Tok }
func (e *Index) Pos() token.Token       { return e.Tok }
func (e *New) Pos() token.Token         { return e.Tok }
func (e *Clone) Pos() token.Token       { return e.Tok }
func (e *Cast) Pos() token.Token        { return e.Tok }

func (e *IntLit) Type() *Type    { return TypeInt }
func (e *FloatLit) Type() *Type  { return TypeFloat }
func (e *BoolLit) Type() *Type   { return TypeBool }
func (e *StringLit) Type() *Type { return TypeString }
func (e *NullLit) Type() *Type {
	if e.Typ == nil {
		return TypeNull
	}
	return e.Typ
}
func (e *Ident) Type() *Type       { return e.Typ }
func (e *This) Type() *Type        { return e.Typ }
func (e *FieldAccess) Type() *Type { return e.Typ }
func (e *Unary) Type() *Type       { return e.Typ }
func (e *Binary) Type() *Type      { return e.Typ }
func (e *Call) Type() *Type        { return e.Typ }
func (e *CallValue) Type() *Type   { return e.Typ }
func (e *Index) Type() *Type       { return e.Typ }
func (e *New) Type() *Type         { return e.Class }
func (e *Clone) Type() *Type       { return e.X.Type() }
func (e *Cast) Type() *Type        { return e.To }

func (*IntLit) exprNode()      {}
func (*FloatLit) exprNode()    {}
func (*BoolLit) exprNode()     {}
func (*StringLit) exprNode()   {}
func (*NullLit) exprNode()     {}
func (*Ident) exprNode()       {}
func (*This) exprNode()        {}
func (*FieldAccess) exprNode() {}
func (*Unary) exprNode()       {}
func (*Binary) exprNode()      {}
func (*Call) exprNode()        {}
func (*CallValue) exprNode()   {}
func (*Index) exprNode()       {}
func (*New) exprNode()         {}
func (*Clone) exprNode()       {}
func (*Cast) exprNode()        {}

// --- Statements ---

type ExprStmt struct {
	Tok token.Token
	X   Expr
}

// VarDecl declares a variable. A VarDecl directly in Program.Body declares a
// global; anywhere else it declares a stack local.
type VarDecl struct {
	Tok  token.Token
	Name string
	Typ  *Type
	Init Expr
}

type Assign struct {
	Tok    token.Token
	Target Expr
	Value  Expr
}

type Block struct {
	Tok   token.Token
	Stmts []Stmt
}

type If struct {
	Tok  token.Token
	Cond Expr
	Then Stmt
	Else Stmt
}

type While struct {
	Tok  token.Token
	Cond Expr
	Body Stmt
}

// For runs Init once in its own scope, then Body and Post while Cond holds.
// A nil Cond loops forever.
type For struct {
	Tok  token.Token
	Init Stmt
	Cond Expr
	Post Stmt
	Body Stmt
}

type Break struct{ Tok token.Token }
type Continue struct{ Tok token.Token }

type Return struct {
	Tok   token.Token
	Value Expr
}

// Delete runs the destructor of a class instance and frees it.
type Delete struct {
	Tok        token.Token
	X          Expr
	Destructor *FuncDecl
}

func (s *ExprStmt) Pos() token.Token { return s.Tok }
func (s *VarDecl) Pos() token.Token  { return s.Tok }
func (s *Assign) Pos() token.Token   { return s.Tok }
func (s *Block) Pos() token.Token    { return s.Tok }
func (s *If) Pos() token.Token       { return s.Tok }
func (s *While) Pos() token.Token    { return s.Tok }
func (s *For) Pos() token.Token      { return s.Tok }
func (s *Break) Pos() token.Token    { return s.Tok }
func (s *Continue) Pos() token.Token { return s.Tok }
func (s *Return) Pos() token.Token   { return s.Tok }
func (s *Delete) Pos() token.Token   { return s.Tok }

func (*ExprStmt) stmtNode() {}
func (*VarDecl) stmtNode()  {}
func (*Assign) stmtNode()   {}
func (*Block) stmtNode()    {}
func (*If) stmtNode()       {}
func (*While) stmtNode()    {}
func (*For) stmtNode()      {}
func (*Break) stmtNode()    {}
func (*Continue) stmtNode() {}
func (*Return) stmtNode()   {}
func (*Delete) stmtNode()   {}

// --- Declarations ---

// CallableKind distinguishes plain functions from the general functions
// attached to a class.
type CallableKind int

const (
	KindFunction CallableKind = iota
	KindMethod
	KindOperator
	KindConstructor
	KindDestructor
	KindCloner
	KindIndexer
)

var callableKindNames = [...]string{
	KindFunction:    "function",
	KindMethod:      "method",
	KindOperator:    "operator",
	KindConstructor: "constructor",
	KindDestructor:  "destructor",
	KindCloner:      "cloner",
	KindIndexer:     "indexer",
}

func (k CallableKind) String() string {
	if int(k) < len(callableKindNames) {
		return callableKindNames[k]
	}
	return "unknown"
}

// HasReceiver reports whether callables of this kind take an implicit this.
func (k CallableKind) HasReceiver() bool {
	return k != KindFunction && k != KindOperator
}

type Param struct {
	Tok  token.Token
	Name string
	Typ  *Type
}

// FuncDecl is one callable entity. Operators are named by their spelling.
// TimesUsed comes from the usage-counting pass.
type FuncDecl struct {
	Tok        token.Token
	Name       string
	Kind       CallableKind
	Owner      *Type
	Params     []*Param
	Return     *Type
	Body       *Block
	IsExternal bool
	Protected  bool
	TimesUsed  int
}

func (f *FuncDecl) Pos() token.Token { return f.Tok }

// ParamTypes lists the declared parameter types, excluding the receiver.
func (f *FuncDecl) ParamTypes() []*Type {
	types := make([]*Type, len(f.Params))
	for i, p := range f.Params {
		types[i] = p.Typ
	}
	return types
}

// Program is the whole checked compilation unit.
type Program struct {
	Types     []*Type // struct and class declarations
	Body      []Stmt  // top-level code, including global declarations
	Functions []*FuncDecl
}
