package codegen

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xplshn/sbc/pkg/ast"
	"github.com/xplshn/sbc/pkg/config"
	"github.com/xplshn/sbc/pkg/token"
	"github.com/xplshn/sbc/pkg/util"
	"github.com/xplshn/sbc/pkg/vm"
)

// Small constructors for checked trees. Every node gets a distinct line so
// diagnostics and debug records can be told apart.

var line int

func tok() token.Token {
	line++
	return token.Token{Line: line, Column: 1}
}

func num(v int64) *ast.IntLit { return &ast.IntLit{Tok: tok(), Value: v} }
func str(s string) *ast.StringLit { return &ast.StringLit{Tok: tok(), Value: s} }
func boolean(b bool) *ast.BoolLit { return &ast.BoolLit{Tok: tok(), Value: b} }
func id(name string, t *ast.Type) *ast.Ident { return &ast.Ident{Tok: tok(), Name: name, Typ: t} }

func bin(op token.Type, l, r ast.Expr, t *ast.Type) *ast.Binary {
	return &ast.Binary{Tok: tok(), Op: op, Left: l, Right: r, Typ: t}
}

func field(x ast.Expr, name string, t *ast.Type) *ast.FieldAccess {
	return &ast.FieldAccess{Tok: tok(), X: x, Name: name, Typ: t}
}

func call(f *ast.FuncDecl, args ...ast.Expr) *ast.Call {
	return &ast.Call{Tok: tok(), Name: f.Name, Target: f, Args: args, Typ: f.Return}
}

func method(recv ast.Expr, f *ast.FuncDecl, args ...ast.Expr) *ast.Call {
	c := call(f, args...)
	c.Receiver = recv
	return c
}

func builtin(name string, ret *ast.Type, args ...ast.Expr) *ast.Call {
	return &ast.Call{Tok: tok(), Name: name, Args: args, Typ: ret}
}

func printStmt(x ast.Expr) ast.Stmt { return expr(builtin("println", ast.TypeVoid, x)) }

func param(name string, t *ast.Type) *ast.Param { return &ast.Param{Tok: tok(), Name: name, Typ: t} }

func fn(name string, ret *ast.Type, params []*ast.Param, body ...ast.Stmt) *ast.FuncDecl {
	return &ast.FuncDecl{
		Tok:       tok(),
		Name:      name,
		Kind:      ast.KindFunction,
		Params:    params,
		Return:    ret,
		Body:      block(body...),
		TimesUsed: 1,
	}
}

func member(owner *ast.Type, kind ast.CallableKind, name string, ret *ast.Type, params []*ast.Param, body ...ast.Stmt) *ast.FuncDecl {
	f := fn(name, ret, params, body...)
	f.Kind, f.Owner = kind, owner
	return f
}

func block(stmts ...ast.Stmt) *ast.Block { return &ast.Block{Tok: tok(), Stmts: stmts} }
func expr(x ast.Expr) *ast.ExprStmt { return &ast.ExprStmt{Tok: tok(), X: x} }
func ret(x ast.Expr) *ast.Return { return &ast.Return{Tok: tok(), Value: x} }

func decl(name string, t *ast.Type, init ast.Expr) *ast.VarDecl {
	return &ast.VarDecl{Tok: tok(), Name: name, Typ: t, Init: init}
}

func assign(target, value ast.Expr) *ast.Assign {
	return &ast.Assign{Tok: tok(), Target: target, Value: value}
}

// quietConfig turns off everything that only decorates the output, so
// listings are easy to compare.
func quietConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatComments, false)
	cfg.SetFeature(config.FeatDebugInfo, false)
	cfg.SetFeature(config.FeatOptimize, false)
	return cfg
}

func compile(t *testing.T, cfg *config.Config, prog *ast.Program) (*vm.Program, *Context, *util.Diagnostics) {
	t.Helper()
	diags := util.NewDiagnostics(nil)
	ctx := NewContext(cfg, diags, nil)
	p, err := ctx.Generate(prog)
	require.NoError(t, err)
	return p, ctx, diags
}

// compileErrors compiles a program that must be rejected and returns the
// diagnostics.
func compileErrors(t *testing.T, prog *ast.Program) *util.Diagnostics {
	t.Helper()
	diags := util.NewDiagnostics(nil)
	_, err := NewContext(quietConfig(), diags, nil).Generate(prog)
	require.Error(t, err)
	return diags
}

// execute runs p to completion and returns the machine and its output.
func execute(t *testing.T, p *vm.Program) (*vm.Machine, string) {
	t.Helper()
	var out bytes.Buffer
	m := vm.NewMachine(p, &out)
	require.NoError(t, m.Run(), "program:\n%s", p.Listing())
	return m, out.String()
}

func messages(diags *util.Diagnostics, sev util.Severity) []string {
	var list []string
	for _, d := range diags.List {
		if d.Severity == sev {
			list = append(list, d.Message)
		}
	}
	return list
}
