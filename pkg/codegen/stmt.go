package codegen

import (
	"github.com/golang/glog"
	"github.com/xplshn/sbc/pkg/ast"
	"github.com/xplshn/sbc/pkg/symbols"
	"github.com/xplshn/sbc/pkg/util"
	"github.com/xplshn/sbc/pkg/vm"
)

// codegenStmt generates one statement. Between statements the stack holds
// exactly the frame's live locals.
func (ctx *Context) codegenStmt(s ast.Stmt) {
	var onFail func()
	if d, ok := s.(*ast.VarDecl); ok {
		// Keep the name declared so later statements do not cascade.
		onFail = func() { ctx.declareLocal(d.Name, d.Typ) }
	}
	ctx.guard(s, func() { ctx.codegenStmtNode(s) }, onFail)
}

func (ctx *Context) codegenStmtNode(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.ExprStmt:
		ctx.codegenDiscard(s.X)
	case *ast.VarDecl:
		ctx.codegenVarDecl(s, false)
	case *ast.Assign:
		ctx.codegenAssign(s)
	case *ast.Block:
		ctx.codegenBlock(s)
	case *ast.If:
		ctx.codegenIf(s)
	case *ast.While:
		ctx.codegenWhile(s)
	case *ast.For:
		ctx.codegenFor(s)
	case *ast.Break:
		ctx.codegenBreak(s)
	case *ast.Continue:
		ctx.codegenContinue(s)
	case *ast.Return:
		ctx.codegenReturn(s)
	case *ast.Delete:
		ctx.codegenDelete(s)
	default:
		util.Fail("unknown statement node %T", s)
	}
}

func (ctx *Context) codegenBlock(b *ast.Block) {
	ctx.openScope()
	for _, s := range b.Stmts {
		ctx.codegenStmt(s)
	}
	ctx.closeScope()
}

// codegenScoped generates the body of a compound statement in its own scope.
func (ctx *Context) codegenScoped(s ast.Stmt) {
	if _, ok := s.(*ast.Block); ok {
		ctx.codegenStmt(s)
		return
	}
	ctx.openScope()
	ctx.codegenStmt(s)
	ctx.closeScope()
}

// codegenVarDecl evaluates the initializer, or the zero value, directly into
// the new variable's cells and then declares it, so the initializer still
// sees any outer variable of the same name.
func (ctx *Context) codegenVarDecl(d *ast.VarDecl, global bool) {
	if d.Typ.IsVoid() {
		ctx.errorf(d.Tok, "variable '%s' declared void", d.Name)
	}
	if d.Init != nil {
		if !ast.AssignableTo(d.Init.Type(), d.Typ) {
			ctx.errorf(d.Init.Pos(), "cannot initialize '%s' of type %s with a value of type %s", d.Name, d.Typ, d.Init.Type())
		}
		ctx.codegenExpr(d.Init)
		ctx.convertTo(d.Init.Type(), d.Typ)
	} else {
		ctx.emitZero(d.Typ)
	}
	if global {
		ctx.declareGlobal(d.Name, d.Typ)
		return
	}
	ctx.declareLocal(d.Name, d.Typ)
}

// convertTo widens an int value to float where a float is expected.
func (ctx *Context) convertTo(from, to *ast.Type) {
	if from != nil && to != nil && from.Kind == ast.TYPE_INT && to.Kind == ast.TYPE_FLOAT {
		ctx.emitOp(vm.OpToFloat)
	}
}

func (ctx *Context) codegenAssign(s *ast.Assign) {
	if !ctx.addressable(s.Target) {
		if _, ok := s.Target.(*ast.Ident); ok {
			ctx.codegenLocation(s.Target)
		}
		ctx.errorf(s.Tok, "cannot assign to this expression")
	}
	if _, ok := s.Target.(*ast.This); ok {
		ctx.errorf(s.Tok, "cannot assign to 'this'")
	}
	tt := s.Target.Type()
	if !ast.AssignableTo(s.Value.Type(), tt) {
		ctx.errorf(s.Tok, "cannot assign a value of type %s to %s", s.Value.Type(), tt)
	}
	loc := ctx.codegenLocation(s.Target)
	ctx.codegenExpr(s.Value)
	ctx.convertTo(s.Value.Type(), tt)
	ctx.emitStoreLocation(loc)
}

// codegenReturn stores the value into the caller's return slot, pops every
// local of the frame and returns. The scopes stay open in the bookkeeping;
// their own cleanup follows as unreachable code.
func (ctx *Context) codegenReturn(s *ast.Return) {
	if ctx.fn == nil {
		ctx.errorf(s.Tok, "return outside of a function")
	}
	ret := ctx.fn.Return
	switch {
	case s.Value == nil && !ret.IsVoid():
		ctx.errorf(s.Tok, "missing return value: %s returns %s", ctx.fn.Name, ret)
	case s.Value != nil && ret.IsVoid():
		ctx.errorf(s.Tok, "%s does not return a value", ctx.fn.Name)
	case s.Value != nil && !ast.AssignableTo(s.Value.Type(), ret):
		ctx.errorf(s.Value.Pos(), "cannot return a value of type %s from %s, which returns %s", s.Value.Type(), ctx.fn.Name, ret)
	}
	if s.Value != nil {
		ctx.codegenExpr(s.Value)
		ctx.convertTo(s.Value.Type(), ret)
		ctx.emitStoreLocation(location{vm.BasePointerRelative, ctx.retAddr, ret})
	}
	ctx.emitPop(ctx.liveCells(ctx.frameCleanup))
	ctx.emitOp(vm.OpReturn)
}

// codegenDelete runs the destructor on the object and frees it. The pointer
// is evaluated once and passed to the destructor as a copy.
func (ctx *Context) codegenDelete(s *ast.Delete) {
	t := s.X.Type()
	if !t.IsBoxed() {
		ctx.errorf(s.Tok, "cannot delete a value of type %s", t)
	}
	ctx.codegenExpr(s.X)
	if s.Destructor != nil {
		f := ctx.function(s.Destructor)
		ctx.emitCallSequence(callSite{fn: f, tok: s.Tok, receiver: ctx.dupReceiver(f)})
	}
	ctx.emitOp(vm.OpFree)
}

// codegenFunction emits one callable body. Its entry offset is fixed before
// the first instruction, and the callable counts as emitted only once the
// body is complete.
func (ctx *Context) codegenFunction(f *symbols.Function) {
	util.Assertf(!f.Resolved(), "body of %s emitted twice", f.Signature())
	ctx.fn = f
	ctx.frameBase = 0
	ctx.frameCleanup = len(ctx.cleanup)
	ctx.declareParams(f)
	defer func() {
		ctx.fn = nil
		ctx.params.Reset()
	}()

	f.Offset = len(ctx.code)
	ctx.comment("%s %s", f.Kind, f.Signature())
	ctx.guard(f.Decl.Body, func() { ctx.codegenBlock(f.Decl.Body) }, nil)
	ctx.emitOp(vm.OpReturn)
	f.Emitted = true

	util.Assertf(len(ctx.cleanup) == ctx.frameCleanup, "%s left %d scopes open", f.Name, len(ctx.cleanup)-ctx.frameCleanup)
	util.Assertf(ctx.locals.Len() == 0, "%s left %d locals declared", f.Name, ctx.locals.Len())
	glog.V(2).Infof("codegen: %s at %d..%d", f.Signature(), f.Offset, len(ctx.code)-1)
}
