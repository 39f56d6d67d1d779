package codegen

import (
	"github.com/xplshn/sbc/pkg/ast"
	"github.com/xplshn/sbc/pkg/config"
	"github.com/xplshn/sbc/pkg/token"
	"github.com/xplshn/sbc/pkg/vm"
)

func (ctx *Context) codegenCondition(cond ast.Expr) {
	t := cond.Type()
	if t == nil || (t.Kind != ast.TYPE_BOOL && t.Kind != ast.TYPE_INT) {
		ctx.errorf(cond.Pos(), "condition must be bool, not %s", t)
	}
	ctx.codegenExpr(cond)
}

func (ctx *Context) codegenIf(s *ast.If) {
	ctx.codegenCondition(s.Cond)
	skipThen := ctx.emitJump(vm.OpJumpByIfFalse)
	ctx.codegenScoped(s.Then)
	if s.Else == nil {
		ctx.patchJump(skipThen)
		return
	}
	skipElse := ctx.emitJump(vm.OpJumpBy)
	ctx.patchJump(skipThen)
	ctx.codegenScoped(s.Else)
	ctx.patchJump(skipElse)
}

// predictLoop reports whether a loop condition is known at compile time and
// warns about the two suspicious outcomes. A nil condition is always true.
func (ctx *Context) predictLoop(tok token.Token, cond ast.Expr, body ast.Stmt) (known, value bool) {
	if cond == nil {
		known, value = true, true
	} else if c, ok := ast.Predict(cond); ok {
		known, value = true, c.Truthy()
	}
	switch {
	case known && !value:
		ctx.diags.Hint(ctx.cfg, config.WarnUnreachableLoop, tok, "loop condition is always false; the body is never executed")
	case known && value && !ast.EscapesLoop(body):
		ctx.diags.Warn(ctx.cfg, config.WarnInfiniteLoop, tok, "loop condition is always true and the body never leaves the loop")
	}
	return known, value
}

func (ctx *Context) pushLoop() *loopState {
	l := &loopState{cleanupDepth: len(ctx.cleanup)}
	ctx.loops = append(ctx.loops, l)
	return l
}

// popLoop patches the pending breaks to exit and continues to next.
func (ctx *Context) popLoop(exit, next int) {
	l := ctx.loops[len(ctx.loops)-1]
	ctx.loops = ctx.loops[:len(ctx.loops)-1]
	for _, idx := range l.breaks {
		ctx.patchJumpTo(idx, exit)
	}
	for _, idx := range l.continues {
		ctx.patchJumpTo(idx, next)
	}
}

func (ctx *Context) codegenWhile(s *ast.While) {
	known, value := ctx.predictLoop(s.Tok, s.Cond, s.Body)
	if known && !value {
		return
	}

	ctx.comment("while")
	start := len(ctx.code)
	ctx.pushLoop()
	exit := -1
	if !known {
		ctx.codegenCondition(s.Cond)
		exit = ctx.emitJump(vm.OpJumpByIfFalse)
	}
	ctx.codegenScoped(s.Body)
	ctx.emitJumpBack(vm.OpJumpBy, start)
	if exit >= 0 {
		ctx.patchJump(exit)
	}
	ctx.popLoop(len(ctx.code), start)
}

// codegenFor opens a scope for the initializer, so break and continue keep
// the loop variables while leaving the body's.
func (ctx *Context) codegenFor(s *ast.For) {
	ctx.openScope()
	if s.Init != nil {
		ctx.codegenStmt(s.Init)
	}
	known, value := ctx.predictLoop(s.Tok, s.Cond, s.Body)
	if known && !value {
		ctx.closeScope()
		return
	}

	ctx.comment("for")
	start := len(ctx.code)
	ctx.pushLoop()
	exit := -1
	if !known {
		ctx.codegenCondition(s.Cond)
		exit = ctx.emitJump(vm.OpJumpByIfFalse)
	}
	ctx.codegenScoped(s.Body)
	next := len(ctx.code)
	if s.Post != nil {
		ctx.codegenStmt(s.Post)
	}
	ctx.emitJumpBack(vm.OpJumpBy, start)
	if exit >= 0 {
		ctx.patchJump(exit)
	}
	ctx.popLoop(len(ctx.code), next)
	ctx.closeScope()
}

// leaveLoop pops the locals declared since the innermost loop began and
// emits a placeholder jump for popLoop to patch.
func (ctx *Context) leaveLoop(tok token.Token, what string) (*loopState, int) {
	if len(ctx.loops) == 0 {
		ctx.errorf(tok, "'%s' outside of a loop", what)
	}
	l := ctx.loops[len(ctx.loops)-1]
	ctx.emitPop(ctx.liveCells(l.cleanupDepth))
	return l, ctx.emitJump(vm.OpJumpBy)
}

func (ctx *Context) codegenBreak(s *ast.Break) {
	l, idx := ctx.leaveLoop(s.Tok, "break")
	l.breaks = append(l.breaks, idx)
}

func (ctx *Context) codegenContinue(s *ast.Continue) {
	l, idx := ctx.leaveLoop(s.Tok, "continue")
	l.continues = append(l.continues, idx)
}
