package codegen

import (
	"fmt"

	"github.com/xplshn/sbc/pkg/ast"
	"github.com/xplshn/sbc/pkg/config"
	"github.com/xplshn/sbc/pkg/util"
	"github.com/xplshn/sbc/pkg/vm"
)

// emit is the only place instructions enter the buffer. It drops comments
// and debug tags when their features are off and returns the index of the
// new instruction, or -1 if it was dropped.
func (ctx *Context) emit(in vm.Instruction) int {
	comments := ctx.cfg.IsFeatureEnabled(config.FeatComments)
	switch in.Op {
	case vm.OpComment:
		if !comments {
			return -1
		}
	case vm.OpSetDebugTag:
		if !ctx.cfg.IsFeatureEnabled(config.FeatDebugInfo) {
			return -1
		}
	}
	if !comments {
		in.Comment = ""
	}
	ctx.code = append(ctx.code, in)
	return len(ctx.code) - 1
}

func (ctx *Context) emitOp(op vm.Op) { ctx.emit(vm.Instruction{Op: op}) }

func (ctx *Context) emitPush(v vm.Value) { ctx.emit(vm.Instruction{Op: vm.OpPush, Operand: v}) }

func (ctx *Context) emitLoad(mode vm.AddressingMode, offset int) {
	ctx.emit(vm.Instruction{Op: vm.OpLoad, Mode: mode, Operand: vm.Int(int64(offset))})
}

func (ctx *Context) emitStore(mode vm.AddressingMode, offset int) {
	ctx.emit(vm.Instruction{Op: vm.OpStore, Mode: mode, Operand: vm.Int(int64(offset))})
}

func (ctx *Context) emitPop(n int) {
	if n > 0 {
		ctx.emit(vm.Instruction{Op: vm.OpPop, Operand: vm.Int(int64(n))})
	}
}

func (ctx *Context) comment(format string, args ...interface{}) {
	ctx.emit(vm.Instruction{Op: vm.OpComment, Comment: fmt.Sprintf(format, args...)})
}

func (ctx *Context) debugTag(name string) {
	ctx.emit(vm.Instruction{Op: vm.OpSetDebugTag, Operand: vm.String(name)})
}

// emitJump emits a relative jump with a zero placeholder and returns its
// index for patchJump.
func (ctx *Context) emitJump(op vm.Op) int {
	return ctx.emit(vm.Instruction{Op: op, Operand: vm.Int(0)})
}

// patchJump points the jump at idx to the next instruction to be emitted.
func (ctx *Context) patchJump(idx int) { ctx.patchJumpTo(idx, len(ctx.code)) }

func (ctx *Context) patchJumpTo(idx, target int) {
	util.Assertf(ctx.code[idx].Op.IsJump(), "patching %s at %d as a jump", ctx.code[idx].Op, idx)
	ctx.code[idx].Operand = vm.Int(int64(target - idx))
}

// emitJumpBack emits a jump to an already emitted instruction.
func (ctx *Context) emitJumpBack(op vm.Op, target int) {
	ctx.emit(vm.Instruction{Op: op, Operand: vm.Int(int64(target - len(ctx.code)))})
}

// zeroCells is the initial value of each cell of a value of type t.
func zeroCells(t *ast.Type) []vm.Value {
	switch t.Kind {
	case ast.TYPE_VOID:
		return nil
	case ast.TYPE_INT:
		return []vm.Value{vm.Int(0)}
	case ast.TYPE_FLOAT:
		return []vm.Value{vm.Float(0)}
	case ast.TYPE_BOOL:
		return []vm.Value{vm.Bool(false)}
	case ast.TYPE_STRING:
		return []vm.Value{vm.String("")}
	case ast.TYPE_STRUCT:
		var cells []vm.Value
		for _, f := range t.Fields {
			cells = append(cells, zeroCells(f.Type)...)
		}
		return cells
	}
	return []vm.Value{vm.Nil()}
}

func (ctx *Context) emitZero(t *ast.Type) {
	for _, v := range zeroCells(t) {
		ctx.emitPush(v)
	}
}

// --- Scopes ---

func (ctx *Context) openScope() {
	ctx.cleanup = append(ctx.cleanup, CleanupItem{})
	ctx.stats.CleanupPushed++
}

// closeScope pops the scope's locals off the stack and out of the table.
func (ctx *Context) closeScope() {
	item := ctx.popScope()
	ctx.emitPop(item.StackSize)
}

func (ctx *Context) popScope() CleanupItem {
	util.Assertf(len(ctx.cleanup) > ctx.frameCleanup, "closing a scope that was never opened")
	item := ctx.cleanup[len(ctx.cleanup)-1]
	ctx.cleanup = ctx.cleanup[:len(ctx.cleanup)-1]
	ctx.locals.Truncate(ctx.locals.Len() - item.VariableCount)
	ctx.stats.CleanupPopped++
	ctx.stats.VariablesReleased += item.VariableCount
	return item
}

// unwindScopes closes scopes down to depth without emitting code.
func (ctx *Context) unwindScopes(depth int) {
	for len(ctx.cleanup) > depth {
		ctx.popScope()
	}
}

// liveCells is the stack size of the locals in scopes from depth upwards.
func (ctx *Context) liveCells(depth int) int {
	n := 0
	for _, item := range ctx.cleanup[depth:] {
		n += item.StackSize
	}
	return n
}
