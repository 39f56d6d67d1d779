package codegen

import (
	"github.com/xplshn/sbc/pkg/ast"
	"github.com/xplshn/sbc/pkg/config"
	"github.com/xplshn/sbc/pkg/token"
	"github.com/xplshn/sbc/pkg/util"
	"github.com/xplshn/sbc/pkg/vm"
)

var binaryOps = map[token.Type]vm.Op{
	token.Plus:  vm.OpAdd,
	token.Minus: vm.OpSub,
	token.Star:  vm.OpMul,
	token.Slash: vm.OpDiv,
	token.Rem:   vm.OpRem,
	token.And:   vm.OpAnd,
	token.Or:    vm.OpOr,
	token.Xor:   vm.OpXor,
	token.Shl:   vm.OpShl,
	token.Shr:   vm.OpShr,
	token.EqEq:  vm.OpCEq,
	token.Neq:   vm.OpCNeq,
	token.Lt:    vm.OpCLt,
	token.Lte:   vm.OpCLe,
	token.Gt:    vm.OpCGt,
	token.Gte:   vm.OpCGe,
}

var unaryOps = map[token.Type]vm.Op{
	token.Minus:      vm.OpNeg,
	token.Not:        vm.OpNot,
	token.Complement: vm.OpComplement,
}

// codegenExpr emits code that leaves the value of e on the stack:
// e.Type().StackSize() cells.
func (ctx *Context) codegenExpr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.IntLit:
		ctx.emitPush(vm.Int(e.Value))
	case *ast.FloatLit:
		ctx.emitPush(vm.Float(e.Value))
	case *ast.BoolLit:
		ctx.emitPush(vm.Bool(e.Value))
	case *ast.StringLit:
		ctx.emitPush(vm.String(e.Value))
	case *ast.NullLit:
		ctx.emitPush(vm.Nil())
	case *ast.Ident:
		ctx.codegenIdent(e)
	case *ast.This:
		ctx.emitLoadLocation(ctx.thisLocation(e))
	case *ast.FieldAccess:
		ctx.codegenFieldAccess(e)
	case *ast.Unary:
		ctx.codegenUnary(e)
	case *ast.Binary:
		ctx.codegenBinary(e)
	case *ast.Call:
		ctx.codegenCall(e, true)
	case *ast.CallValue:
		ctx.codegenCallValue(e, true)
	case *ast.Index:
		ctx.codegenIndex(e, true)
	case *ast.New:
		ctx.codegenNew(e)
	case *ast.Clone:
		ctx.codegenClone(e)
	case *ast.Cast:
		ctx.codegenCast(e)
	default:
		util.Fail("unknown expression node %T", e)
	}
}

// codegenDiscard evaluates e for its effects only.
func (ctx *Context) codegenDiscard(e ast.Expr) {
	switch e := e.(type) {
	case *ast.Call:
		ctx.codegenCall(e, false)
	case *ast.CallValue:
		ctx.codegenCallValue(e, false)
	case *ast.Index:
		ctx.codegenIndex(e, false)
	default:
		ctx.codegenExpr(e)
		ctx.emitPop(e.Type().StackSize())
	}
}

func (ctx *Context) codegenIdent(e *ast.Ident) {
	if loc, ok := ctx.symbolLocation(e.Name); ok {
		ctx.emitLoadLocation(loc)
		return
	}
	if e.Typ != nil && e.Typ.Kind == ast.TYPE_FUNC {
		if f := ctx.lookupFunctionValue(e.Name, e.Typ); f != nil {
			ctx.emitFunctionValue(f, e.Tok)
			return
		}
	}
	ctx.unknownIdentifier(e.Tok, e.Name)
}

func (ctx *Context) codegenFieldAccess(e *ast.FieldAccess) {
	if ctx.addressable(e) {
		ctx.emitLoadLocation(ctx.codegenLocation(e))
		return
	}
	// Member of a struct temporary: evaluate the whole struct and keep the
	// member's cells.
	offset, field := ctx.fieldOffset(e)
	ctx.codegenExpr(e.X)
	ctx.emitExtract(e.X.Type().StackSize(), offset, field.Type.StackSize())
}

func (ctx *Context) codegenUnary(e *ast.Unary) {
	if e.Operator != nil {
		ctx.codegenOperatorCall(e.Operator, e.Tok, true, e.X)
		return
	}
	ctx.codegenExpr(e.X)
	if e.Op == token.Plus {
		return
	}
	op, ok := unaryOps[e.Op]
	if !ok {
		util.Fail("no instruction for unary operator %s", e.Op)
	}
	ctx.emitOp(op)
}

func isNumeric(t *ast.Type) bool {
	return t != nil && (t.Kind == ast.TYPE_INT || t.Kind == ast.TYPE_FLOAT)
}

func (ctx *Context) codegenBinary(e *ast.Binary) {
	if e.Operator != nil {
		ctx.codegenOperatorCall(e.Operator, e.Tok, true, e.Left, e.Right)
		return
	}
	if e.Op == token.AndAnd || e.Op == token.OrOr {
		ctx.codegenShortCircuit(e)
		return
	}
	op, ok := binaryOps[e.Op]
	if !ok {
		util.Fail("no instruction for binary operator %s", e.Op)
	}

	lt, rt := e.Left.Type(), e.Right.Type()
	promote := isNumeric(lt) && isNumeric(rt) && lt.Kind != rt.Kind
	ctx.codegenExpr(e.Left)
	if promote && lt.Kind == ast.TYPE_INT {
		ctx.emitOp(vm.OpToFloat)
	}
	ctx.codegenExpr(e.Right)
	if promote && rt.Kind == ast.TYPE_INT {
		ctx.emitOp(vm.OpToFloat)
	}
	ctx.emitOp(op)
}

// codegenShortCircuit evaluates the right operand only when the left one
// does not decide the result: the left value is duplicated, tested, and
// dropped before the right side runs.
func (ctx *Context) codegenShortCircuit(e *ast.Binary) {
	jump := vm.OpJumpByIfFalse
	if e.Op == token.OrOr {
		jump = vm.OpJumpByIfTrue
	}
	ctx.codegenExpr(e.Left)
	ctx.emitLoad(vm.Relative, -1)
	skip := ctx.emitJump(jump)
	ctx.emitPop(1)
	ctx.codegenExpr(e.Right)
	ctx.patchJump(skip)
}

func (ctx *Context) codegenCast(e *ast.Cast) {
	from := e.X.Type()
	if !ast.Identical(from, e.To) && (e.To.Kind == ast.TYPE_ANY || e.To.Kind == ast.TYPE_STRING) && from.StackSize() != 1 {
		ctx.errorf(e.Tok, "cannot convert %s to %s", from, e.To)
	}
	ctx.codegenExpr(e.X)
	if ast.Identical(from, e.To) {
		ctx.diags.Hint(ctx.cfg, config.WarnRedundantConversion, e.Tok, "redundant conversion: value already has type %s", e.To)
		return
	}
	switch {
	case from.Kind == ast.TYPE_INT && e.To.Kind == ast.TYPE_FLOAT:
		ctx.emitOp(vm.OpToFloat)
	case from.Kind == ast.TYPE_FLOAT && e.To.Kind == ast.TYPE_INT:
		ctx.emitOp(vm.OpToInt)
	case e.To.Kind == ast.TYPE_STRING:
		b, ok := ctx.builtins.Lookup("to_string")
		if !ok {
			ctx.errorf(e.Tok, "cannot convert %s to string: no 'to_string' builtin", from)
		}
		ctx.emitBuiltinCall(b, true)
	case e.To.Kind == ast.TYPE_ANY, from.Kind == ast.TYPE_NULL:
	default:
		ctx.errorf(e.Tok, "cannot convert %s to %s", from, e.To)
	}
}

// codegenNew allocates the object, zeroes every member cell and runs the
// constructor with the new pointer as receiver. The pointer is the result.
func (ctx *Context) codegenNew(e *ast.New) {
	if e.Class == nil || !e.Class.IsBoxed() {
		ctx.errorf(e.Tok, "'new' requires a class type")
	}
	layout := ctx.layouts.Of(e.Class)
	ctx.comment("new %s", e.Class.Name)
	ctx.emit(vm.Instruction{Op: vm.OpAlloc, Operand: vm.Int(int64(layout.Size))})
	cell := 0
	for _, f := range e.Class.Fields {
		for _, v := range zeroCells(f.Type) {
			ctx.emitPush(v)
			ctx.emitLoad(vm.Relative, -2)
			ctx.emitStore(vm.RuntimeComputed, cell)
			cell++
		}
	}

	if e.Constructor == nil {
		if len(e.Args) > 0 {
			ctx.errorf(e.Tok, "%s has no constructor taking %d arguments", e.Class.Name, len(e.Args))
		}
		return
	}
	f := ctx.function(e.Constructor)
	ctx.emitCallSequence(callSite{
		fn:       f,
		tok:      e.Tok,
		args:     e.Args,
		receiver: ctx.dupReceiver(f),
		keep:     false,
	})
}

// codegenClone copies an object through its cloner, or member by member.
func (ctx *Context) codegenClone(e *ast.Clone) {
	t := e.X.Type()
	if !t.IsBoxed() {
		ctx.codegenExpr(e.X)
		return
	}
	if e.Cloner != nil {
		f := ctx.function(e.Cloner)
		ctx.emitCallSequence(callSite{
			fn:       f,
			tok:      e.Tok,
			receiver: func() { ctx.codegenExpr(e.X) },
			keep:     true,
		})
		return
	}
	size := ctx.layouts.Of(t).Size
	ctx.codegenExpr(e.X)
	ctx.emit(vm.Instruction{Op: vm.OpAlloc, Operand: vm.Int(int64(size))})
	for i := 0; i < size; i++ {
		ctx.emitLoad(vm.Relative, -2)
		ctx.emitLoad(vm.RuntimeComputed, i)
		ctx.emitLoad(vm.Relative, -2)
		ctx.emitStore(vm.RuntimeComputed, i)
	}
	ctx.emitStore(vm.Relative, -1)
}
