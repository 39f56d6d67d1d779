package codegen

import (
	"fmt"

	"github.com/xplshn/sbc/pkg/ast"
	"github.com/xplshn/sbc/pkg/fwdref"
	"github.com/xplshn/sbc/pkg/symbols"
	"github.com/xplshn/sbc/pkg/token"
	"github.com/xplshn/sbc/pkg/util"
	"github.com/xplshn/sbc/pkg/vm"
)

// callSite is one invocation of a user callable.
type callSite struct {
	fn   *symbols.Function
	tok  token.Token
	args []ast.Expr
	// receiver pushes the object pointer for callables that take one
	receiver func()
	// keep leaves the return value on the stack
	keep bool
	// record kind used if the callee has no code yet
	kind fwdref.Kind
}

// function maps a checked declaration to its table entry.
func (ctx *Context) function(d *ast.FuncDecl) *symbols.Function {
	f, ok := ctx.byDecl[d]
	if !ok {
		util.Fail("callable %s was not in the program's function list", d.Name)
	}
	return f
}

// dupReceiver passes the pointer already on top of the stack, under the
// return slot f reserves, as the receiver. Only class callables are reached
// through a pointer.
func (ctx *Context) dupReceiver(f *symbols.Function) func() {
	util.Assertf(f.Owner.IsBoxed(), "%s reached through a pointer, but %s is not a class", f.Signature(), f.Owner)
	depth := -1 - f.Return.StackSize()
	return func() { ctx.emitLoad(vm.Relative, depth) }
}

func (ctx *Context) checkArgs(f *symbols.Function, tok token.Token, args []ast.Expr) {
	if len(args) != len(f.Params) {
		ctx.errorf(tok, "wrong number of arguments to %s: expected %d, got %d", f.Signature(), len(f.Params), len(args))
	}
	for i, a := range args {
		if !ast.AssignableTo(a.Type(), f.Params[i]) {
			ctx.errorf(a.Pos(), "cannot use %s as %s in argument %d to %s", a.Type(), f.Params[i], i+1, f.Name)
		}
	}
	if f.Protected && !ctx.insideOf(f.Owner) {
		owner := "its class"
		if f.Owner != nil {
			owner = f.Owner.Name
		}
		ctx.errorf(tok, "%s is protected and cannot be called from outside %s", f.Signature(), owner)
	}
}

func paramName(f *symbols.Function, i int) string {
	if f.Decl != nil && i < len(f.Decl.Params) {
		return f.Decl.Params[i].Name
	}
	return fmt.Sprintf("arg%d", i)
}

// emitCallSequence emits the calling convention: return slot, receiver,
// arguments left to right each tagged with its formal name, CALL, then one
// POP of arguments and receiver, plus the return slot unless it is kept.
func (ctx *Context) emitCallSequence(cs callSite) {
	f := cs.fn
	ctx.checkArgs(f, cs.tok, cs.args)
	if f.HasReceiver() != (cs.receiver != nil) {
		util.Fail("%s %s called with receiver=%v", f.Kind, f.Name, cs.receiver != nil)
	}
	if f.IsExternal {
		ctx.emitExternalCall(cs)
		return
	}

	ctx.comment("call %s", f.Signature())
	retSize := f.Return.StackSize()
	ctx.emitZero(f.Return)
	recvSize := 0
	if cs.receiver != nil {
		cs.receiver()
		recvSize = f.Owner.StackSize()
	}
	for i, a := range cs.args {
		ctx.codegenExpr(a)
		ctx.convertTo(a.Type(), f.Params[i])
		ctx.debugTag(paramName(f, i))
	}
	ctx.emitCallTo(f, cs.kind, cs.tok)

	pop := f.ParamSize() + recvSize
	if !cs.keep {
		pop += retSize
	}
	ctx.emitPop(pop)
}

// emitCallTo emits the CALL itself. Only callees whose body is complete have
// a final distance; every other call, a recursive one included, leaves a
// placeholder and a forward reference.
func (ctx *Context) emitCallTo(f *symbols.Function, kind fwdref.Kind, tok token.Token) {
	if f.Emitted {
		ctx.emit(vm.Instruction{Op: vm.OpCall, Mode: vm.Relative, Operand: vm.Int(int64(f.Offset - len(ctx.code))), Comment: f.Name})
		return
	}
	idx := ctx.emit(vm.Instruction{Op: vm.OpCall, Mode: vm.Relative, Operand: vm.Int(0), Comment: f.Name})
	ctx.addForwardRef(kind, idx, f, tok)
}

func (ctx *Context) addForwardRef(kind fwdref.Kind, idx int, f *symbols.Function, tok token.Token) {
	ctx.fwd.Add(fwdref.Record{
		Kind:       kind,
		PatchIndex: idx,
		Query:      fwdref.Query{Name: f.Name, Kind: f.Kind, Owner: f.Owner, Params: f.Params},
		Params:     ctx.params.Snapshot(),
		Locals:     ctx.locals.Snapshot(),
		SourceFile: ctx.sourceFile(tok),
		Pos:        tok,
	})
	ctx.stats.ForwardRefs++
}

// emitExternalCall uses the builtin convention: arguments, the name, then
// CALL_EXTERNAL, which leaves one result cell.
func (ctx *Context) emitExternalCall(cs callSite) {
	f := cs.fn
	arity := len(cs.args)
	if cs.receiver != nil {
		if f.Owner.StackSize() != 1 {
			ctx.errorf(cs.tok, "cannot pass a value of type %s to native code", f.Owner)
		}
		cs.receiver()
		arity++
	}
	for i, a := range cs.args {
		ctx.codegenSingleCell(a)
		ctx.convertTo(a.Type(), f.Params[i])
		ctx.debugTag(paramName(f, i))
	}
	ctx.emitPush(vm.String(f.Name))
	ctx.emit(vm.Instruction{Op: vm.OpCallExternal, Operand: vm.Int(int64(arity)), Comment: f.Name})
	if !cs.keep || f.Return.IsVoid() {
		ctx.emitPop(1)
	}
}

// codegenSingleCell evaluates an argument passed to native code, which only
// takes one cell per argument.
func (ctx *Context) codegenSingleCell(a ast.Expr) {
	if a.Type().StackSize() != 1 {
		ctx.errorf(a.Pos(), "cannot pass a value of type %s to native code", a.Type())
	}
	ctx.codegenExpr(a)
}

func (ctx *Context) codegenCall(e *ast.Call, keep bool) {
	if e.Target != nil {
		cs := callSite{fn: ctx.function(e.Target), tok: e.Tok, args: e.Args, keep: keep}
		if e.Receiver != nil {
			recv := e.Receiver
			cs.receiver = func() { ctx.codegenExpr(recv) }
		}
		ctx.emitCallSequence(cs)
		return
	}

	if e.Receiver != nil {
		f := ctx.lookupMethod(e)
		recv := e.Receiver
		ctx.emitCallSequence(callSite{fn: f, tok: e.Tok, args: e.Args, keep: keep, receiver: func() { ctx.codegenExpr(recv) }})
		return
	}

	// A variable holding a function shadows functions of the same name.
	if loc, ok := ctx.symbolLocation(e.Name); ok && loc.typ.Kind == ast.TYPE_FUNC {
		callee := &ast.Ident{Tok: e.Tok, Name: e.Name, Typ: loc.typ}
		ctx.codegenCallValue(&ast.CallValue{Tok: e.Tok, Callee: callee, Args: e.Args, Typ: e.Typ}, keep)
		return
	}
	if f := ctx.lookupFunction(e); f != nil {
		ctx.emitCallSequence(callSite{fn: f, tok: e.Tok, args: e.Args, keep: keep})
		return
	}
	if b, ok := ctx.builtins.Lookup(e.Name); ok {
		ctx.codegenBuiltin(b, e, keep)
		return
	}
	ctx.unknownIdentifier(e.Tok, e.Name)
}

// lookupFunction picks the plain function a Call without a resolved target
// refers to: the only one of that name, or the one whose parameters match
// the argument types.
func (ctx *Context) lookupFunction(e *ast.Call) *symbols.Function {
	var named []*symbols.Function
	for _, f := range ctx.functions.All() {
		if f.Name == e.Name && f.Kind == ast.KindFunction {
			named = append(named, f)
		}
	}
	if len(named) <= 1 {
		if len(named) == 1 {
			return named[0]
		}
		return nil
	}
	argTypes := make([]*ast.Type, len(e.Args))
	for i, a := range e.Args {
		argTypes[i] = a.Type()
	}
	for _, f := range named {
		if f.SameParams(argTypes) {
			return f
		}
	}
	ctx.errorf(e.Tok, "no overload of %s takes (%s)", e.Name, typeList(argTypes))
	return nil
}

func (ctx *Context) lookupMethod(e *ast.Call) *symbols.Function {
	owner := e.Receiver.Type()
	var names []string
	for _, f := range ctx.functions.All() {
		if f.Owner == nil || !ast.Identical(f.Owner, owner) {
			continue
		}
		if f.Name == e.Name && f.Kind == ast.KindMethod {
			return f
		}
		names = append(names, f.Name)
	}
	ctx.errorf(e.Tok, "%s has no method '%s'%s", owner, e.Name, didYouMean(e.Name, names))
	return nil
}

func typeList(types []*ast.Type) string {
	s := ""
	for i, t := range types {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s
}

func (ctx *Context) codegenOperatorCall(d *ast.FuncDecl, tok token.Token, keep bool, operands ...ast.Expr) {
	ctx.emitCallSequence(callSite{fn: ctx.function(d), tok: tok, args: operands, keep: keep})
}

// codegenIndex calls the indexer of X's class with the index as argument.
func (ctx *Context) codegenIndex(e *ast.Index, keep bool) {
	if e.Indexer == nil {
		ctx.errorf(e.Tok, "%s cannot be indexed", e.X.Type())
	}
	x := e.X
	ctx.emitCallSequence(callSite{
		fn:       ctx.function(e.Indexer),
		tok:      e.Tok,
		args:     []ast.Expr{e.Index},
		receiver: func() { ctx.codegenExpr(x) },
		keep:     keep,
		kind:     fwdref.Indexed,
	})
}

// codegenCallValue calls through a function-typed value: return slot,
// arguments, the callee's code address, then CALL in Pop mode.
func (ctx *Context) codegenCallValue(e *ast.CallValue, keep bool) {
	ft := e.Callee.Type()
	if ft == nil || ft.Kind != ast.TYPE_FUNC {
		ctx.errorf(e.Tok, "cannot call a value of type %s", ft)
	}
	if len(e.Args) != len(ft.Params) {
		ctx.errorf(e.Tok, "wrong number of arguments to %s: expected %d, got %d", ft, len(ft.Params), len(e.Args))
	}
	argSize := 0
	for i, a := range e.Args {
		if !ast.AssignableTo(a.Type(), ft.Params[i]) {
			ctx.errorf(a.Pos(), "cannot use %s as %s in argument %d", a.Type(), ft.Params[i], i+1)
		}
		argSize += ft.Params[i].StackSize()
	}

	retSize := ft.Return.StackSize()
	ctx.emitZero(ft.Return)
	for i, a := range e.Args {
		ctx.codegenExpr(a)
		ctx.convertTo(a.Type(), ft.Params[i])
		ctx.debugTag(fmt.Sprintf("arg%d", i))
	}
	ctx.codegenExpr(e.Callee)
	ctx.emit(vm.Instruction{Op: vm.OpCall, Mode: vm.Pop, Operand: vm.Int(0)})
	if !keep {
		argSize += retSize
	}
	ctx.emitPop(argSize)
}

// lookupFunctionValue finds the plain function a function-typed identifier
// names.
func (ctx *Context) lookupFunctionValue(name string, typ *ast.Type) *symbols.Function {
	for _, f := range ctx.functions.All() {
		if f.Name == name && f.Kind == ast.KindFunction && f.SameParams(typ.Params) {
			return f
		}
	}
	return nil
}

// emitFunctionValue pushes f's absolute code address, through a forward
// reference if its body has not started yet.
func (ctx *Context) emitFunctionValue(f *symbols.Function, tok token.Token) {
	if f.IsExternal {
		ctx.errorf(tok, "external function %s cannot be used as a value", f.Name)
	}
	if f.Resolved() {
		ctx.emit(vm.Instruction{Op: vm.OpPushFunction, Operand: vm.Int(int64(f.Offset)), Comment: f.Name})
		return
	}
	idx := ctx.emit(vm.Instruction{Op: vm.OpPushFunction, Operand: vm.Int(0), Comment: f.Name})
	ctx.addForwardRef(fwdref.Variable, idx, f, tok)
}

// codegenBuiltin pushes the arguments, then the builtin's name, then
// CALL_BUILTIN with the arity. The machine leaves one result cell.
func (ctx *Context) codegenBuiltin(b *symbols.Builtin, e *ast.Call, keep bool) {
	if len(e.Args) != b.Arity() {
		ctx.errorf(e.Tok, "wrong number of arguments to builtin %s: expected %d, got %d", b.Name, b.Arity(), len(e.Args))
	}
	for i, a := range e.Args {
		if !ast.AssignableTo(a.Type(), b.Params[i]) {
			ctx.errorf(a.Pos(), "cannot use %s as %s in argument %d to %s", a.Type(), b.Params[i], i+1, b.Name)
		}
	}
	for i, a := range e.Args {
		ctx.codegenSingleCell(a)
		ctx.convertTo(a.Type(), b.Params[i])
		ctx.debugTag(fmt.Sprintf("arg%d", i))
	}
	ctx.emitBuiltinCall(b, keep)
}

// emitBuiltinCall emits the name and CALL_BUILTIN for arguments already on
// the stack.
func (ctx *Context) emitBuiltinCall(b *symbols.Builtin, keep bool) {
	if slot, ok := ctx.nameSlots[b.Name]; ok && slot >= 0 {
		ctx.emitLoad(vm.Absolute, slot)
	} else {
		ctx.emitPush(vm.String(b.Name))
	}
	ctx.emit(vm.Instruction{Op: vm.OpCallBuiltin, Operand: vm.Int(int64(b.Arity())), Comment: b.Name})
	if !keep || b.Return.IsVoid() {
		ctx.emitPop(1)
	}
}
