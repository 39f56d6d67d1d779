package codegen

import (
	"github.com/xplshn/sbc/pkg/ast"
	"github.com/xplshn/sbc/pkg/symbols"
	"github.com/xplshn/sbc/pkg/util"
	"github.com/xplshn/sbc/pkg/vm"
)

// location is an addressable run of cells. For RuntimeComputed locations the
// object pointer has already been pushed by the code that built it.
type location struct {
	mode   vm.AddressingMode
	offset int
	typ    *ast.Type
}

func (l location) onHeap() bool { return l.mode == vm.RuntimeComputed }

// --- Declarations ---

// declareGlobal gives a new global the next absolute slot.
func (ctx *Context) declareGlobal(name string, typ *ast.Type) *symbols.Variable {
	v := symbols.NewVariable(name, typ, true)
	v.Address = ctx.globalSize
	ctx.globalSize += typ.StackSize()
	ctx.globals.Add(v)
	return v
}

// declareLocal places a new local above the live locals of the current
// frame. In the top-level frame the globals sit below it.
func (ctx *Context) declareLocal(name string, typ *ast.Type) *symbols.Variable {
	util.Assertf(len(ctx.cleanup) > ctx.frameCleanup, "local '%s' declared outside any scope", name)
	v := symbols.NewVariable(name, typ, false)
	v.Address = ctx.frameBase + ctx.liveCells(ctx.frameCleanup)
	if ctx.fn == nil {
		v.Address += ctx.globalSize
	}
	top := &ctx.cleanup[len(ctx.cleanup)-1]
	top.StackSize += typ.StackSize()
	top.VariableCount++
	ctx.locals.Add(v)
	ctx.stats.VariablesDeclared++
	return v
}

// declareParams fills the parameter table for f. Arguments are pushed by the
// caller before CALL adds the frame header, so the first parameter is the
// deepest: a parameter's address is minus the header and the sizes of
// itself and every parameter after it. The receiver is position 0.
func (ctx *Context) declareParams(f *symbols.Function) {
	ctx.params.Reset()
	var list []*symbols.Parameter
	if f.HasReceiver() {
		list = append(list, symbols.NewParameter("this", f.Owner, 0))
	}
	for _, p := range f.Decl.Params {
		list = append(list, symbols.NewParameter(p.Name, p.Typ, len(list)))
	}

	below := vm.FrameHeader
	for i := len(list) - 1; i >= 0; i-- {
		below += list[i].Type.StackSize()
		list[i].Address = -below
	}
	ctx.retAddr = -below - f.Return.StackSize()
	for _, p := range list {
		ctx.params.Add(p)
	}
}

// --- Address calculation ---

// symbolLocation resolves a name to its variable or parameter slot. Locals
// shadow parameters, which shadow globals.
func (ctx *Context) symbolLocation(name string) (location, bool) {
	if v, ok := ctx.locals.Lookup(name); ok {
		return location{vm.BasePointerRelative, v.Address, v.Type}, true
	}
	if p, ok := ctx.params.Lookup(name); ok {
		return location{vm.BasePointerRelative, p.Address, p.Type}, true
	}
	if v, ok := ctx.globals.Lookup(name); ok {
		return location{vm.Absolute, v.Address, v.Type}, true
	}
	return location{}, false
}

// addressable reports whether e denotes storage rather than a temporary.
func (ctx *Context) addressable(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.Ident:
		_, ok := ctx.symbolLocation(e.Name)
		return ok
	case *ast.This:
		return true
	case *ast.FieldAccess:
		return e.X.Type().IsBoxed() || ctx.addressable(e.X)
	}
	return false
}

// codegenLocation computes where e lives. Struct members through a struct
// base share the base's mode at base+field offset. Members through a class
// base load the object pointer and address it RuntimeComputed with the
// member's heap offset.
func (ctx *Context) codegenLocation(e ast.Expr) location {
	switch e := e.(type) {
	case *ast.Ident:
		loc, ok := ctx.symbolLocation(e.Name)
		if !ok {
			ctx.unknownIdentifier(e.Tok, e.Name)
		}
		return loc
	case *ast.This:
		return ctx.thisLocation(e)
	case *ast.FieldAccess:
		base := e.X.Type()
		offset, field := ctx.fieldOffset(e)
		if base.IsBoxed() {
			ctx.codegenExpr(e.X)
			return location{vm.RuntimeComputed, offset, field.Type}
		}
		loc := ctx.codegenLocation(e.X)
		ctx.assertStackResident(e.X, loc)
		loc.offset += offset
		loc.typ = field.Type
		return loc
	}
	util.Fail("%T has no address", e)
	return location{}
}

func (ctx *Context) thisLocation(e *ast.This) location {
	p, ok := ctx.params.Lookup("this")
	if !ok {
		ctx.errorf(e.Tok, "'this' used outside of a method")
	}
	return location{vm.BasePointerRelative, p.Address, p.Type}
}

// assertStackResident guards the struct member path: an unboxed member is
// only ever reached through an unboxed base.
func (ctx *Context) assertStackResident(base ast.Expr, loc location) {
	if id, ok := base.(*ast.Ident); ok {
		if v, ok := ctx.locals.Lookup(id.Name); ok && v.OnHeap {
			util.Fail("stack address requested for heap-resident variable '%s'", v.Name)
		}
	}
	util.Assertf(loc.typ.Kind == ast.TYPE_STRUCT, "stack member access through %s", loc.typ)
}

// fieldOffset finds a member of e's base type, enforcing protection, and
// returns its cell offset from the layout of that type.
func (ctx *Context) fieldOffset(e *ast.FieldAccess) (int, *ast.Field) {
	base := e.X.Type()
	if !base.IsRecord() {
		ctx.errorf(e.Tok, "%s has no member '%s'", base, e.Name)
	}
	offset, field, ok := ctx.layouts.Of(base).Offset(e.Name)
	if !ok {
		var names []string
		for _, f := range base.Fields {
			names = append(names, f.Name)
		}
		ctx.errorf(e.Tok, "%s has no member '%s'%s", base, e.Name, didYouMean(e.Name, names))
	}
	if field.Protected && !ctx.insideOf(base) {
		ctx.errorf(e.Tok, "member '%s' of %s is protected", e.Name, base)
	}
	return offset, field
}

// insideOf reports whether code being generated belongs to owner.
func (ctx *Context) insideOf(owner *ast.Type) bool {
	return ctx.fn != nil && ctx.fn.Owner != nil && ast.Identical(ctx.fn.Owner, owner)
}

func didYouMean(name string, candidates []string) string {
	if s := util.Suggest(name, candidates, 2); s != "" {
		return "; did you mean '" + s + "'?"
	}
	return ""
}

// --- Loads and stores ---

// emitLoadLocation pushes the value at loc. A heap location consumes the
// object pointer.
func (ctx *Context) emitLoadLocation(loc location) {
	size := loc.typ.StackSize()
	if !loc.onHeap() {
		for i := 0; i < size; i++ {
			ctx.emitLoad(loc.mode, loc.offset+i)
		}
		return
	}
	if size == 1 {
		ctx.emitLoad(vm.RuntimeComputed, loc.offset)
		return
	}
	// Copy the pointer above the cells read so far, read one cell through
	// it, then drop the original pointer from under the result.
	for i := 0; i < size; i++ {
		ctx.emitLoad(vm.Relative, -1-i)
		ctx.emitLoad(vm.RuntimeComputed, loc.offset+i)
	}
	ctx.emitDropBelow(size)
}

// emitStoreLocation stores the value on top of the stack into loc. For a
// heap location the object pointer must sit directly below the value; it is
// consumed as well.
func (ctx *Context) emitStoreLocation(loc location) {
	size := loc.typ.StackSize()
	if !loc.onHeap() {
		for i := size - 1; i >= 0; i-- {
			ctx.emitStore(loc.mode, loc.offset+i)
		}
		return
	}
	for i := size - 1; i >= 0; i-- {
		ctx.emitLoad(vm.Relative, -(i + 2))
		ctx.emitStore(vm.RuntimeComputed, loc.offset+i)
	}
	ctx.emitPop(1)
}

// emitDropBelow removes the cell directly under the top n cells.
func (ctx *Context) emitDropBelow(n int) {
	for j := 0; j < n; j++ {
		ctx.emitLoad(vm.Relative, j-n)
		ctx.emitStore(vm.Relative, j-n-1)
	}
	ctx.emitPop(1)
}

// emitExtract keeps n cells starting at offset of the size-cell value on
// top of the stack and drops the rest of it.
func (ctx *Context) emitExtract(size, offset, n int) {
	if n == size {
		return
	}
	for i := 0; i < n; i++ {
		ctx.emitLoad(vm.Relative, offset-size)
	}
	for i := 0; i < n; i++ {
		ctx.emitStore(vm.Relative, -size)
	}
	ctx.emitPop(size - n)
}
