// Package codegen turns a checked ast.Program into stack machine code.
package codegen

import (
	"github.com/golang/glog"
	"github.com/xplshn/sbc/pkg/ast"
	"github.com/xplshn/sbc/pkg/config"
	"github.com/xplshn/sbc/pkg/fwdref"
	"github.com/xplshn/sbc/pkg/optimizer"
	"github.com/xplshn/sbc/pkg/symbols"
	"github.com/xplshn/sbc/pkg/token"
	"github.com/xplshn/sbc/pkg/util"
	"github.com/xplshn/sbc/pkg/vm"
)

// CleanupItem records what a lexical scope must release when it closes:
// StackSize cells of locals and VariableCount symbol table entries.
type CleanupItem struct {
	StackSize     int
	VariableCount int
}

// Stats counts scope and variable bookkeeping over a whole run.
type Stats struct {
	CleanupPushed     int
	CleanupPopped     int
	VariablesDeclared int
	VariablesReleased int
	ForwardRefs       int
}

type loopState struct {
	breaks    []int
	continues []int
	// number of open scopes when the loop began; break and continue pop
	// every local declared in scopes above it
	cleanupDepth int
}

type Context struct {
	cfg      *config.Config
	diags    *util.Diagnostics
	builtins *symbols.Registry

	code  []vm.Instruction
	debug []vm.DebugRecord

	globals   symbols.Table[*symbols.Variable]
	locals    symbols.Table[*symbols.Variable]
	params    symbols.Table[*symbols.Parameter]
	functions symbols.Table[*symbols.Function]
	byDecl    map[*ast.FuncDecl]*symbols.Function
	layouts   *symbols.Layouts

	cleanup []CleanupItem
	loops   []*loopState
	fwd     fwdref.Collector

	// current callable, nil while generating top-level code
	fn *symbols.Function
	// stack slot of the first local of the current frame, relative to BP
	frameBase int
	// index into cleanup of the first scope belonging to the current frame
	frameCleanup int
	// BP-relative address of the current callable's return slot
	retAddr int

	// cells held in absolute slots: cached builtin names, then globals
	globalSize int
	nameSlots  map[string]int

	stats Stats
}

func NewContext(cfg *config.Config, diags *util.Diagnostics, builtins *symbols.Registry) *Context {
	if builtins == nil {
		builtins = symbols.DefaultRegistry()
	}
	return &Context{
		cfg:       cfg,
		diags:     diags,
		builtins:  builtins,
		byDecl:    make(map[*ast.FuncDecl]*symbols.Function),
		layouts:   symbols.NewLayouts(),
		nameSlots: make(map[string]int),
	}
}

// Generate compiles prog with the default builtin registry.
func Generate(prog *ast.Program, cfg *config.Config, diags *util.Diagnostics) (*vm.Program, error) {
	return NewContext(cfg, diags, nil).Generate(prog)
}

func (ctx *Context) Stats() Stats { return ctx.stats }

// Functions returns the callable table in declaration order.
func (ctx *Context) Functions() []*symbols.Function { return ctx.functions.All() }

// Generate emits the top-level code, then every callable body, resolves
// forward references and finally runs the peephole optimizer. User errors
// are collected in the diagnostics and reported together; an internal
// error aborts the run.
func (ctx *Context) Generate(prog *ast.Program) (out *vm.Program, err error) {
	defer util.RecoverInternal(&err)

	for _, d := range prog.Functions {
		f := symbols.FromDecl(d)
		ctx.functions.Add(f)
		ctx.byDecl[d] = f
	}

	if ctx.cfg.IsFeatureEnabled(config.FeatBuiltinNameCache) {
		ctx.cacheBuiltinNames(prog)
	}

	ctx.comment("top-level code")
	for _, s := range prog.Body {
		if d, ok := s.(*ast.VarDecl); ok {
			ctx.guard(s, func() { ctx.codegenVarDecl(d, true) }, func() { ctx.declareGlobal(d.Name, d.Typ) })
			continue
		}
		ctx.codegenStmt(s)
	}
	ctx.emit(vm.Instruction{Op: vm.OpHalt})
	util.Assertf(len(ctx.cleanup) == 0, "%d scopes left open after top-level code", len(ctx.cleanup))

	for _, f := range ctx.functions.All() {
		switch {
		case f.Decl.Body == nil:
		case ctx.cfg.DropUnused() && f.TimesUsed == 0:
			glog.V(1).Infof("codegen: dropping unused %s", f.Signature())
		default:
			ctx.codegenFunction(f)
		}
	}

	if ctx.diags.HasErrors() {
		return nil, ctx.diags.Err()
	}

	patches, err := fwdref.Resolve(ctx.fwd.Records(), ctx.functions.All())
	if err != nil {
		return nil, err
	}
	if err := fwdref.Apply(ctx.code, patches); err != nil {
		return nil, err
	}
	glog.V(1).Infof("codegen: %d instructions, %d forward references resolved", len(ctx.code), len(patches))

	out = &vm.Program{Code: ctx.code, Debug: ctx.debug}
	for _, f := range ctx.functions.All() {
		e := vm.Entry{Name: f.Name, Kind: f.Kind.String(), Offset: f.Offset}
		if f.Owner != nil {
			e.Owner = f.Owner.Name
		}
		out.Functions = append(out.Functions, e)
	}

	if ctx.cfg.IsFeatureEnabled(config.FeatOptimize) {
		optimizer.Run(out)
	}
	if glog.V(2) {
		glog.Infof("codegen: program fingerprint %016x", out.Fingerprint())
	}
	return out, nil
}

// cacheBuiltinNames reserves one absolute slot per builtin the program calls
// and fills it with the builtin's name.
func (ctx *Context) cacheBuiltinNames(prog *ast.Program) {
	var names []string
	visit := func(n ast.Node) bool {
		c, ok := n.(*ast.Call)
		if !ok || c.Target != nil || c.Receiver != nil {
			return true
		}
		if _, ok := ctx.builtins.Lookup(c.Name); ok {
			if _, seen := ctx.nameSlots[c.Name]; !seen {
				ctx.nameSlots[c.Name] = -1
				names = append(names, c.Name)
			}
		}
		return true
	}
	for _, s := range prog.Body {
		ast.Inspect(s, visit)
	}
	for _, d := range prog.Functions {
		ast.Inspect(d, visit)
	}
	if len(names) == 0 {
		return
	}
	ctx.comment("builtin names")
	for _, name := range names {
		ctx.nameSlots[name] = ctx.globalSize
		ctx.emitPush(vm.String(name))
		ctx.globalSize++
	}
}

// --- Diagnostics ---

// bailout abandons the statement being generated after a user error.
type bailout struct{}

func (ctx *Context) errorf(tok token.Token, format string, args ...interface{}) {
	ctx.diags.Error(tok, format, args...)
	panic(bailout{})
}

// guard generates one statement. A user error inside it abandons the rest of
// the statement: scopes and loops it opened are closed in the bookkeeping
// only, onFail runs, and generation continues with the next statement.
func (ctx *Context) guard(s ast.Stmt, gen func(), onFail func()) {
	first := len(ctx.code)
	depth, loops := len(ctx.cleanup), len(ctx.loops)
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			ctx.unwindScopes(depth)
			ctx.loops = ctx.loops[:loops]
			if onFail != nil {
				onFail()
			}
			ctx.emit(vm.Instruction{Op: vm.OpComment, Comment: "statement abandoned"})
		}
		ctx.debug = append(ctx.debug, vm.DebugRecord{Pos: s.Pos(), First: first, Last: len(ctx.code) - 1})
	}()
	gen()
}

// candidates lists every name visible from the current position.
func (ctx *Context) candidates() []string {
	names := ctx.locals.Names()
	names = append(names, ctx.params.Names()...)
	names = append(names, ctx.globals.Names()...)
	names = append(names, ctx.functions.Names()...)
	return append(names, ctx.builtins.Names()...)
}

func (ctx *Context) unknownIdentifier(tok token.Token, name string) {
	if s := util.Suggest(name, ctx.candidates(), 2); s != "" {
		ctx.errorf(tok, "unknown identifier '%s'; did you mean '%s'?", name, s)
	}
	ctx.errorf(tok, "unknown identifier '%s'", name)
}

// sourceFile names the file a token belongs to.
func (ctx *Context) sourceFile(tok token.Token) string { return ctx.diags.FileName(tok) }
