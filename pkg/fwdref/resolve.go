package fwdref

import (
	"strings"

	"github.com/golang/glog"
	"github.com/xplshn/sbc/pkg/ast"
	"github.com/xplshn/sbc/pkg/symbols"
	"github.com/xplshn/sbc/pkg/util"
	"github.com/xplshn/sbc/pkg/vm"
)

// Resolve finds the single callable each record refers to. It does not
// modify its inputs. A record matching no callable, several callables, or a
// callable without code is an internal error: earlier passes guarantee the
// callee exists.
func Resolve(records []Record, functions []*symbols.Function) ([]Patch, error) {
	patches := make([]Patch, 0, len(records))
	for _, r := range records {
		callee, err := resolveOne(r, functions)
		if err != nil {
			return nil, err
		}
		operand := callee.Offset - r.PatchIndex
		if r.Kind == Variable {
			operand = callee.Offset
		}
		glog.V(2).Infof("fwdref: %s %s at %d -> %d", r.Kind, r.Query, r.PatchIndex, operand)
		patches = append(patches, Patch{Index: r.PatchIndex, Operand: operand})
	}
	return patches, nil
}

func resolveOne(r Record, functions []*symbols.Function) (*symbols.Function, error) {
	var found []*symbols.Function
	for _, f := range functions {
		if matches(f, r.Query) {
			found = append(found, f)
		}
	}
	switch len(found) {
	case 0:
		return nil, util.Internalf("%s:%d: unresolved %s to %s (in scope: %s)",
			r.SourceFile, r.Pos.Line, r.Kind, r.Query, scope(r))
	case 1:
	default:
		return nil, util.Internalf("%s:%d: ambiguous %s to %s: %d candidates",
			r.SourceFile, r.Pos.Line, r.Kind, r.Query, len(found))
	}
	callee := found[0]
	if !callee.Resolved() {
		return nil, util.Internalf("%s:%d: %s to %s, which has no code",
			r.SourceFile, r.Pos.Line, r.Kind, callee.Signature())
	}
	return callee, nil
}

func matches(f *symbols.Function, q Query) bool {
	if f.IsBuiltin || f.Name != q.Name || f.Kind != q.Kind {
		return false
	}
	if (f.Owner == nil) != (q.Owner == nil) {
		return false
	}
	if f.Owner != nil && !ast.Identical(f.Owner, q.Owner) {
		return false
	}
	return f.SameParams(q.Params)
}

func scope(r Record) string {
	var names []string
	for _, p := range r.Params {
		names = append(names, p.Name)
	}
	for _, v := range r.Locals {
		names = append(names, v.Name)
	}
	if len(names) == 0 {
		return "nothing"
	}
	return strings.Join(names, ", ")
}

// Apply writes patches into code. Every patched instruction must be a CALL
// or PUSH_FUNCTION.
func Apply(code []vm.Instruction, patches []Patch) error {
	for _, p := range patches {
		if p.Index < 0 || p.Index >= len(code) {
			return util.Internalf("patch index %d outside code of length %d", p.Index, len(code))
		}
		in := &code[p.Index]
		if in.Op != vm.OpCall && in.Op != vm.OpPushFunction {
			return util.Internalf("patch index %d holds %s, not a call", p.Index, in.Op)
		}
		in.Operand = vm.Int(int64(p.Operand))
	}
	return nil
}
