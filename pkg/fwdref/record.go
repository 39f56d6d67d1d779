// Package fwdref resolves call sites emitted before their callee's code
// position was known. Generation collects plain Records; once every body has
// been emitted, Resolve maps them to Patches and Apply writes those into the
// code.
package fwdref

import (
	"fmt"
	"strings"

	"github.com/xplshn/sbc/pkg/ast"
	"github.com/xplshn/sbc/pkg/symbols"
	"github.com/xplshn/sbc/pkg/token"
)

// Kind is the shape of the call site that left the placeholder.
type Kind int

const (
	// Call is a direct CALL; it is patched with a relative distance.
	Call Kind = iota
	// Variable is a function used as a value (PUSH_FUNCTION); it is patched
	// with the callee's absolute offset.
	Variable
	// Indexed is a CALL to a class indexer; patched like Call.
	Indexed
)

func (k Kind) String() string {
	switch k {
	case Call:
		return "call"
	case Variable:
		return "function value"
	case Indexed:
		return "indexer call"
	}
	return "unknown"
}

// Query identifies the callee to look up.
type Query struct {
	Name   string
	Kind   ast.CallableKind
	Owner  *ast.Type
	Params []*ast.Type
}

func (q Query) String() string {
	var sb strings.Builder
	if q.Owner != nil {
		sb.WriteString(q.Owner.Name)
		sb.WriteString(".")
	}
	sb.WriteString(q.Name)
	params := make([]string, len(q.Params))
	for i, p := range q.Params {
		params[i] = p.String()
	}
	fmt.Fprintf(&sb, "(%s)", strings.Join(params, ", "))
	return sb.String()
}

// Record is one pending patch. Params and Locals capture the symbols visible
// at the call site; they travel with the record so a failed resolution can
// be reported in the context it was emitted in.
type Record struct {
	Kind       Kind
	PatchIndex int
	Query      Query
	Params     []*symbols.Parameter
	Locals     []*symbols.Variable
	SourceFile string
	Pos        token.Token
}

// Collector accumulates records during generation. It only ever grows.
type Collector struct {
	records []Record
}

func (c *Collector) Add(r Record) { c.records = append(c.records, r) }

func (c *Collector) Len() int { return len(c.records) }

// Records returns the collected records in emission order.
func (c *Collector) Records() []Record { return c.records }

// Patch is a resolved record: the operand to write at Index.
type Patch struct {
	Index   int
	Operand int
}
