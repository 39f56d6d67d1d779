package vm

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/xplshn/sbc/pkg/token"
)

// Instruction is one emitted operation. Only the operand of jumps and calls
// is rewritten after emission.
type Instruction struct {
	Op      Op
	Mode    AddressingMode
	Operand Value
	Comment string
}

func (in Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	if in.Mode != NoMode {
		sb.WriteString(" ")
		sb.WriteString(in.Mode.String())
	}
	if in.Operand.Kind != NilValue || in.Op == OpPush {
		sb.WriteString(" ")
		sb.WriteString(in.Operand.String())
	}
	if in.Comment != "" {
		sb.WriteString(" ; ")
		sb.WriteString(in.Comment)
	}
	return sb.String()
}

// Target is the index a relative jump or call at index i transfers to.
func (in Instruction) Target(i int) int { return i + in.Operand.AsInt() }

// IsRelativeTransfer reports whether the operand is a distance from the
// instruction's own index.
func (in Instruction) IsRelativeTransfer() bool {
	return in.Op.IsJump() || (in.Op == OpCall && in.Mode == Relative)
}

// DebugRecord maps one source statement to the instructions generated for it.
// Last is inclusive; a statement that generated nothing has Last < First.
type DebugRecord struct {
	Pos         token.Token
	First, Last int
}

// Entry is the resolved code position of a callable.
type Entry struct {
	Name   string
	Kind   string
	Owner  string
	Offset int
}

// Program is the finished output of the generator.
type Program struct {
	Code      []Instruction
	Debug     []DebugRecord
	Functions []Entry
}

// Lookup returns the entry of the first callable with the given name.
func (p *Program) Lookup(name string) (Entry, bool) {
	for _, e := range p.Functions {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Listing renders the code one instruction per line, prefixed by its index.
func (p *Program) Listing() string {
	var sb strings.Builder
	for i, in := range p.Code {
		fmt.Fprintf(&sb, "%4d  %s\n", i, in)
	}
	return sb.String()
}

// Fingerprint hashes the code so two builds can be compared cheaply.
func (p *Program) Fingerprint() uint64 {
	d := xxhash.New()
	for _, in := range p.Code {
		fmt.Fprintf(d, "%d|%d|%d|%d|%g|%s\n", in.Op, in.Mode, in.Operand.Kind, in.Operand.I, in.Operand.F, in.Operand.S)
	}
	return d.Sum64()
}
