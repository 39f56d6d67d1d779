package symbols

import "github.com/xplshn/sbc/pkg/ast"

// Layout assigns each member of a struct or class a cell offset: the sum of
// the sizes of the members declared before it. For structs the offsets are
// relative to the struct's first stack cell, for classes to the object's
// first heap cell.
type Layout struct {
	Type    *ast.Type
	Offsets []int
	Size    int
}

func NewLayout(t *ast.Type) *Layout {
	l := &Layout{Type: t, Offsets: make([]int, len(t.Fields))}
	for i, f := range t.Fields {
		l.Offsets[i] = l.Size
		l.Size += f.Type.StackSize()
	}
	return l
}

// Offset returns the cell offset of the named member.
func (l *Layout) Offset(name string) (int, *ast.Field, bool) {
	f, i := l.Type.Field(name)
	if f == nil {
		return 0, nil, false
	}
	return l.Offsets[i], f, true
}

// Layouts caches one Layout per record type.
type Layouts struct {
	byType map[*ast.Type]*Layout
}

func NewLayouts() *Layouts {
	return &Layouts{byType: make(map[*ast.Type]*Layout)}
}

func (ls *Layouts) Of(t *ast.Type) *Layout {
	if l, ok := ls.byType[t]; ok {
		return l
	}
	l := NewLayout(t)
	ls.byType[t] = l
	return l
}
