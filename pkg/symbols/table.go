// Package symbols holds the generator's symbol tables: ordered name to entry
// mappings for variables, parameters and callables, the heap layout of
// classes, and the registry of builtin functions.
package symbols

// Entry is anything a Table can hold.
type Entry interface {
	SymbolName() string
}

// Table is a flat, order-preserving symbol table. Lookups search from the
// most recent entry backwards so inner declarations shadow outer ones.
type Table[T Entry] struct {
	entries []T
}

func (t *Table[T]) Add(e T) { t.entries = append(t.entries, e) }

func (t *Table[T]) Len() int { return len(t.entries) }

// All returns the entries in declaration order. The slice must not be
// modified.
func (t *Table[T]) All() []T { return t.entries }

func (t *Table[T]) Lookup(name string) (T, bool) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].SymbolName() == name {
			return t.entries[i], true
		}
	}
	var zero T
	return zero, false
}

// Truncate drops every entry past the first n and returns them, most recent
// first.
func (t *Table[T]) Truncate(n int) []T {
	if n < 0 || n > len(t.entries) {
		n = len(t.entries)
	}
	removed := make([]T, 0, len(t.entries)-n)
	for i := len(t.entries) - 1; i >= n; i-- {
		removed = append(removed, t.entries[i])
	}
	var zero T
	for i := n; i < len(t.entries); i++ {
		t.entries[i] = zero
	}
	t.entries = t.entries[:n]
	return removed
}

// Snapshot copies the current entries.
func (t *Table[T]) Snapshot() []T { return append([]T(nil), t.entries...) }

// Reset empties the table.
func (t *Table[T]) Reset() { t.Truncate(0) }

func (t *Table[T]) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.SymbolName()
	}
	return names
}
