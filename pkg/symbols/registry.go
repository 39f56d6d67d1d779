package symbols

import (
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/xplshn/sbc/pkg/ast"
	"gopkg.in/yaml.v3"
)

// Builtin is the signature of a function the virtual machine implements
// natively. Calls to names that no user callable declares are looked up here.
type Builtin struct {
	Name   string
	Params []*ast.Type
	Return *ast.Type
}

func (b *Builtin) Arity() int { return len(b.Params) }

type Registry struct {
	builtins map[string]*Builtin
}

func NewRegistry() *Registry {
	return &Registry{builtins: make(map[string]*Builtin)}
}

// DefaultRegistry holds the builtins the reference machine provides.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&Builtin{Name: "print", Params: []*ast.Type{ast.TypeAny}, Return: ast.TypeVoid})
	r.Register(&Builtin{Name: "println", Params: []*ast.Type{ast.TypeAny}, Return: ast.TypeVoid})
	r.Register(&Builtin{Name: "sqrt", Params: []*ast.Type{ast.TypeFloat}, Return: ast.TypeFloat})
	r.Register(&Builtin{Name: "abs", Params: []*ast.Type{ast.TypeInt}, Return: ast.TypeInt})
	r.Register(&Builtin{Name: "len", Params: []*ast.Type{ast.TypeString}, Return: ast.TypeInt})
	r.Register(&Builtin{Name: "to_string", Params: []*ast.Type{ast.TypeAny}, Return: ast.TypeString})
	r.Register(&Builtin{Name: "to_int", Params: []*ast.Type{ast.TypeString}, Return: ast.TypeInt})
	return r
}

func (r *Registry) Register(b *Builtin) { r.builtins[b.Name] = b }

func (r *Registry) Lookup(name string) (*Builtin, bool) {
	b, ok := r.builtins[name]
	return b, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builtins))
	for name := range r.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var scalarTypes = map[string]*ast.Type{
	"void":   ast.TypeVoid,
	"int":    ast.TypeInt,
	"float":  ast.TypeFloat,
	"bool":   ast.TypeBool,
	"string": ast.TypeString,
	"any":    ast.TypeAny,
}

type registryFile struct {
	Builtins []struct {
		Name    string   `yaml:"name"`
		Params  []string `yaml:"params"`
		Returns string   `yaml:"returns"`
	} `yaml:"builtins"`
}

// LoadRegistry reads builtin signatures from YAML and adds them to the
// default set. Only scalar types may appear in a signature.
//
//	builtins:
//	  - name: clamp
//	    params: [int, int, int]
//	    returns: int
func LoadRegistry(rd io.Reader) (*Registry, error) {
	var f registryFile
	if err := yaml.NewDecoder(rd).Decode(&f); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decoding builtin registry")
	}

	r := DefaultRegistry()
	for _, entry := range f.Builtins {
		if entry.Name == "" {
			return nil, errors.New("builtin registry: entry without a name")
		}
		b := &Builtin{Name: entry.Name, Return: ast.TypeVoid}
		for _, p := range entry.Params {
			t, ok := scalarTypes[p]
			if !ok || t == ast.TypeVoid {
				return nil, errors.Errorf("builtin registry: %s: invalid parameter type '%s'", entry.Name, p)
			}
			b.Params = append(b.Params, t)
		}
		if entry.Returns != "" {
			t, ok := scalarTypes[entry.Returns]
			if !ok {
				return nil, errors.Errorf("builtin registry: %s: invalid return type '%s'", entry.Name, entry.Returns)
			}
			b.Return = t
		}
		r.Register(b)
	}
	return r, nil
}
