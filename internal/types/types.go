// Package types is the Type Oracle: a registry of atom type names arranged in
// a multiple-inheritance DAG.
//
// A Registry is immutable once built. Extending it yields a new registry, so
// an Oracle handed to a store never changes underneath it.
package types

import (
	"slices"

	"github.com/roach88/atomspace/internal/errors"
)

// Type identifies an atom type within one Registry.
type Type uint16

// NoType is the zero Type; it is never registered.
const NoType Type = 0

// Oracle answers subtype queries. IsA is reflexive and transitive.
type Oracle interface {
	IsA(child, ancestor Type) bool
	TypeName(t Type) string
}

// Def declares one type and its direct parents.
type Def struct {
	Name    string   `json:"name"`
	Parents []string `json:"parents,omitempty"`
}

// Registry implements Oracle over a fixed table of definitions.
type Registry struct {
	names     []string // index = Type; names[0] is unused
	byName    map[string]Type
	parents   [][]Type
	ancestors []map[Type]struct{} // reflexive-transitive closure
	defs      []Def
}

var _ Oracle = (*Registry)(nil)

// NewRegistry builds a registry from defs. A parent must be declared before
// its children. Duplicate or empty names, unknown parents and inheritance
// cycles are rejected.
func NewRegistry(defs []Def) (*Registry, error) {
	r := &Registry{
		names:     []string{""},
		byName:    make(map[string]Type, len(defs)),
		parents:   [][]Type{nil},
		ancestors: []map[Type]struct{}{nil},
	}
	for _, d := range defs {
		if err := r.add(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(d Def) error {
	if d.Name == "" {
		return errors.New("type name must not be empty")
	}
	if _, dup := r.byName[d.Name]; dup {
		return errors.Newf("type %q declared twice", d.Name)
	}
	if len(r.names) > int(^Type(0)) {
		return errors.Newf("too many types (max %d)", ^Type(0))
	}

	t := Type(len(r.names))
	anc := map[Type]struct{}{t: {}}
	var ps []Type
	for _, pn := range d.Parents {
		if pn == d.Name {
			return errors.Newf("type %q inherits from itself", d.Name)
		}
		p, ok := r.byName[pn]
		if !ok {
			return errors.WithHint(
				errors.Newf("type %q: unknown parent %q", d.Name, pn),
				"parents must be declared before their children; a forward reference also indicates an inheritance cycle")
		}
		if slices.Contains(ps, p) {
			continue
		}
		ps = append(ps, p)
		for a := range r.ancestors[p] {
			anc[a] = struct{}{}
		}
	}

	r.names = append(r.names, d.Name)
	r.byName[d.Name] = t
	r.parents = append(r.parents, ps)
	r.ancestors = append(r.ancestors, anc)
	r.defs = append(r.defs, Def{Name: d.Name, Parents: slices.Clone(d.Parents)})
	return nil
}

// Extend returns a new registry holding r's definitions followed by defs.
func (r *Registry) Extend(defs []Def) (*Registry, error) {
	all := make([]Def, 0, len(r.defs)+len(defs))
	all = append(all, r.defs...)
	all = append(all, defs...)
	return NewRegistry(all)
}

// IsA reports whether child is ancestor or inherits from it. Unknown types
// answer false.
func (r *Registry) IsA(child, ancestor Type) bool {
	if !r.valid(child) || !r.valid(ancestor) {
		return false
	}
	_, ok := r.ancestors[child][ancestor]
	return ok
}

// TypeName returns the declared name, or "<unknown>".
func (r *Registry) TypeName(t Type) string {
	if !r.valid(t) {
		return "<unknown>"
	}
	return r.names[t]
}

// Lookup resolves a type name.
func (r *Registry) Lookup(name string) (Type, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// MustLookup resolves a type name and panics if it is not registered.
// Use only with names known to be registered, such as builtins.
func (r *Registry) MustLookup(name string) Type {
	t, ok := r.byName[name]
	if !ok {
		panic("types: unknown type " + name)
	}
	return t
}

// Parents returns the direct parents of t in declaration order.
func (r *Registry) Parents(t Type) []Type {
	if !r.valid(t) {
		return nil
	}
	return slices.Clone(r.parents[t])
}

// Subtypes returns every registered type that IsA t, t included, in
// registration order.
func (r *Registry) Subtypes(t Type) []Type {
	var out []Type
	for c := 1; c < len(r.names); c++ {
		if r.IsA(Type(c), t) {
			out = append(out, Type(c))
		}
	}
	return out
}

// All returns every registered type in registration order.
func (r *Registry) All() []Type {
	out := make([]Type, 0, len(r.names)-1)
	for t := 1; t < len(r.names); t++ {
		out = append(out, Type(t))
	}
	return out
}

// Names returns every registered type name in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names[1:])
}

// Defs returns the definitions the registry was built from.
func (r *Registry) Defs() []Def {
	return slices.Clone(r.defs)
}

// Len is the number of registered types.
func (r *Registry) Len() int {
	return len(r.names) - 1
}

func (r *Registry) valid(t Type) bool {
	return t != NoType && int(t) < len(r.names)
}

// Resolver is an Oracle that can also resolve names and enumerate its
// types. *Registry implements it.
type Resolver interface {
	Oracle
	Lookup(name string) (Type, bool)
	All() []Type
}

var _ Resolver = (*Registry)(nil)
