// Package pattern compiles a query link into a Pattern: its bound
// variables with their type restrictions, its clauses split into
// mandatory, optional and virtual, and the connected components of the
// mandatory clauses.
package pattern

import (
	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/types"
)

// Kind is the query subtype, which selects what the dispatcher does with
// the groundings.
type Kind int

const (
	// KindBind finds and rewrites; an absence-shaped pattern with no
	// groundings instantiates the template once.
	KindBind Kind = iota + 1

	// KindGet finds and reports; nothing is produced when nothing matches.
	KindGet

	// KindAbsence reports what is absent: the whole body is one optional
	// group, so the template is produced once exactly when nothing matches.
	KindAbsence
)

func (k Kind) String() string {
	switch k {
	case KindBind:
		return "bind"
	case KindGet:
		return "get"
	case KindAbsence:
		return "absence"
	default:
		return "unknown"
	}
}

// Variable is a bound variable and the restriction on what may ground it.
// A nil Restriction admits any atom.
type Variable struct {
	Handle      atom.Handle
	Name        string
	Restriction Restriction
}

// Admits reports whether an atom of type t may ground v.
func (v Variable) Admits(o types.Oracle, t types.Type) bool {
	return v.Restriction == nil || v.Restriction.Admits(o, t)
}

// Clause is one conjunct of the body.
type Clause struct {
	// Handle is the clause atom. For an absent clause it is the atom under
	// the AbsentLink, not the AbsentLink itself.
	Handle atom.Handle

	// Vars are the bound variables occurring free in the clause, in
	// declaration order.
	Vars []atom.Handle

	// Negate inverts a virtual clause (NotLink over a virtual link).
	Negate bool
}

// Group is a conjunction of clauses searched as a unit: the optional
// groups, and the components of the mandatory clauses.
type Group struct {
	Clauses []Clause
	Virtual []Clause
	Vars    []atom.Handle
}

// Pattern is a compiled query. It is immutable and safe to share.
type Pattern struct {
	Query    atom.Handle
	Kind     Kind
	Body     atom.Handle
	Template atom.Handle
	Vars     []Variable

	// Mandatory structural clauses, in body order.
	Mandatory []Clause

	// Optional groups: a grounding is rejected when any of them can be
	// grounded under it.
	Optional []Group

	// Virtual clauses evaluated against complete mandatory groundings.
	Virtual []Clause

	// Components partition Mandatory by shared variables. Component-local
	// virtual clauses are attached to their component.
	Components []Group

	// CrossVirtual are virtual clauses whose variables span components
	// (or that have none); they are checked after the cartesian product.
	CrossVirtual []Clause

	// Quoted lists the QuoteLink atoms found in the body.
	Quoted []atom.Handle

	varIndex map[atom.Handle]int
}

// Variable returns the declaration of h, if h is a bound variable.
func (p *Pattern) Variable(h atom.Handle) (Variable, bool) {
	i, ok := p.varIndex[h]
	if !ok {
		return Variable{}, false
	}
	return p.Vars[i], true
}

// VarIndex returns the declaration position of bound variable h.
func (p *Pattern) VarIndex(h atom.Handle) (int, bool) {
	i, ok := p.varIndex[h]
	return i, ok
}

// IsVar reports whether h is a bound variable of p.
func (p *Pattern) IsVar(h atom.Handle) bool {
	_, ok := p.varIndex[h]
	return ok
}

// VarHandles returns the bound variables in declaration order.
func (p *Pattern) VarHandles() []atom.Handle {
	out := make([]atom.Handle, len(p.Vars))
	for i, v := range p.Vars {
		out[i] = v.Handle
	}
	return out
}

// AbsenceShaped reports whether the pattern has optional clauses and no
// mandatory ones: the shape whose empty search means "confirmed absent".
func (p *Pattern) AbsenceShaped() bool {
	return len(p.Mandatory) == 0 && len(p.Optional) > 0
}

// Disconnected reports whether the mandatory clauses fall into more than
// one group even after joining components through cross-component virtual
// clauses.
func (p *Pattern) Disconnected() bool {
	if len(p.Components) < 2 {
		return false
	}
	uf := newUnionFind(len(p.Components))
	owner := make(map[atom.Handle]int)
	for i, c := range p.Components {
		for _, v := range c.Vars {
			owner[v] = i
		}
	}
	for _, vc := range p.CrossVirtual {
		first := -1
		for _, v := range vc.Vars {
			ci, ok := owner[v]
			if !ok {
				continue
			}
			if first < 0 {
				first = ci
			} else {
				uf.union(first, ci)
			}
		}
	}
	return uf.groups() > 1
}
