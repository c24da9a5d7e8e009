package pattern

import (
	"slices"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/atomese"
	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/space"
	"github.com/roach88/atomspace/internal/types"
)

// Compile builds the Pattern for query link q.
//
// The query link is (body template) or (vardecl body template). Without a
// vardecl every VariableNode free in the body is bound, untyped, in order
// of first occurrence. With one, the body may not use undeclared
// variables and every declared variable must occur in the body.
//
// All failures are MalformedQuery errors.
func Compile(r space.Reader, q atom.Handle) (*Pattern, error) {
	reg, ok := r.Oracle().(types.Resolver)
	if !ok {
		return nil, errors.New("pattern: the store's type oracle cannot resolve type names")
	}
	qa, ok := r.Get(q)
	if !ok {
		return nil, errors.MalformedQueryf("query %s is not in the store", q)
	}

	c := &compiler{
		r:   r,
		reg: reg,
		p:   &Pattern{Query: q, varIndex: make(map[atom.Handle]int)},
	}
	kind, ok := kindOf(reg, qa.Type)
	if !ok {
		return nil, errors.MalformedQueryf("%s is not a query link", reg.TypeName(qa.Type))
	}
	c.p.Kind = kind

	var decl atom.Handle
	switch qa.Arity() {
	case 2:
		c.p.Body, c.p.Template = qa.Out[0], qa.Out[1]
	case 3:
		decl, c.p.Body, c.p.Template = qa.Out[0], qa.Out[1], qa.Out[2]
	default:
		return nil, errors.MalformedQueryf("%s expects 2 or 3 outgoing atoms, got %d",
			reg.TypeName(qa.Type), qa.Arity())
	}

	if err := c.bindVariables(decl); err != nil {
		return nil, err
	}
	if err := c.extract(c.p.Body); err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c.p, nil
}

// MustCompile is like Compile but panics on error.
// Use only in tests or when the query is known to be valid.
func MustCompile(r space.Reader, q atom.Handle) *Pattern {
	p, err := Compile(r, q)
	if err != nil {
		panic(err)
	}
	return p
}

func kindOf(o types.Oracle, t types.Type) (Kind, bool) {
	switch {
	case o.IsA(t, types.BindLink):
		return KindBind, true
	case o.IsA(t, types.GetLink):
		return KindGet, true
	case o.IsA(t, types.AbsenceQueryLink):
		return KindAbsence, true
	default:
		return 0, false
	}
}

type compiler struct {
	r   space.Reader
	reg types.Resolver
	p   *Pattern
}

func (c *compiler) get(h atom.Handle) (atom.Atom, error) {
	a, ok := c.r.Get(h)
	if !ok {
		return atom.Atom{}, errors.MalformedQueryf("atom %s is not in the store", h)
	}
	return a, nil
}

func (c *compiler) short(h atom.Handle) string { return atomese.Short(c.r, h) }

func (c *compiler) isA(t, ancestor types.Type) bool { return c.reg.IsA(t, ancestor) }

// bindVariables declares the bound variables, explicitly from decl or
// implicitly from the body.
func (c *compiler) bindVariables(decl atom.Handle) error {
	free, err := c.freeVars(c.p.Body)
	if err != nil {
		return err
	}

	if decl == atom.Invalid {
		for _, v := range free {
			if err := c.addVar(v, nil); err != nil {
				return err
			}
		}
		return nil
	}

	if err := c.declare(decl); err != nil {
		return err
	}
	for _, v := range free {
		if !c.p.IsVar(v) {
			return errors.WithHint(
				errors.MalformedQueryf("variable %s is used in the body but not declared", c.short(v)),
				"declare it, or quote it to match the VariableNode literally")
		}
	}
	for _, v := range c.p.Vars {
		if !slices.Contains(free, v.Handle) {
			return errors.MalformedQueryf("declared variable %s does not occur in the body", v.Name)
		}
	}
	return nil
}

func (c *compiler) declare(decl atom.Handle) error {
	a, err := c.get(decl)
	if err != nil {
		return err
	}
	switch {
	case !a.IsLink() && c.isA(a.Type, types.VariableNode):
		return c.addVar(decl, nil)
	case a.Type == types.TypedVariableLink:
		return c.declareTyped(a)
	case a.Type == types.VariableList:
		for _, h := range a.Out {
			ca, err := c.get(h)
			if err != nil {
				return err
			}
			switch {
			case !ca.IsLink() && c.isA(ca.Type, types.VariableNode):
				err = c.addVar(h, nil)
			case ca.Type == types.TypedVariableLink:
				err = c.declareTyped(ca)
			default:
				err = errors.MalformedQueryf("cannot declare %s as a variable", c.short(h))
			}
			if err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.MalformedQueryf("unresolvable variable declaration %s", c.short(decl))
	}
}

func (c *compiler) declareTyped(a atom.Atom) error {
	if a.Arity() != 2 {
		return errors.MalformedQueryf("TypedVariableLink expects 2 outgoing atoms, got %d", a.Arity())
	}
	va, err := c.get(a.Out[0])
	if err != nil {
		return err
	}
	if va.IsLink() || !c.isA(va.Type, types.VariableNode) {
		return errors.MalformedQueryf("TypedVariableLink must start with a variable, got %s", c.short(a.Out[0]))
	}
	r, err := c.restriction(a.Out[1])
	if err != nil {
		return err
	}
	if !satisfiable(c.reg, r) {
		return errors.MalformedQueryf("restriction %s on %s admits no type", r.Describe(c.reg), va.Name)
	}
	return c.addVar(a.Out[0], r)
}

func (c *compiler) restriction(h atom.Handle) (Restriction, error) {
	a, err := c.get(h)
	if err != nil {
		return nil, err
	}
	switch a.Type {
	case types.TypeNode:
		t, ok := c.reg.Lookup(a.Name)
		if !ok {
			return nil, errors.MalformedQueryf("unknown type %q in variable declaration", a.Name)
		}
		return TypeIs{Type: t}, nil
	case types.TypeChoice, types.TypeIntersectionLink:
		if a.Arity() == 0 {
			return nil, errors.MalformedQueryf("empty %s in variable declaration", c.reg.TypeName(a.Type))
		}
		members := make([]Restriction, 0, a.Arity())
		for _, m := range a.Out {
			r, err := c.restriction(m)
			if err != nil {
				return nil, err
			}
			members = append(members, r)
		}
		if a.Type == types.TypeChoice {
			return AnyOf(members), nil
		}
		return AllOf(members), nil
	default:
		return nil, errors.MalformedQueryf("unsupported type restriction %s", c.short(h))
	}
}

func (c *compiler) addVar(h atom.Handle, r Restriction) error {
	if c.p.IsVar(h) {
		return errors.MalformedQueryf("variable %s declared twice", c.short(h))
	}
	a, err := c.get(h)
	if err != nil {
		return err
	}
	c.p.varIndex[h] = len(c.p.Vars)
	c.p.Vars = append(c.p.Vars, Variable{Handle: h, Name: a.Name, Restriction: r})
	return nil
}

// freeVars lists the VariableNodes of h outside quoted regions, in order of
// first occurrence, and records the QuoteLinks it passes.
func (c *compiler) freeVars(h atom.Handle) ([]atom.Handle, error) {
	var out []atom.Handle
	seen := make(map[atom.Handle]bool)
	err := c.walk(h, false, func(v atom.Handle) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	})
	return out, err
}

func (c *compiler) walk(h atom.Handle, quoted bool, visit func(atom.Handle)) error {
	a, err := c.get(h)
	if err != nil {
		return err
	}
	if !a.IsLink() {
		if !quoted && c.isA(a.Type, types.VariableNode) {
			visit(h)
		}
		return nil
	}
	switch {
	case !quoted && a.Type == types.QuoteLink:
		if a.Arity() != 1 {
			return errors.MalformedQueryf("QuoteLink expects 1 outgoing atom, got %d", a.Arity())
		}
		if !slices.Contains(c.p.Quoted, h) {
			c.p.Quoted = append(c.p.Quoted, h)
		}
		quoted = true
	case quoted && a.Type == types.UnquoteLink:
		if a.Arity() != 1 {
			return errors.MalformedQueryf("UnquoteLink expects 1 outgoing atom, got %d", a.Arity())
		}
		quoted = false
	}
	for _, child := range a.Out {
		if err := c.walk(child, quoted, visit); err != nil {
			return err
		}
	}
	return nil
}

// clauseVars lists the bound variables free in h in declaration order.
func (c *compiler) clauseVars(h atom.Handle) ([]atom.Handle, error) {
	free, err := c.freeVars(h)
	if err != nil {
		return nil, err
	}
	vars := free[:0]
	for _, v := range free {
		if c.p.IsVar(v) {
			vars = append(vars, v)
		}
	}
	slices.SortFunc(vars, func(a, b atom.Handle) int {
		return c.p.varIndex[a] - c.p.varIndex[b]
	})
	return vars, nil
}

func (c *compiler) clause(h atom.Handle, negate bool) (Clause, error) {
	vars, err := c.clauseVars(h)
	if err != nil {
		return Clause{}, err
	}
	return Clause{Handle: h, Vars: vars, Negate: negate}, nil
}

// extract splits the body into mandatory, optional and virtual clauses.
func (c *compiler) extract(h atom.Handle) error {
	a, err := c.get(h)
	if err != nil {
		return err
	}
	if a.Type == types.AndLink {
		for _, child := range a.Out {
			if err := c.extract(child); err != nil {
				return err
			}
		}
		return nil
	}

	switch a.Type {
	case types.AbsentLink, types.NotLink:
		if a.Arity() != 1 {
			return errors.MalformedQueryf("%s expects 1 outgoing atom, got %d", c.reg.TypeName(a.Type), a.Arity())
		}
		inner := a.Out[0]
		if a.Type == types.NotLink {
			virtual, err := c.isVirtual(inner)
			if err != nil {
				return err
			}
			if virtual {
				return c.addVirtual(inner, true)
			}
		}
		g, err := c.group(inner)
		if err != nil {
			return err
		}
		c.p.Optional = append(c.p.Optional, g)
		return nil
	}

	virtual, err := c.isVirtual(h)
	if err != nil {
		return err
	}
	if virtual {
		return c.addVirtual(h, false)
	}
	cl, err := c.clause(h, false)
	if err != nil {
		return err
	}
	c.p.Mandatory = append(c.p.Mandatory, cl)
	return nil
}

func (c *compiler) addVirtual(h atom.Handle, negate bool) error {
	if err := c.checkVirtualShape(h); err != nil {
		return err
	}
	cl, err := c.clause(h, negate)
	if err != nil {
		return err
	}
	c.p.Virtual = append(c.p.Virtual, cl)
	return nil
}

// group builds an optional group from an absent clause, flattening a
// conjunction.
func (c *compiler) group(h atom.Handle) (Group, error) {
	var g Group
	var add func(atom.Handle) error
	add = func(h atom.Handle) error {
		a, err := c.get(h)
		if err != nil {
			return err
		}
		switch a.Type {
		case types.AndLink:
			for _, child := range a.Out {
				if err := add(child); err != nil {
					return err
				}
			}
			return nil
		case types.AbsentLink:
			return errors.MalformedQueryf("nested absence %s is not supported", c.short(h))
		}
		virtual, err := c.isVirtual(h)
		if err != nil {
			return err
		}
		if virtual {
			if err := c.checkVirtualShape(h); err != nil {
				return err
			}
		}
		cl, err := c.clause(h, false)
		if err != nil {
			return err
		}
		if virtual {
			g.Virtual = append(g.Virtual, cl)
		} else {
			g.Clauses = append(g.Clauses, cl)
		}
		return nil
	}
	if err := add(h); err != nil {
		return Group{}, err
	}
	g.Vars = c.unionVars(g.Clauses)
	return g, nil
}

// isVirtual reports whether h is evaluated rather than matched: a
// VirtualLink, or an EvaluationLink over a GroundedPredicateNode.
func (c *compiler) isVirtual(h atom.Handle) (bool, error) {
	a, err := c.get(h)
	if err != nil {
		return false, err
	}
	if !a.IsLink() {
		return false, nil
	}
	if c.isA(a.Type, types.VirtualLink) {
		return true, nil
	}
	if a.Type == types.EvaluationLink && a.Arity() > 0 {
		pred, err := c.get(a.Out[0])
		if err != nil {
			return false, err
		}
		return !pred.IsLink() && c.isA(pred.Type, types.GroundedPredicateNode), nil
	}
	return false, nil
}

// checkVirtualShape requires binary comparisons and (EvaluationLink gpn
// (ListLink args...)), with every argument either a variable or free of
// variables.
func (c *compiler) checkVirtualShape(h atom.Handle) error {
	a, err := c.get(h)
	if err != nil {
		return err
	}
	var args []atom.Handle
	if a.Type == types.EvaluationLink {
		if a.Arity() != 2 {
			return errors.MalformedQueryf("grounded predicate %s expects (EvaluationLink predicate (ListLink args...))", c.short(h))
		}
		list, err := c.get(a.Out[1])
		if err != nil {
			return err
		}
		if list.Type != types.ListLink {
			return errors.MalformedQueryf("grounded predicate arguments must be a ListLink, got %s", c.short(a.Out[1]))
		}
		args = list.Out
	} else {
		if a.Arity() != 2 {
			return errors.MalformedQueryf("%s expects 2 outgoing atoms, got %d", c.reg.TypeName(a.Type), a.Arity())
		}
		args = a.Out
	}
	for _, arg := range args {
		if c.p.IsVar(arg) {
			continue
		}
		vars, err := c.clauseVars(arg)
		if err != nil {
			return err
		}
		if len(vars) > 0 {
			return errors.MalformedQueryf("argument %s of %s nests a variable; pass variables directly",
				c.short(arg), c.reg.TypeName(a.Type))
		}
	}
	return nil
}

func (c *compiler) unionVars(cls []Clause) []atom.Handle {
	seen := make(map[atom.Handle]bool)
	var out []atom.Handle
	for _, cl := range cls {
		for _, v := range cl.Vars {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	slices.SortFunc(out, func(a, b atom.Handle) int {
		return c.p.varIndex[a] - c.p.varIndex[b]
	})
	return out
}

// finish applies the kind, checks virtual coverage and builds components.
func (c *compiler) finish() error {
	p := c.p
	if len(p.Mandatory) == 0 && len(p.Optional) == 0 && len(p.Virtual) == 0 {
		return errors.MalformedQueryf("query body %s has no clauses", c.short(p.Body))
	}

	if p.Kind == KindAbsence {
		if len(p.Optional) > 0 {
			return errors.MalformedQueryf("AbsenceQueryLink body may not contain AbsentLink")
		}
		g := Group{Clauses: p.Mandatory, Virtual: p.Virtual}
		g.Vars = c.unionVars(g.Clauses)
		p.Optional = []Group{g}
		p.Mandatory, p.Virtual = nil, nil
	}

	grounded := make(map[atom.Handle]bool)
	for _, v := range c.unionVars(p.Mandatory) {
		grounded[v] = true
	}
	for _, vc := range p.Virtual {
		for _, v := range vc.Vars {
			if !grounded[v] {
				return errors.MalformedQueryf("virtual clause %s uses %s, which no mandatory clause grounds",
					c.short(vc.Handle), c.short(v))
			}
		}
	}
	for _, g := range p.Optional {
		for _, vc := range g.Virtual {
			for _, v := range vc.Vars {
				if !grounded[v] && !slices.Contains(g.Vars, v) {
					return errors.MalformedQueryf("virtual clause %s uses %s, which nothing in its group grounds",
						c.short(vc.Handle), c.short(v))
				}
			}
		}
	}

	c.components()
	return nil
}

// components partitions the mandatory clauses by shared variables and
// attaches each virtual clause to the component holding all its variables.
func (c *compiler) components() {
	p := c.p
	n := len(p.Mandatory)
	if n == 0 {
		p.CrossVirtual = p.Virtual
		return
	}

	uf := newUnionFind(n)
	owner := make(map[atom.Handle]int)
	for i, cl := range p.Mandatory {
		for _, v := range cl.Vars {
			if j, ok := owner[v]; ok {
				uf.union(i, j)
			} else {
				owner[v] = i
			}
		}
	}

	index := make(map[int]int) // union-find root -> component position
	for i, cl := range p.Mandatory {
		root := uf.find(i)
		ci, ok := index[root]
		if !ok {
			ci = len(p.Components)
			index[root] = ci
			p.Components = append(p.Components, Group{})
		}
		p.Components[ci].Clauses = append(p.Components[ci].Clauses, cl)
	}
	for i := range p.Components {
		p.Components[i].Vars = c.unionVars(p.Components[i].Clauses)
	}

	for _, vc := range p.Virtual {
		comp := -1
		for _, v := range vc.Vars {
			ci := index[uf.find(owner[v])]
			if comp == -1 {
				comp = ci
			} else if comp != ci {
				comp = -2
				break
			}
		}
		if comp >= 0 {
			p.Components[comp].Virtual = append(p.Components[comp].Virtual, vc)
		} else {
			p.CrossVirtual = append(p.CrossVirtual, vc)
		}
	}
}
