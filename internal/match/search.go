package match

import (
	"context"
	"slices"
	"strconv"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/eval"
	"github.com/roach88/atomspace/internal/pattern"
	"github.com/roach88/atomspace/internal/types"
)

// binding holds a value per bound variable, indexed by declaration
// position; atom.Invalid marks an ungrounded variable. Bindings are never
// modified once shared.
type binding []atom.Handle

func (b binding) with(i int, h atom.Handle) binding {
	nb := slices.Clone(b)
	nb[i] = h
	return nb
}

// merge copies o's grounded variables into b.
func (b binding) merge(o binding) {
	for i, h := range o {
		if h.Valid() {
			b[i] = h
		}
	}
}

func (b binding) key() string {
	buf := make([]byte, 0, len(b)*4)
	for _, h := range b {
		buf = strconv.AppendUint(buf, uint64(h), 36)
		buf = append(buf, ',')
	}
	return string(buf)
}

func dedupe(bs []binding) []binding {
	if len(bs) < 2 {
		return bs
	}
	seen := make(map[string]struct{}, len(bs))
	out := bs[:0]
	for _, b := range bs {
		k := b.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, b)
	}
	return out
}

type termKey struct {
	h      atom.Handle
	quoted bool
}

// searcher runs searches for one goroutine. Its memo tables are not shared.
type searcher struct {
	m       *matcher
	literal map[termKey]bool
	tainted map[atom.Handle]bool
	data    map[atom.Handle]bool
}

func newSearcher(m *matcher) *searcher {
	return &searcher{
		m:       m,
		literal: make(map[termKey]bool),
		tainted: make(map[atom.Handle]bool),
		data:    make(map[atom.Handle]bool),
	}
}

// frame is one choice point: the clause at position level of the plan, the
// candidates for it, and the bindings the current candidate unified to.
type frame struct {
	level int
	cands []atom.Handle
	next  int
	alts  []binding
	base  binding
}

// solve enumerates the groundings of clauses that extend init and satisfy
// virtuals, calling emit for each until it returns false.
func (s *searcher) solve(ctx context.Context, clauses, virtuals []pattern.Clause, init binding,
	emit func(binding) (bool, error)) error {

	if len(clauses) == 0 {
		ok, err := s.virtuals(ctx, virtuals, init)
		if err != nil || !ok {
			return err
		}
		_, err = emit(init)
		return err
	}

	order := s.plan(clauses, init)
	upfront, checks := s.schedule(order, clauses, virtuals, init)
	if ok, err := s.virtuals(ctx, upfront, init); err != nil || !ok {
		return err
	}

	first := clauses[order[0]].Handle
	stack := []frame{{level: 0, cands: s.candidates(first, init), base: init}}
	for len(stack) > 0 {
		top := len(stack) - 1
		f := &stack[top]

		if len(f.alts) == 0 {
			if f.next >= len(f.cands) {
				stack = stack[:top]
				continue
			}
			c := f.cands[f.next]
			f.next++
			if err := s.m.tick(ctx, 1); err != nil {
				return err
			}
			if !s.present(c) {
				continue
			}
			alts, err := s.unify(ctx, clauses[order[f.level]].Handle, c, false, f.base)
			if err != nil {
				return err
			}
			f.alts = alts
			continue
		}

		b := f.alts[0]
		f.alts = f.alts[1:]
		ok, err := s.virtuals(ctx, checks[f.level], b)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		if f.level == len(order)-1 {
			more, err := emit(b)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
			continue
		}
		next := f.level + 1
		stack = append(stack, frame{
			level: next,
			cands: s.candidates(clauses[order[next]].Handle, b),
			base:  b,
		})
	}
	return nil
}

// plan orders clauses for search: the thinnest clause first, then always a
// clause sharing a grounded variable when there is one, thinnest first.
func (s *searcher) plan(clauses []pattern.Clause, init binding) []int {
	est := make([]int, len(clauses))
	for i, cl := range clauses {
		est[i] = len(s.candidates(cl.Handle, init))
	}

	bound := make(map[atom.Handle]bool)
	for i, h := range init {
		if h.Valid() {
			bound[s.m.p.Vars[i].Handle] = true
		}
	}
	connected := func(cl pattern.Clause) bool {
		if len(cl.Vars) == 0 {
			return true
		}
		for _, v := range cl.Vars {
			if bound[v] {
				return true
			}
		}
		return false
	}

	order := make([]int, 0, len(clauses))
	picked := make([]bool, len(clauses))
	for len(order) < len(clauses) {
		best := -1
		for i, cl := range clauses {
			if picked[i] {
				continue
			}
			if best < 0 {
				best = i
				continue
			}
			ci, cb := connected(cl), connected(clauses[best])
			if ci != cb {
				if ci {
					best = i
				}
				continue
			}
			if est[i] < est[best] {
				best = i
			}
		}
		picked[best] = true
		order = append(order, best)
		for _, v := range clauses[best].Vars {
			bound[v] = true
		}
	}
	return order
}

// schedule assigns each virtual clause to the first plan level after which
// all its variables are grounded. upfront holds those grounded by init.
func (s *searcher) schedule(order []int, clauses, virtuals []pattern.Clause, init binding) (upfront []pattern.Clause, checks [][]pattern.Clause) {
	firstBound := make(map[atom.Handle]int)
	for i, h := range init {
		if h.Valid() {
			firstBound[s.m.p.Vars[i].Handle] = -1
		}
	}
	for level, ci := range order {
		for _, v := range clauses[ci].Vars {
			if _, ok := firstBound[v]; !ok {
				firstBound[v] = level
			}
		}
	}

	checks = make([][]pattern.Clause, len(order))
	for _, vc := range virtuals {
		level := -1
		for _, v := range vc.Vars {
			lv, ok := firstBound[v]
			if !ok {
				lv = len(order) - 1
			}
			level = max(level, lv)
		}
		if level < 0 {
			upfront = append(upfront, vc)
		} else {
			checks[level] = append(checks[level], vc)
		}
	}
	return upfront, checks
}

// virtuals reports whether every clause in vcs holds under b.
func (s *searcher) virtuals(ctx context.Context, vcs []pattern.Clause, b binding) (bool, error) {
	if len(vcs) == 0 {
		return true, nil
	}
	bind := s.binder(b)
	for _, vc := range vcs {
		ok, err := s.m.eval.Evaluate(ctx, s.m.r, vc.Handle, bind)
		if err != nil {
			return false, err
		}
		if ok == vc.Negate {
			return false, nil
		}
	}
	return true, nil
}

func (s *searcher) binder(b binding) eval.Binder {
	return func(h atom.Handle) atom.Handle {
		if i, ok := s.m.p.VarIndex(h); ok && b[i].Valid() {
			return b[i]
		}
		return h
	}
}

// present reports whether h counts as data: it is asserted, or some link
// that is data and not itself a query link contains it. Atoms reachable
// only through query links, this query's or any other stored one's, are
// not data. An atom outside this query that nothing contains is data.
func (s *searcher) present(h atom.Handle) bool {
	if v, ok := s.data[h]; ok {
		return v
	}
	v := s.m.r.Asserted(h)
	if !v {
		in := s.m.r.Incoming(h)
		_, mine := s.m.own[h]
		v = len(in) == 0 && !mine
		for _, p := range in {
			if v {
				break
			}
			pa, ok := s.m.r.Get(p)
			if ok && !s.m.r.Oracle().IsA(pa.Type, types.PatternLink) {
				v = s.present(p)
			}
		}
	}
	s.data[h] = v
	return v
}

// candidates lists the atoms a clause may ground to under b, found by
// climbing the incidence index from the thinnest grounded sub-term. A
// clause with nothing grounded falls back to the type index.
func (s *searcher) candidates(clause atom.Handle, b binding) []atom.Handle {
	if cands, ok := s.anchor(clause, false, b); ok {
		return cands
	}
	t, _ := s.strip(clause, false)
	ta, _ := s.m.r.Get(t)
	if !ta.IsLink() {
		return s.m.r.Handles()
	}
	var out []atom.Handle
	for _, h := range s.m.r.OfType(ta.Type, false) {
		if a, _ := s.m.r.Get(h); len(a.Out) == len(ta.Out) {
			out = append(out, h)
		}
	}
	return out
}

// anchor computes the possible groundings of term under b, if any part of
// it is grounded.
func (s *searcher) anchor(term atom.Handle, quoted bool, b binding) ([]atom.Handle, bool) {
	t, quoted := s.strip(term, quoted)
	if s.isLiteral(t, quoted) {
		return []atom.Handle{t}, true
	}
	if !quoted {
		if i, ok := s.m.p.VarIndex(t); ok {
			if b[i].Valid() {
				return []atom.Handle{b[i]}, true
			}
			return nil, false
		}
	}

	ta, _ := s.m.r.Get(t)
	var best []atom.Handle
	found := false
	for _, c := range ta.Out {
		cands, ok := s.anchor(c, quoted, b)
		if ok && (!found || len(cands) < len(best)) {
			best, found = cands, true
			if len(best) == 0 {
				break
			}
		}
	}
	if !found {
		return nil, false
	}

	seen := make(map[atom.Handle]struct{})
	var out []atom.Handle
	for _, c := range best {
		for _, in := range s.m.r.Incoming(c) {
			if _, dup := seen[in]; dup {
				continue
			}
			seen[in] = struct{}{}
			if a, _ := s.m.r.Get(in); a.Type == ta.Type && len(a.Out) == len(ta.Out) {
				out = append(out, in)
			}
		}
	}
	slices.Sort(out)
	return out, true
}

// strip consumes QuoteLink and UnquoteLink wrappers, tracking quote state.
func (s *searcher) strip(h atom.Handle, quoted bool) (atom.Handle, bool) {
	for {
		a, ok := s.m.r.Get(h)
		if !ok || len(a.Out) != 1 {
			return h, quoted
		}
		switch {
		case !quoted && a.Type == types.QuoteLink:
			h, quoted = a.Out[0], true
		case quoted && a.Type == types.UnquoteLink:
			h, quoted = a.Out[0], false
		default:
			return h, quoted
		}
	}
}

// isLiteral reports whether term matches only itself: it has no free bound
// variable and no quote wrapper to consume.
func (s *searcher) isLiteral(term atom.Handle, quoted bool) bool {
	k := termKey{term, quoted}
	if v, ok := s.literal[k]; ok {
		return v
	}
	a, _ := s.m.r.Get(term)
	v := true
	switch {
	case !a.IsLink():
		v = quoted || !s.m.p.IsVar(term)
	case !quoted && a.Type == types.QuoteLink, quoted && a.Type == types.UnquoteLink:
		v = false
	default:
		for _, c := range a.Out {
			if !s.isLiteral(c, quoted) {
				v = false
				break
			}
		}
	}
	s.literal[k] = v
	return v
}

// isTainted reports whether h contains a bound variable of the pattern.
func (s *searcher) isTainted(h atom.Handle) bool {
	if v, ok := s.tainted[h]; ok {
		return v
	}
	v := s.m.p.IsVar(h)
	if !v {
		a, _ := s.m.r.Get(h)
		for _, c := range a.Out {
			if s.isTainted(c) {
				v = true
				break
			}
		}
	}
	s.tainted[h] = v
	return v
}

// admits reports whether g may ground the variable at position i.
func (s *searcher) admits(i int, g atom.Handle) bool {
	ga, ok := s.m.r.Get(g)
	if !ok || !s.m.p.Vars[i].Admits(s.m.r.Oracle(), ga.Type) {
		return false
	}
	return !s.isTainted(g)
}

// unify matches pattern term pat against ground atom g under b and returns
// every extension of b that makes them equal. Unordered links can unify in
// several ways; ordered ones in at most one.
func (s *searcher) unify(ctx context.Context, pat, g atom.Handle, quoted bool, b binding) ([]binding, error) {
	if s.isLiteral(pat, quoted) {
		if pat == g {
			return []binding{b}, nil
		}
		return nil, nil
	}

	pa, _ := s.m.r.Get(pat)
	if !quoted {
		if i, ok := s.m.p.VarIndex(pat); ok {
			if cur := b[i]; cur.Valid() {
				if cur == g {
					return []binding{b}, nil
				}
				return nil, nil
			}
			if !s.admits(i, g) {
				return nil, nil
			}
			return []binding{b.with(i, g)}, nil
		}
		if pa.Type == types.QuoteLink {
			return s.unify(ctx, pa.Out[0], g, true, b)
		}
	} else if pa.Type == types.UnquoteLink {
		return s.unify(ctx, pa.Out[0], g, false, b)
	}

	ga, ok := s.m.r.Get(g)
	if !ok || !ga.IsLink() || ga.Type != pa.Type || len(ga.Out) != len(pa.Out) {
		return nil, nil
	}
	if types.IsUnordered(s.m.r.Oracle(), pa.Type) {
		return s.unifyUnordered(ctx, pa.Out, ga.Out, quoted, b)
	}

	bs := []binding{b}
	for i := range pa.Out {
		var next []binding
		for _, cur := range bs {
			ext, err := s.unify(ctx, pa.Out[i], ga.Out[i], quoted, cur)
			if err != nil {
				return nil, err
			}
			next = append(next, ext...)
		}
		if len(next) == 0 {
			return nil, nil
		}
		bs = next
	}
	return bs, nil
}

// unifyUnordered tries every assignment of ground children to pattern
// children. Each child tried counts as one expansion.
func (s *searcher) unifyUnordered(ctx context.Context, pats, gs []atom.Handle, quoted bool, b binding) ([]binding, error) {
	var out []binding
	used := make([]bool, len(gs))
	var assign func(i int, cur binding) error
	assign = func(i int, cur binding) error {
		if i == len(pats) {
			out = append(out, cur)
			return nil
		}
		for j, g := range gs {
			if used[j] {
				continue
			}
			// equal children are interchangeable
			if j > 0 && gs[j-1] == g && !used[j-1] {
				continue
			}
			if err := s.m.tick(ctx, 1); err != nil {
				return err
			}
			ext, err := s.unify(ctx, pats[i], g, quoted, cur)
			if err != nil {
				return err
			}
			used[j] = true
			for _, nb := range ext {
				if err := assign(i+1, nb); err != nil {
					return err
				}
			}
			used[j] = false
		}
		return nil
	}
	if err := assign(0, b); err != nil {
		return nil, err
	}
	return dedupe(out), nil
}
