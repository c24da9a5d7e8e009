// Package match is the Unification Engine: it finds every grounding of a
// compiled pattern's variables in a store.
//
// Each connected component is searched on its own by depth-first
// backtracking over an explicit stack of choice points; the components'
// groundings are then combined by cartesian product. Virtual clauses are
// evaluated once their variables are grounded, and optional groups veto
// any grounding under which they can themselves be grounded.
//
// Queries live in the same store as the data. An atom counts as data when
// it is asserted or contained in a link that is data and not a query link,
// so the clauses of this query and of any other stored query are not data
// unless stated on their own. No variable is ever grounded by an atom that
// contains one of the pattern's bound variables.
package match

import (
	"cmp"
	"context"
	"slices"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/eval"
	"github.com/roach88/atomspace/internal/logging"
	"github.com/roach88/atomspace/internal/pattern"
	"github.com/roach88/atomspace/internal/space"
)

// Grounding maps bound variables to the atoms grounding them.
type Grounding map[atom.Handle]atom.Handle

// Result is the outcome of a search.
type Result struct {
	// Groundings of the mandatory variables, sorted by value in variable
	// declaration order. A pattern without mandatory clauses has at most
	// the single empty grounding.
	Groundings []Grounding

	// OptionalsPresent is set when some optional group was grounded, which
	// vetoed at least one grounding.
	OptionalsPresent bool

	// Steps is the number of candidate expansions performed.
	Steps int
}

// Evaluator decides virtual clauses.
type Evaluator interface {
	Evaluate(ctx context.Context, r space.Reader, clause atom.Handle, bind eval.Binder) (bool, error)
}

// Option configures a search.
type Option func(*matcher)

// WithParallel searches independent components concurrently.
func WithParallel(on bool) Option {
	return func(m *matcher) { m.parallel = on }
}

// WithMaxSteps bounds the number of candidate expansions. Zero means no
// bound. Exhausting the budget is a SearchTimeout.
func WithMaxSteps(n int) Option {
	return func(m *matcher) { m.maxSteps = int64(n) }
}

// WithEvaluator sets the evaluator for virtual clauses.
func WithEvaluator(e Evaluator) Option {
	return func(m *matcher) { m.eval = e }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *matcher) { m.logger = l }
}

type matcher struct {
	r      space.Reader
	p      *pattern.Pattern
	own    map[atom.Handle]struct{}
	steps  atomic.Int64
	logger *zap.Logger

	parallel bool
	maxSteps int64
	eval     Evaluator
}

// Match finds the groundings of p in r. The caller must keep r stable for
// the duration of the call, e.g. by running it inside space.Space.View.
//
// ctx is checked between candidate expansions; when it is done, or the step
// budget runs out, the search stops and a SearchTimeout error is returned
// with no partial result.
func Match(ctx context.Context, r space.Reader, p *pattern.Pattern, opts ...Option) (*Result, error) {
	m := &matcher{r: r, p: p}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrNop(m.logger)
	if m.eval == nil {
		m.eval = eval.New(eval.WithLogger(m.logger))
	}
	m.own = queryAtoms(r, p.Query)

	if err := m.tick(ctx, 0); err != nil {
		return nil, err
	}

	perComponent, err := m.components(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	s := newSearcher(m)
	err = m.product(ctx, perComponent, func(b binding) error {
		ok, err := s.virtuals(ctx, m.p.CrossVirtual, b)
		if err != nil || !ok {
			return err
		}
		vetoed, err := s.vetoed(ctx, b)
		if err != nil {
			return err
		}
		if vetoed {
			res.OptionalsPresent = true
			return nil
		}
		res.Groundings = append(res.Groundings, m.grounding(b))
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.sort(res.Groundings)
	res.Steps = int(m.steps.Load())
	m.logger.Debug("match complete",
		zap.Int(logging.FieldCount, len(res.Groundings)),
		zap.Int(logging.FieldSteps, res.Steps),
		zap.Bool("optionals_present", res.OptionalsPresent))
	return res, nil
}

// components solves every component, in parallel when enabled.
func (m *matcher) components(ctx context.Context) ([][]binding, error) {
	comps := m.p.Components
	out := make([][]binding, len(comps))

	solve := func(ctx context.Context, i int) error {
		s := newSearcher(m)
		var found []binding
		err := s.solve(ctx, comps[i].Clauses, comps[i].Virtual, m.empty(), func(b binding) (bool, error) {
			found = append(found, b)
			return true, nil
		})
		if err != nil {
			return err
		}
		out[i] = dedupe(found)
		m.logger.Debug("component solved",
			zap.Int(logging.FieldComponent, i),
			zap.Int(logging.FieldClauses, len(comps[i].Clauses)),
			zap.Int(logging.FieldCount, len(out[i])))
		return nil
	}

	if !m.parallel || len(comps) < 2 {
		for i := range comps {
			if err := solve(ctx, i); err != nil {
				return nil, err
			}
			if len(out[i]) == 0 {
				return out, nil
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range comps {
		g.Go(func() error { return solve(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// product calls fn with every combination of one binding per component.
// With no components fn sees the single empty binding; any empty component
// makes the product empty.
func (m *matcher) product(ctx context.Context, perComponent [][]binding, fn func(binding) error) error {
	for _, bs := range perComponent {
		if len(bs) == 0 {
			return nil
		}
	}

	idx := make([]int, len(perComponent))
	for {
		if err := m.tick(ctx, 0); err != nil {
			return err
		}
		b := m.empty()
		for ci, i := range idx {
			b.merge(perComponent[ci][i])
		}
		if err := fn(b); err != nil {
			return err
		}

		k := len(idx) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(perComponent[k]) {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return nil
		}
	}
}

// vetoed reports whether some optional group can be grounded under b.
func (s *searcher) vetoed(ctx context.Context, b binding) (bool, error) {
	for _, g := range s.m.p.Optional {
		found := false
		err := s.solve(ctx, g.Clauses, g.Virtual, b, func(binding) (bool, error) {
			found = true
			return false, nil
		})
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// tick counts n expansions and reports a timeout when ctx is done or the
// step budget is spent.
func (m *matcher) tick(ctx context.Context, n int64) error {
	total := m.steps.Add(n)
	select {
	case <-ctx.Done():
		return errors.SearchTimeout(ctx.Err(), "search aborted after %d steps", total)
	default:
	}
	if m.maxSteps > 0 && total > m.maxSteps {
		return errors.SearchTimeout(nil, "step budget of %d exhausted", m.maxSteps)
	}
	return nil
}

func (m *matcher) empty() binding {
	return make(binding, len(m.p.Vars))
}

func (m *matcher) grounding(b binding) Grounding {
	g := make(Grounding)
	for i, v := range b {
		if v.Valid() {
			g[m.p.Vars[i].Handle] = v
		}
	}
	return g
}

func (m *matcher) sort(gs []Grounding) {
	vars := m.p.VarHandles()
	slices.SortFunc(gs, func(a, b Grounding) int {
		for _, v := range vars {
			if c := cmp.Compare(a[v], b[v]); c != 0 {
				return c
			}
		}
		return 0
	})
}

// queryAtoms is every atom in the query's tree.
func queryAtoms(r space.Reader, q atom.Handle) map[atom.Handle]struct{} {
	own := make(map[atom.Handle]struct{})
	var walk func(atom.Handle)
	walk = func(h atom.Handle) {
		if _, seen := own[h]; seen {
			return
		}
		own[h] = struct{}{}
		a, ok := r.Get(h)
		if !ok {
			return
		}
		for _, c := range a.Out {
			walk(c)
		}
	}
	walk(q)
	return own
}
