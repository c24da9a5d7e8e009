// Package query is the Query Link Dispatcher. It compiles a query link,
// runs the search, picks the outcome by the link's subtype, and rewrites
// the template.
//
// Two entry points differ only in what happens to the results:
// ExecuteDeclarative returns them; ExecuteImperative also stores them in
// the space wrapped in a SetLink and returns that wrapper's handle.
package query

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/atomese"
	"github.com/roach88/atomspace/internal/config"
	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/logging"
	"github.com/roach88/atomspace/internal/match"
	"github.com/roach88/atomspace/internal/pattern"
	"github.com/roach88/atomspace/internal/rewrite"
	"github.com/roach88/atomspace/internal/space"
)

// Mode names the entry point used.
type Mode string

const (
	ModeDeclarative Mode = "declarative"
	ModeImperative  Mode = "imperative"
)

// Outcome describes one execution.
type Outcome struct {
	Token      string
	Mode       Mode
	Query      atom.Handle
	Kind       pattern.Kind
	State      State
	Results    *rewrite.ResultSet
	Groundings int
	Steps      int

	// Wrapper is the stored SetLink; set by ExecuteImperative only.
	Wrapper atom.Handle
}

// BackingStore receives the wrappers of imperative executions.
type BackingStore interface {
	StoreAtom(ctx context.Context, r space.Reader, h atom.Handle) error
}

// Executor runs query links against one space. It is safe for concurrent
// use; searches share the space's read lock.
type Executor struct {
	space    *space.Space
	strict   bool
	timeout  time.Duration
	maxSteps int
	parallel bool
	eval     match.Evaluator
	tokens   TokenGenerator
	backing  BackingStore
	logger   *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithStrictConnectivity rejects patterns whose mandatory clauses fall
// into unrelated components.
func WithStrictConnectivity(on bool) Option {
	return func(e *Executor) { e.strict = on }
}

// WithTimeout bounds every search. Zero means no bound beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithMaxSteps bounds the candidate expansions of every search.
func WithMaxSteps(n int) Option {
	return func(e *Executor) { e.maxSteps = n }
}

// WithParallel searches independent components concurrently.
func WithParallel(on bool) Option {
	return func(e *Executor) { e.parallel = on }
}

// WithEvaluator sets the evaluator for virtual clauses.
func WithEvaluator(ev match.Evaluator) Option {
	return func(e *Executor) { e.eval = ev }
}

// WithTokenGenerator sets the execution token source.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Executor) { e.tokens = g }
}

// WithBackingStore writes imperative results through to b.
func WithBackingStore(b BackingStore) Option {
	return func(e *Executor) { e.backing = b }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// FromConfig translates the query section of the configuration.
func FromConfig(cfg config.QueryConfig) []Option {
	return []Option{
		WithStrictConnectivity(cfg.StrictConnectivity),
		WithTimeout(cfg.Timeout()),
		WithMaxSteps(cfg.MaxSteps),
		WithParallel(cfg.ParallelComponents),
	}
}

// New creates an Executor over s.
func New(s *space.Space, opts ...Option) *Executor {
	e := &Executor{space: s, tokens: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrNop(e.logger)
	return e
}

// Space returns the space queries run against.
func (e *Executor) Space() *space.Space { return e.space }

// ExecuteDeclarative runs q and returns its results.
//
// Finding nothing is not an error: the outcome is Empty with an empty
// result set. Errors are MalformedQuery from compilation,
// DisconnectedPattern under strict connectivity, SearchTimeout when the
// deadline or step budget runs out, and failures of grounded predicates.
func (e *Executor) ExecuteDeclarative(ctx context.Context, q atom.Handle) (*Outcome, error) {
	return e.execute(ctx, q, ModeDeclarative)
}

// ExecuteImperative runs q, stores the results as a SetLink and returns
// the SetLink. Re-running over an unchanged space returns the same handle.
//
// The search runs under the store's read lock; the rewrite and the wrapper
// are added under its write lock. A grounding naming an atom removed in
// between is dropped, and the outcome is Empty if none remain.
func (e *Executor) ExecuteImperative(ctx context.Context, q atom.Handle) (atom.Handle, *Outcome, error) {
	out, err := e.execute(ctx, q, ModeImperative)
	if err != nil {
		return atom.Invalid, nil, err
	}

	w := out.Wrapper
	if e.backing != nil {
		if err := e.backing.StoreAtom(ctx, e.space, w); err != nil {
			return atom.Invalid, nil, errors.Wrapf(err, "persist result %s", w)
		}
	}
	return w, out, nil
}

func (e *Executor) execute(ctx context.Context, q atom.Handle, mode Mode) (*Outcome, error) {
	out := &Outcome{Token: e.tokens.Generate(), Mode: mode, Query: q, State: StateCompiled}
	log := e.logger.With(
		zap.String(logging.FieldToken, out.Token),
		zap.String(logging.FieldMode, string(mode)),
	)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var (
		p   *pattern.Pattern
		res *match.Result
	)
	err := e.space.View(func(r space.Reader) error {
		var err error
		if p, err = pattern.Compile(r, q); err != nil {
			return err
		}
		out.Kind = p.Kind
		log = log.With(zap.String(logging.FieldQuery, atomese.Short(r, q)))

		if e.strict && p.Disconnected() {
			return errors.WithHint(
				errors.DisconnectedPatternf("query %s has %d unrelated components", q, len(p.Components)),
				"join the components with a shared variable or a comparison, or disable strict connectivity")
		}

		out.State = StateSearching
		res, err = match.Match(ctx, r, p, e.matchOptions(log)...)
		return err
	})
	if err != nil {
		log.Debug("query failed",
			zap.String(logging.FieldState, out.State.String()),
			zap.String(logging.FieldErrorCode, string(errors.CodeOf(err))),
			zap.Error(err))
		return nil, err
	}

	state, groundings := strategies[p.Kind](p, res)
	out.State = state
	out.Steps = res.Steps
	out.Results = rewrite.NewResultSet()

	if state != StateEmpty || mode == ModeImperative {
		err = e.space.Update(func(rw space.ReadWriter) error {
			live := liveGroundings(rw, groundings)
			if dropped := len(groundings) - len(live); dropped > 0 {
				log.Debug("groundings removed before rewrite", zap.Int(logging.FieldCount, dropped))
				groundings = live
				if len(live) == 0 {
					out.State = StateEmpty
				}
			}
			if out.State != StateEmpty {
				var err error
				if out.Results, err = rewrite.Rewrite(rw, p.Template, groundings); err != nil {
					return errors.Wrap(err, "rewrite")
				}
			}
			if mode == ModeImperative {
				var err error
				out.Wrapper, err = out.Results.Wrap(rw)
				return err
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	out.Groundings = len(groundings)

	log.Info("query executed",
		zap.String(logging.FieldState, out.State.String()),
		zap.Int(logging.FieldCount, out.Results.Len()),
		zap.Int(logging.FieldSteps, out.Steps))
	return out, nil
}

// liveGroundings drops the groundings that name an atom removed since the
// search.
func liveGroundings(r space.Reader, gs []match.Grounding) []match.Grounding {
	live := gs[:0:0]
	for _, g := range gs {
		ok := true
		for _, h := range g {
			if _, ok = r.Get(h); !ok {
				break
			}
		}
		if ok {
			live = append(live, g)
		}
	}
	return live
}

func (e *Executor) matchOptions(log *zap.Logger) []match.Option {
	opts := []match.Option{
		match.WithParallel(e.parallel),
		match.WithMaxSteps(e.maxSteps),
		match.WithLogger(log),
	}
	if e.eval != nil {
		opts = append(opts, match.WithEvaluator(e.eval))
	}
	return opts
}

// strategy turns a search result into the terminal state and the
// groundings to rewrite.
type strategy func(p *pattern.Pattern, res *match.Result) (State, []match.Grounding)

var strategies = map[pattern.Kind]strategy{
	pattern.KindBind:    bindStrategy,
	pattern.KindGet:     getStrategy,
	pattern.KindAbsence: absenceStrategy,
}

// bindStrategy rewrites what was found; an absence-shaped pattern that
// found nothing rewrites the template once.
func bindStrategy(p *pattern.Pattern, res *match.Result) (State, []match.Grounding) {
	switch {
	case len(res.Groundings) == 0:
		return StateEmpty, nil
	case p.AbsenceShaped():
		return StateAbsent, res.Groundings
	default:
		return StateFound, res.Groundings
	}
}

// getStrategy reports only what was found.
func getStrategy(p *pattern.Pattern, res *match.Result) (State, []match.Grounding) {
	if p.AbsenceShaped() || len(res.Groundings) == 0 {
		return StateEmpty, nil
	}
	return StateFound, res.Groundings
}

// absenceStrategy produces the template once when the body is absent.
func absenceStrategy(_ *pattern.Pattern, res *match.Result) (State, []match.Grounding) {
	if len(res.Groundings) == 0 {
		return StateEmpty, nil
	}
	return StateAbsent, res.Groundings
}
