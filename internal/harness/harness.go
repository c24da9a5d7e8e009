package harness

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/atomese"
	"github.com/roach88/atomspace/internal/compiler"
	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/logging"
	"github.com/roach88/atomspace/internal/query"
	"github.com/roach88/atomspace/internal/space"
	"github.com/roach88/atomspace/internal/testutil"
	"github.com/roach88/atomspace/internal/types"
)

// Harness is the test execution engine.
// It runs the steps of one scenario against one space with a fixed token.
type Harness struct {
	space  *space.Space
	reg    *types.Registry
	tokens *testutil.FixedTokenGenerator
	logger *zap.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger passed to every execution.
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh space. Setup problems (unreadable types,
// atoms that do not parse, a query that does not parse) are returned as
// errors; failed expectations and assertions are recorded in the result.
//
// Execution flow:
// 1. Build the type registry and load the atoms
// 2. For each step: apply the mutation, execute the query, check expect
// 3. Evaluate assertions against the final space
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{tokens: testutil.NewFixedTokenGenerator(scenario.Token)}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logging.OrNop(h.logger)

	h.reg = types.Builtin()
	if scenario.Types != "" {
		reg, err := compiler.LoadTypesFile(scenario.Types)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load types")
		}
		h.reg = reg
	}

	h.space = space.New(h.reg)
	if _, err := atomese.Load(h.space, h.reg, scenario.Atoms); err != nil {
		return nil, errors.Wrap(err, "failed to load atoms")
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, errors.Wrapf(err, "step %d", i)
		}
	}

	for _, msg := range EvaluateAssertions(h.space, h.reg, scenario.Assertions, result.Trace) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	if step.Mutate != nil {
		if err := h.mutate(step.Mutate); err != nil {
			return errors.Wrap(err, "mutate")
		}
	}

	q, err := atomese.LoadOne(h.space, h.reg, step.Query)
	if err != nil {
		return errors.Wrap(err, "failed to load query")
	}

	mode := query.Mode(step.Mode)
	if mode == "" {
		mode = query.ModeDeclarative
	}
	ex := query.New(h.space,
		query.WithStrictConnectivity(step.Strict),
		query.WithMaxSteps(step.MaxSteps),
		query.WithParallel(false),
		query.WithTokenGenerator(h.tokens),
		query.WithLogger(h.logger))

	var out *query.Outcome
	if mode == query.ModeImperative {
		_, out, err = ex.ExecuteImperative(ctx, q)
	} else {
		out, err = ex.ExecuteDeclarative(ctx, q)
	}

	rec := StepRecord{
		Step:    i,
		Mode:    string(mode),
		Token:   h.tokens.Generate(),
		Query:   atomese.Short(h.space, q),
		Results: []string{},
	}
	if err != nil {
		rec.Error = string(errors.CodeOf(err))
	} else {
		rec.Token = out.Token
		rec.State = out.State.String()
		rec.Results = atomese.ShortAll(h.space, out.Results.Members)
	}
	result.AddStep(rec)

	for _, msg := range h.checkExpect(i, step.Expect, out, err) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario step completed",
		zap.Int("step", i),
		zap.String(logging.FieldMode, rec.Mode),
		zap.String(logging.FieldState, rec.State),
		zap.String(logging.FieldErrorCode, rec.Error))
	return nil
}

func (h *Harness) mutate(m *Mutation) error {
	if m.Add != "" {
		if _, err := atomese.Load(h.space, h.reg, m.Add); err != nil {
			return err
		}
	}
	for _, src := range m.Remove {
		a, ok, err := atomese.Find(h.space, h.reg, src)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := h.space.Remove(a, true); err != nil {
			return err
		}
	}
	return nil
}

// checkExpect compares an outcome with the step's expectation and returns
// one message per mismatch.
func (h *Harness) checkExpect(i int, e *Expect, out *query.Outcome, err error) []string {
	prefix := fmt.Sprintf("step %d", i)
	if e == nil || e.Error == "" {
		if err != nil {
			return []string{fmt.Sprintf("%s: unexpected error %s: %v", prefix, errors.CodeOf(err), err)}
		}
		if e == nil {
			return nil
		}
	} else {
		if err == nil {
			return []string{fmt.Sprintf("%s: expected error %s, query ended %s", prefix, e.Error, out.State)}
		}
		if got := string(errors.CodeOf(err)); got != e.Error {
			return []string{fmt.Sprintf("%s: expected error %s, got %s: %v", prefix, e.Error, got, err)}
		}
		return nil
	}

	var msgs []string
	if e.State != "" && e.State != out.State.String() {
		msgs = append(msgs, fmt.Sprintf("%s: expected state %s, got %s", prefix, e.State, out.State))
	}
	if e.Count != nil && *e.Count != out.Results.Len() {
		msgs = append(msgs, fmt.Sprintf("%s: expected %d results, got %d", prefix, *e.Count, out.Results.Len()))
	}
	if e.Results != nil {
		want := make([]atom.Handle, 0, len(e.Results))
		for _, src := range e.Results {
			a, ok, ferr := atomese.Find(h.space, h.reg, src)
			switch {
			case ferr != nil:
				msgs = append(msgs, fmt.Sprintf("%s: bad expected result %q: %v", prefix, src, ferr))
			case !ok:
				msgs = append(msgs, fmt.Sprintf("%s: expected result %s is not in the space", prefix, src))
			default:
				want = append(want, a)
			}
		}
		slices.Sort(want)
		want = slices.Compact(want)
		if !slices.Equal(want, out.Results.Members) {
			msgs = append(msgs, fmt.Sprintf("%s: expected results %v, got %v", prefix,
				atomese.ShortAll(h.space, want), atomese.ShortAll(h.space, out.Results.Members)))
		}
	}
	return msgs
}
