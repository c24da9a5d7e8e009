// Package eval decides virtual clauses: clauses that are computed against a
// grounding instead of being matched in the store.
//
// Builtins:
//
//	(GreaterThanLink a b)   numeric comparison of NumberNodes
//	(EqualLink a b)         identity of the grounded atoms
//	(EvaluationLink (GroundedPredicateNode "risor: <expr>") (ListLink args...))
//	(EvaluationLink (GroundedPredicateNode "go:<name>") (ListLink args...))
//
// Risor expressions see the arguments as the list global "args" (numbers
// for NumberNodes, names for other nodes) and their type names as "types".
// Go predicates are registered by name with Register.
package eval

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
	"go.uber.org/zap"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/logging"
	"github.com/roach88/atomspace/internal/space"
	"github.com/roach88/atomspace/internal/types"
)

// Binder maps a clause argument onto the atom grounding it: a bound
// variable yields its value, anything else yields itself.
type Binder func(h atom.Handle) atom.Handle

// Predicate is a Go implementation of a grounded predicate.
type Predicate func(ctx context.Context, args []atom.Atom) (bool, error)

// Scheme prefixes of GroundedPredicateNode names.
const (
	SchemeRisor = "risor:"
	SchemeGo    = "go:"
)

// Evaluator decides virtual clauses. It is safe for concurrent use.
type Evaluator struct {
	mu      sync.RWMutex
	natives map[string]Predicate
	logger  *zap.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for predicate diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// New creates an Evaluator with no Go predicates registered.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{natives: make(map[string]Predicate)}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrNop(e.logger)
	return e
}

// Register installs fn as the grounded predicate "go:<name>".
func (e *Evaluator) Register(name string, fn Predicate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.natives[name] = fn
}

// Evaluate decides clause under bind.
func (e *Evaluator) Evaluate(ctx context.Context, r space.Reader, clause atom.Handle, bind Binder) (bool, error) {
	a, ok := r.Get(clause)
	if !ok {
		return false, errors.Newf("virtual clause %s is not in the store", clause)
	}
	o := r.Oracle()

	switch {
	case a.Type == types.GreaterThanLink:
		x, xok := number(r, bind(a.Out[0]))
		y, yok := number(r, bind(a.Out[1]))
		// Non-numeric operands are not comparable and never satisfy the clause.
		return xok && yok && x > y, nil

	case a.Type == types.EqualLink:
		return bind(a.Out[0]) == bind(a.Out[1]), nil

	case a.Type == types.EvaluationLink:
		pred, _ := r.Get(a.Out[0])
		list, _ := r.Get(a.Out[1])
		args := make([]atom.Atom, 0, len(list.Out))
		for _, h := range list.Out {
			ga, ok := r.Get(bind(h))
			if !ok {
				return false, errors.Newf("argument %s of %s is not in the store", h, pred.Name)
			}
			args = append(args, ga)
		}
		return e.grounded(ctx, o, pred.Name, args)

	default:
		return false, errors.Newf("no evaluator for virtual link type %s", o.TypeName(a.Type))
	}
}

func (e *Evaluator) grounded(ctx context.Context, o types.Oracle, name string, args []atom.Atom) (bool, error) {
	switch {
	case strings.HasPrefix(name, SchemeGo):
		key := strings.TrimPrefix(name, SchemeGo)
		e.mu.RLock()
		fn, ok := e.natives[key]
		e.mu.RUnlock()
		if !ok {
			return false, errors.WithHint(
				errors.Newf("grounded predicate %q is not registered", name),
				"register it with Evaluator.Register")
		}
		return fn(ctx, args)

	case strings.HasPrefix(name, SchemeRisor):
		return e.risor(ctx, o, strings.TrimSpace(strings.TrimPrefix(name, SchemeRisor)), args)

	default:
		return false, errors.Newf("grounded predicate %q has no known scheme (want %q or %q)",
			name, SchemeRisor, SchemeGo)
	}
}

func (e *Evaluator) risor(ctx context.Context, o types.Oracle, src string, args []atom.Atom) (bool, error) {
	values := make([]object.Object, len(args))
	typeNames := make([]object.Object, len(args))
	for i, a := range args {
		typeNames[i] = object.NewString(o.TypeName(a.Type))
		if f, ok := numberOf(o, a); ok {
			values[i] = object.NewFloat(f)
		} else {
			values[i] = object.NewString(a.Name)
		}
	}

	result, err := risor.Eval(ctx, src,
		risor.WithGlobal("args", object.NewList(values)),
		risor.WithGlobal("types", object.NewList(typeNames)),
	)
	if err != nil {
		e.logger.Debug("risor predicate failed", zap.String("source", src), zap.Error(err))
		return false, errors.Wrapf(err, "risor predicate %q", src)
	}
	return result.IsTruthy(), nil
}

func number(r space.Reader, h atom.Handle) (float64, bool) {
	a, ok := r.Get(h)
	if !ok {
		return 0, false
	}
	return numberOf(r.Oracle(), a)
}

func numberOf(o types.Oracle, a atom.Atom) (float64, bool) {
	if a.IsLink() || !o.IsA(a.Type, types.NumberNode) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(a.Name), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
