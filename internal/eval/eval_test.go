package eval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/space"
	"github.com/roach88/atomspace/internal/testutil"
)

func identity(h atom.Handle) atom.Handle { return h }

func bindTo(vars map[atom.Handle]atom.Handle) Binder {
	return func(h atom.Handle) atom.Handle {
		if v, ok := vars[h]; ok {
			return v
		}
		return h
	}
}

func evaluate(t *testing.T, e *Evaluator, s *space.Space, clause atom.Handle, bind Binder) (bool, error) {
	t.Helper()
	var ok bool
	err := s.View(func(r space.Reader) error {
		var err error
		ok, err = e.Evaluate(context.Background(), r, clause, bind)
		return err
	})
	return ok, err
}

func TestGreaterThan(t *testing.T) {
	s := testutil.NewSpace(t, "")
	e := New()

	gt := testutil.Add(t, s, `(GreaterThanLink (NumberNode "3.5") (NumberNode "2"))`)
	ok, err := evaluate(t, e, s, gt, identity)
	require.NoError(t, err)
	assert.True(t, ok)

	lt := testutil.Add(t, s, `(GreaterThanLink (NumberNode "2") (NumberNode "2"))`)
	ok, err = evaluate(t, e, s, lt, identity)
	require.NoError(t, err)
	assert.False(t, ok)

	nan := testutil.Add(t, s, `(GreaterThanLink (ConceptNode "ten") (NumberNode "2"))`)
	ok, err = evaluate(t, e, s, nan, identity)
	require.NoError(t, err)
	assert.False(t, ok, "non-numeric operands never compare")
}

func TestGreaterThan_BoundVariables(t *testing.T) {
	s := testutil.NewSpace(t, "")
	e := New()

	clause := testutil.Add(t, s, `(GreaterThanLink $a $b)`)
	a := testutil.Add(t, s, `$a`)
	b := testutil.Add(t, s, `$b`)
	ten := testutil.Add(t, s, `(NumberNode "10")`)
	one := testutil.Add(t, s, `(NumberNode "1")`)

	ok, err := evaluate(t, e, s, clause, bindTo(map[atom.Handle]atom.Handle{a: ten, b: one}))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evaluate(t, e, s, clause, bindTo(map[atom.Handle]atom.Handle{a: one, b: ten}))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	s := testutil.NewSpace(t, "")
	e := New()

	clause := testutil.Add(t, s, `(EqualLink $a (ConceptNode "x"))`)
	a := testutil.Add(t, s, `$a`)
	x := testutil.Add(t, s, `(ConceptNode "x")`)
	y := testutil.Add(t, s, `(ConceptNode "y")`)

	ok, err := evaluate(t, e, s, clause, bindTo(map[atom.Handle]atom.Handle{a: x}))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evaluate(t, e, s, clause, bindTo(map[atom.Handle]atom.Handle{a: y}))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGoPredicate(t *testing.T) {
	s := testutil.NewSpace(t, "")
	e := New()
	var seen []string
	e.Register("long-name", func(_ context.Context, args []atom.Atom) (bool, error) {
		seen = append(seen, args[0].Name)
		return len(args[0].Name) > 3, nil
	})

	clause := testutil.Add(t, s, `(EvaluationLink (GroundedPredicateNode "go:long-name") (ListLink (ConceptNode "alice")))`)
	ok, err := evaluate(t, e, s, clause, identity)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"alice"}, seen)

	missing := testutil.Add(t, s, `(EvaluationLink (GroundedPredicateNode "go:nope") (ListLink))`)
	_, err = evaluate(t, e, s, missing, identity)
	assert.ErrorContains(t, err, "not registered")
}

func TestRisorPredicate(t *testing.T) {
	s := testutil.NewSpace(t, "")
	e := New()

	clause := testutil.Add(t, s, `
(EvaluationLink
  (GroundedPredicateNode "risor: args[0] + args[1] > 10 && types[2] == \"ConceptNode\"")
  (ListLink (NumberNode "4") (NumberNode "7") (ConceptNode "sum")))`)
	ok, err := evaluate(t, e, s, clause, identity)
	require.NoError(t, err)
	assert.True(t, ok)

	strs := testutil.Add(t, s, `
(EvaluationLink
  (GroundedPredicateNode "risor: args[0] == \"bob\"")
  (ListLink (ConceptNode "alice")))`)
	ok, err = evaluate(t, e, s, strs, identity)
	require.NoError(t, err)
	assert.False(t, ok)

	broken := testutil.Add(t, s, `
(EvaluationLink (GroundedPredicateNode "risor: args[") (ListLink))`)
	_, err = evaluate(t, e, s, broken, identity)
	assert.Error(t, err)
}

func TestUnknownScheme(t *testing.T) {
	s := testutil.NewSpace(t, "")
	clause := testutil.Add(t, s, `(EvaluationLink (GroundedPredicateNode "py:f") (ListLink))`)
	_, err := evaluate(t, New(), s, clause, identity)
	assert.ErrorContains(t, err, "no known scheme")
}
