package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/testutil"
	"github.com/roach88/atomspace/internal/types"
)

func compileSrc(t *testing.T, src string) (*Pattern, error) {
	t.Helper()
	s := testutil.NewSpace(t, "")
	q := testutil.Add(t, s, src)
	return Compile(s, q)
}

func TestCompile_TypedDeclaration(t *testing.T) {
	p, err := compileSrc(t, `
(BindLink
  (VariableList
    (TypedVariableLink $x (TypeNode "ConceptNode"))
    $y)
  (AndLink
    (EvaluationLink (PredicateNode "likes") (ListLink $x $y))
    (InheritanceLink $y (ConceptNode "person")))
  (ListLink $x $y))`)
	require.NoError(t, err)

	assert.Equal(t, KindBind, p.Kind)
	require.Len(t, p.Vars, 2)
	assert.Equal(t, "$x", p.Vars[0].Name)
	assert.Equal(t, TypeIs{Type: types.ConceptNode}, p.Vars[0].Restriction)
	assert.Nil(t, p.Vars[1].Restriction)

	assert.Len(t, p.Mandatory, 2)
	assert.Empty(t, p.Optional)
	assert.Empty(t, p.Virtual)
	require.Len(t, p.Components, 1)
	assert.Equal(t, p.VarHandles(), p.Components[0].Vars)
	assert.False(t, p.Disconnected())
	assert.False(t, p.AbsenceShaped())
}

func TestCompile_ImplicitDeclaration(t *testing.T) {
	p, err := compileSrc(t, `
(GetLink
  (InheritanceLink $b $a)
  (ListLink $a $b))`)
	require.NoError(t, err)

	assert.Equal(t, KindGet, p.Kind)
	require.Len(t, p.Vars, 2)
	assert.Equal(t, "$b", p.Vars[0].Name, "first occurrence order")
	assert.Equal(t, "$a", p.Vars[1].Name)
}

func TestCompile_ImplicitOrderFollowsStoredUnorderedBody(t *testing.T) {
	const (
		first  = `(InheritanceLink $x (ConceptNode "a"))`
		second = `(InheritanceLink $y (ConceptNode "b"))`
	)
	var orders [][]string
	for _, body := range []string{first + " " + second, second + " " + first} {
		s := testutil.NewSpace(t, "")
		q := testutil.Add(t, s, `(GetLink (AndLink `+body+`) (ListLink $x $y))`)
		p, err := Compile(s, q)
		require.NoError(t, err)

		and, ok := s.Get(p.Body)
		require.True(t, ok)
		require.Len(t, and.Out, 2)
		var stored []string
		for _, clause := range and.Out {
			c, ok := s.Get(clause)
			require.True(t, ok)
			v, ok := s.Get(c.Out[0])
			require.True(t, ok)
			stored = append(stored, v.Name)
		}

		var names []string
		for _, v := range p.Vars {
			names = append(names, v.Name)
		}
		assert.Equal(t, stored, names, "implicit variables follow the AndLink's canonical child order")
		orders = append(orders, names)
	}
	assert.Equal(t, orders[0], orders[1], "source order of an unordered body does not matter")
}

func TestCompile_ArityRejected(t *testing.T) {
	for _, src := range []string{
		`(BindLink)`,
		`(BindLink (ListLink $x))`,
		`(BindLink $x (ListLink $x) (ListLink $x) (ListLink $x))`,
	} {
		t.Run(src, func(t *testing.T) {
			_, err := compileSrc(t, src)
			require.Error(t, err)
			assert.True(t, errors.IsMalformedQuery(err), "got %v", err)
		})
	}
}

func TestCompile_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"not a query", `(ListLink (ConceptNode "a") (ConceptNode "b"))`, "not a query link"},
		{"bad decl", `(BindLink (ConceptNode "x") (ListLink $x) $x)`, "unresolvable variable declaration"},
		{"undeclared", `(BindLink $x (ListLink $x $y) $x)`, "not declared"},
		{"unused", `(BindLink (VariableList $x $z) (ListLink $x) $x)`, "does not occur"},
		{"duplicate", `(BindLink (VariableList $x $x) (ListLink $x) $x)`, "declared twice"},
		{"unknown type", `(BindLink (TypedVariableLink $x (TypeNode "FooNode")) (ListLink $x) $x)`, "unknown type"},
		{"empty restriction", `(BindLink (TypedVariableLink $x (TypeChoice)) (ListLink $x) $x)`, "empty TypeChoice"},
		{"typed non-variable", `(BindLink (TypedVariableLink (ConceptNode "x") (TypeNode "Node")) (ListLink $x) $x)`, "must start with a variable"},
		{"contradiction", `(BindLink
			(TypedVariableLink $x (TypeIntersectionLink (TypeNode "ConceptNode") (TypeNode "PredicateNode")))
			(ListLink $x) $x)`, "admits no type"},
		{"virtual unground", `(BindLink (VariableList $x $y)
			(AndLink (ListLink $x) (GreaterThanLink $x $y)) $x)`, "no mandatory clause grounds"},
		{"virtual nested var", `(BindLink
			(AndLink (ListLink $x) (GreaterThanLink (ListLink $x) (NumberNode "1"))) $x)`, "nests a variable"},
		{"bad gpn", `(BindLink
			(AndLink (ListLink $x) (EvaluationLink (GroundedPredicateNode "go:f") $x)) $x)`, "ListLink"},
		{"nested absence", `(BindLink
			(AndLink (ListLink $x) (AbsentLink (AbsentLink (ListLink $x)))) $x)`, "nested absence"},
		{"empty body", `(BindLink (AndLink) (ConceptNode "done"))`, "no clauses"},
		{"absent in absence query", `(AbsenceQueryLink (AbsentLink (ListLink $x)) (ConceptNode "none"))`, "may not contain"},
		{"quote arity", `(BindLink (AndLink (ListLink $x) (QuoteLink $x $x)) $x)`, "QuoteLink expects 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileSrc(t, tt.src)
			require.Error(t, err)
			assert.True(t, errors.IsMalformedQuery(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompile_RestrictionCombinators(t *testing.T) {
	p, err := compileSrc(t, `
(BindLink
  (TypedVariableLink $x
    (TypeChoice (TypeNode "ConceptNode")
      (TypeIntersectionLink (TypeNode "PredicateNode") (TypeNode "Node"))))
  (MemberLink $x (ConceptNode "set"))
  $x)`)
	require.NoError(t, err)

	v := p.Vars[0]
	reg := types.Builtin()
	assert.True(t, v.Admits(reg, types.ConceptNode))
	assert.True(t, v.Admits(reg, types.GroundedPredicateNode))
	assert.False(t, v.Admits(reg, types.NumberNode))
	assert.False(t, v.Admits(reg, types.ListLink))
}

func TestCompile_AbsentClause(t *testing.T) {
	p, err := compileSrc(t, `
(BindLink
  (AbsentLink (EvaluationLink (PredicateNode "alert") (ListLink $x)))
  (ConceptNode "all-clear"))`)
	require.NoError(t, err)

	assert.Empty(t, p.Mandatory)
	require.Len(t, p.Optional, 1)
	assert.Len(t, p.Optional[0].Clauses, 1)
	assert.Equal(t, p.VarHandles(), p.Optional[0].Vars, "variables may appear only in optional clauses")
	assert.True(t, p.AbsenceShaped())
	assert.Empty(t, p.Components)
}

func TestCompile_NotLinkIsAbsence(t *testing.T) {
	p, err := compileSrc(t, `
(BindLink
  (AndLink
    (InheritanceLink $x (ConceptNode "bird"))
    (NotLink (InheritanceLink $x (ConceptNode "penguin")))
    (NotLink (EqualLink $x (ConceptNode "tweety"))))
  $x)`)
	require.NoError(t, err)

	assert.Len(t, p.Mandatory, 1)
	assert.Len(t, p.Optional, 1)
	require.Len(t, p.Virtual, 1)
	assert.True(t, p.Virtual[0].Negate)
	require.Len(t, p.Components, 1)
	assert.Len(t, p.Components[0].Virtual, 1)
}

func TestCompile_Components(t *testing.T) {
	p, err := compileSrc(t, `
(BindLink
  (VariableList $a $b)
  (AndLink
    (InheritanceLink $a (ConceptNode "x"))
    (InheritanceLink $b (ConceptNode "y")))
  (ListLink $a $b))`)
	require.NoError(t, err)

	require.Len(t, p.Components, 2)
	assert.True(t, p.Disconnected())

	joined, err := compileSrc(t, `
(BindLink
  (VariableList $a $b)
  (AndLink
    (InheritanceLink $a (ConceptNode "x"))
    (InheritanceLink $b (ConceptNode "y"))
    (GreaterThanLink $a $b))
  (ListLink $a $b))`)
	require.NoError(t, err)
	require.Len(t, joined.Components, 2)
	assert.Len(t, joined.CrossVirtual, 1)
	assert.False(t, joined.Disconnected(), "a cross-component comparison connects the pattern")
}

func TestCompile_ConstantClauseIsOwnComponent(t *testing.T) {
	p, err := compileSrc(t, `
(BindLink
  (AndLink
    (InheritanceLink (ConceptNode "tweety") (ConceptNode "bird"))
    (InheritanceLink $x (ConceptNode "bird")))
  $x)`)
	require.NoError(t, err)
	require.Len(t, p.Components, 2)
	constant := 0
	for _, c := range p.Components {
		if len(c.Vars) == 0 {
			constant++
		}
	}
	assert.Equal(t, 1, constant)
}

func TestCompile_Quoting(t *testing.T) {
	p, err := compileSrc(t, `
(BindLink
  (AndLink
    (QuoteLink (ListLink $q (UnquoteLink $x)))
    (InheritanceLink $x (ConceptNode "thing")))
  $x)`)
	require.NoError(t, err)

	require.Len(t, p.Vars, 1)
	assert.Equal(t, "$x", p.Vars[0].Name, "$q is quoted and matched literally")
	assert.Len(t, p.Quoted, 1)
	require.Len(t, p.Components, 1, "the unquoted $x connects both clauses")
	assert.Len(t, p.Components[0].Clauses, 2)
}

func TestCompile_AbsenceQuery(t *testing.T) {
	p, err := compileSrc(t, `
(AbsenceQueryLink
  (AndLink
    (InheritanceLink $x (ConceptNode "admin"))
    (EvaluationLink (PredicateNode "active") (ListLink $x)))
  (ConceptNode "no-active-admin"))`)
	require.NoError(t, err)

	assert.Equal(t, KindAbsence, p.Kind)
	assert.Empty(t, p.Mandatory)
	require.Len(t, p.Optional, 1)
	assert.Len(t, p.Optional[0].Clauses, 2)
	assert.True(t, p.AbsenceShaped())
}

func TestCompile_UnknownHandle(t *testing.T) {
	s := testutil.NewSpace(t, "")
	_, err := Compile(s, atom.Handle(42))
	assert.True(t, errors.IsMalformedQuery(err))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "bind", KindBind.String())
	assert.Equal(t, "get", KindGet.String())
	assert.Equal(t, "absence", KindAbsence.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
