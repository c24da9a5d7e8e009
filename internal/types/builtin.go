package types

import "sync"

// Builtin type identifiers. Their values equal their position in the
// builtin table, so they stay valid in any registry produced by
// Builtin().Extend.
const (
	Atom Type = iota + 1
	Node
	Link
	OrderedLink
	UnorderedLink

	ConceptNode
	PredicateNode
	NumberNode
	TypeNode
	VariableNode
	GroundedPredicateNode

	ListLink
	EvaluationLink
	ExecutionLink
	InheritanceLink
	MemberLink
	NotLink
	AbsentLink
	QuoteLink
	UnquoteLink
	VariableList
	TypedVariableLink

	SetLink
	AndLink
	OrLink
	TypeChoice
	TypeIntersectionLink

	VirtualLink
	GreaterThanLink
	EqualLink

	ScopeLink
	PatternLink
	BindLink
	GetLink
	AbsenceQueryLink

	builtinEnd
)

var builtinDefs = []Def{
	{Name: "Atom"},
	{Name: "Node", Parents: []string{"Atom"}},
	{Name: "Link", Parents: []string{"Atom"}},
	{Name: "OrderedLink", Parents: []string{"Link"}},
	{Name: "UnorderedLink", Parents: []string{"Link"}},

	{Name: "ConceptNode", Parents: []string{"Node"}},
	{Name: "PredicateNode", Parents: []string{"Node"}},
	{Name: "NumberNode", Parents: []string{"Node"}},
	{Name: "TypeNode", Parents: []string{"Node"}},
	{Name: "VariableNode", Parents: []string{"Node"}},
	{Name: "GroundedPredicateNode", Parents: []string{"PredicateNode"}},

	{Name: "ListLink", Parents: []string{"OrderedLink"}},
	{Name: "EvaluationLink", Parents: []string{"OrderedLink"}},
	{Name: "ExecutionLink", Parents: []string{"OrderedLink"}},
	{Name: "InheritanceLink", Parents: []string{"OrderedLink"}},
	{Name: "MemberLink", Parents: []string{"OrderedLink"}},
	{Name: "NotLink", Parents: []string{"OrderedLink"}},
	{Name: "AbsentLink", Parents: []string{"OrderedLink"}},
	{Name: "QuoteLink", Parents: []string{"OrderedLink"}},
	{Name: "UnquoteLink", Parents: []string{"OrderedLink"}},
	{Name: "VariableList", Parents: []string{"OrderedLink"}},
	{Name: "TypedVariableLink", Parents: []string{"OrderedLink"}},

	{Name: "SetLink", Parents: []string{"UnorderedLink"}},
	{Name: "AndLink", Parents: []string{"UnorderedLink"}},
	{Name: "OrLink", Parents: []string{"UnorderedLink"}},
	{Name: "TypeChoice", Parents: []string{"UnorderedLink"}},
	{Name: "TypeIntersectionLink", Parents: []string{"UnorderedLink"}},

	{Name: "VirtualLink", Parents: []string{"OrderedLink"}},
	{Name: "GreaterThanLink", Parents: []string{"VirtualLink"}},
	{Name: "EqualLink", Parents: []string{"VirtualLink"}},

	{Name: "ScopeLink", Parents: []string{"OrderedLink"}},
	{Name: "PatternLink", Parents: []string{"ScopeLink"}},
	{Name: "BindLink", Parents: []string{"PatternLink"}},
	{Name: "GetLink", Parents: []string{"PatternLink"}},
	{Name: "AbsenceQueryLink", Parents: []string{"PatternLink"}},
}

var builtin = sync.OnceValue(func() *Registry {
	r, err := NewRegistry(builtinDefs)
	if err != nil {
		panic("types: invalid builtin table: " + err.Error())
	}
	return r
})

// Builtin returns the shared registry of builtin types.
func Builtin() *Registry {
	return builtin()
}

// BuiltinDefs returns a copy of the builtin table.
func BuiltinDefs() []Def {
	out := make([]Def, len(builtinDefs))
	copy(out, builtinDefs)
	return out
}

// IsNodeType reports whether t is a node type in o.
func IsNodeType(o Oracle, t Type) bool { return o.IsA(t, Node) }

// IsLinkType reports whether t is a link type in o.
func IsLinkType(o Oracle, t Type) bool { return o.IsA(t, Link) }

// IsUnordered reports whether links of type t have set semantics.
func IsUnordered(o Oracle, t Type) bool { return o.IsA(t, UnorderedLink) }
