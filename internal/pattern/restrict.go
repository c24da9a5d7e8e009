package pattern

import (
	"strings"

	"github.com/roach88/atomspace/internal/types"
)

// Restriction limits which atom types may ground a variable.
//
// This is a sealed interface: TypeIs, AnyOf and AllOf are the only
// implementations, so a type switch over them is exhaustive.
type Restriction interface {
	Admits(o types.Oracle, t types.Type) bool
	Describe(o types.Oracle) string
	restriction()
}

// TypeIs admits Type and its subtypes.
type TypeIs struct {
	Type types.Type
}

// AnyOf admits a type admitted by at least one member (TypeChoice).
type AnyOf []Restriction

// AllOf admits a type admitted by every member (TypeIntersectionLink).
type AllOf []Restriction

func (TypeIs) restriction() {}
func (AnyOf) restriction()  {}
func (AllOf) restriction()  {}

func (r TypeIs) Admits(o types.Oracle, t types.Type) bool {
	return o.IsA(t, r.Type)
}

func (r AnyOf) Admits(o types.Oracle, t types.Type) bool {
	for _, m := range r {
		if m.Admits(o, t) {
			return true
		}
	}
	return false
}

func (r AllOf) Admits(o types.Oracle, t types.Type) bool {
	for _, m := range r {
		if !m.Admits(o, t) {
			return false
		}
	}
	return true
}

func (r TypeIs) Describe(o types.Oracle) string { return o.TypeName(r.Type) }

func (r AnyOf) Describe(o types.Oracle) string { return describe(o, r, " | ") }

func (r AllOf) Describe(o types.Oracle) string { return describe(o, r, " & ") }

func describe(o types.Oracle, rs []Restriction, sep string) string {
	parts := make([]string, len(rs))
	for i, m := range rs {
		parts[i] = m.Describe(o)
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// satisfiable reports whether some registered type passes r.
func satisfiable(reg types.Resolver, r Restriction) bool {
	for _, t := range reg.All() {
		if r.Admits(reg, t) {
			return true
		}
	}
	return false
}
