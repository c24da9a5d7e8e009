package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/atomspace/internal/atomese"
	"github.com/roach88/atomspace/internal/space"
	"github.com/roach88/atomspace/internal/types"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []StepRecord // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, rec := range e.Trace {
		outcome := rec.State
		if rec.Error != "" {
			outcome = rec.Error
		}
		fmt.Fprintf(&buf, "  [%d] %s %s -> %s %v\n", rec.Step, rec.Mode, rec.Query, outcome, rec.Results)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the final space and
// returns one message per failure.
func EvaluateAssertions(s *space.Space, reg types.Resolver, assertions []Assertion, trace []StepRecord) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertContains:
			err = assertPresence(s, reg, a, trace, true)
		case AssertAbsent:
			err = assertPresence(s, reg, a, trace, false)
		case AssertCount:
			err = assertCount(s, reg, a, trace)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func assertPresence(s *space.Space, reg types.Resolver, a Assertion, trace []StepRecord, want bool) error {
	_, found, err := atomese.Find(s, reg, a.Atom)
	if err != nil {
		return err
	}
	if found == want {
		return nil
	}

	expected, actual := "atom in space", "not found"
	if !want {
		expected, actual = "atom not in space", "found"
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s: %s", expected, a.Atom),
		Actual:   actual,
		Trace:    trace,
	}
}

func assertCount(s *space.Space, reg types.Resolver, a Assertion, trace []StepRecord) error {
	t, ok := reg.Lookup(a.AtomType)
	if !ok {
		return fmt.Errorf("unknown type %q", a.AtomType)
	}
	if got := s.CountOfType(t, true); got != a.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d atoms of type %s", a.Count, a.AtomType),
			Actual:   fmt.Sprintf("%d atoms", got),
			Trace:    trace,
		}
	}
	return nil
}
