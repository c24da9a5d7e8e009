package harness

import (
	"bytes"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/query"
)

// Scenario defines a query conformance scenario: a starting space and a
// sequence of queries with their expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Types is an optional CUE hierarchy file extending the builtin types.
	// Relative paths are resolved against the scenario file's directory.
	Types string `yaml:"types,omitempty"`

	// Token is the fixed execution token. Defaults to "test-token-default".
	Token string `yaml:"token,omitempty"`

	// Atoms is atomese loaded into the space before the first step.
	Atoms string `yaml:"atoms"`

	// Steps run in order against the same space.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final space.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step executes one query.
type Step struct {
	// Query is the atomese of a single query link.
	Query string `yaml:"query"`

	// Mode is declarative (default) or imperative.
	Mode string `yaml:"mode,omitempty"`

	// Strict rejects disconnected patterns.
	Strict bool `yaml:"strict,omitempty"`

	// MaxSteps bounds the search; zero means unbounded.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Mutate is applied to the space before the query runs.
	Mutate *Mutation `yaml:"mutate,omitempty"`

	// Expect is checked against the outcome. If nil, any successful
	// execution passes.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Mutation changes the space between steps.
type Mutation struct {
	// Add is atomese whose forms are added and asserted.
	Add string `yaml:"add,omitempty"`

	// Remove lists single forms removed together with every link that
	// contains them.
	Remove []string `yaml:"remove,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// State is found, absent or empty.
	State string `yaml:"state,omitempty"`

	// Count is the expected result set size.
	Count *int `yaml:"count,omitempty"`

	// Results is the exact result set, in any order.
	Results []string `yaml:"results,omitempty"`

	// Error is the expected error code.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final space.
type Assertion struct {
	// Type specifies the assertion type:
	// - "contains": Atom is in the space
	// - "absent": Atom is not in the space
	// - "count": AtomType has exactly Count atoms, subtypes included
	Type string `yaml:"type"`

	// Atom is a single atomese form (used by contains and absent).
	Atom string `yaml:"atom,omitempty"`

	// AtomType is a type name (used by count).
	AtomType string `yaml:"atom_type,omitempty"`

	// Count is the expected number of atoms (used by count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertContains = "contains"
	AssertAbsent   = "absent"
	AssertCount    = "count"
)

var states = map[string]bool{
	query.StateFound.String():  true,
	query.StateAbsent.String(): true,
	query.StateEmpty.String():  true,
}

var errorCodes = map[string]bool{
	string(errors.CodeMalformedQuery):      true,
	string(errors.CodeDisconnectedPattern): true,
	string(errors.CodeSearchTimeout):       true,
	string(errors.CodeInternal):            true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario file")
	}

	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}

	if scenario.Types != "" && !filepath.IsAbs(scenario.Types) {
		scenario.Types = filepath.Join(filepath.Dir(path), scenario.Types)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}

	if s.Types != "" {
		if _, err := os.Stat(s.Types); os.IsNotExist(err) {
			return errors.Newf("types file not found: %s", s.Types)
		}
	}

	for i, step := range s.Steps {
		if step.Query == "" {
			return errors.Newf("steps[%d]: query is required", i)
		}
		switch query.Mode(step.Mode) {
		case "", query.ModeDeclarative, query.ModeImperative:
		default:
			return errors.Newf("steps[%d]: unknown mode %q", i, step.Mode)
		}
		if step.MaxSteps < 0 {
			return errors.Newf("steps[%d]: max_steps must be non-negative", i)
		}
		if err := validateExpect(i, step.Expect); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateExpect(index int, e *Expect) error {
	if e == nil {
		return nil
	}
	if e.State != "" && !states[e.State] {
		return errors.Newf("steps[%d].expect: unknown state %q", index, e.State)
	}
	if e.Error != "" {
		if !errorCodes[e.Error] {
			return errors.Newf("steps[%d].expect: unknown error code %q", index, e.Error)
		}
		if e.State != "" || e.Count != nil || len(e.Results) > 0 {
			return errors.Newf("steps[%d].expect: error cannot be combined with state, count or results", index)
		}
	}
	if e.Count != nil && *e.Count < 0 {
		return errors.Newf("steps[%d].expect: count must be non-negative", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return errors.Newf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertContains, AssertAbsent:
		if a.Atom == "" {
			return errors.Newf("assertions[%d]: atom is required for %s", index, a.Type)
		}
	case AssertCount:
		if a.AtomType == "" {
			return errors.Newf("assertions[%d]: atom_type is required for count", index)
		}
		if a.Count < 0 {
			return errors.Newf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return errors.Newf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
