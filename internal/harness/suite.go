package harness

import (
	"path/filepath"
	"slices"

	"github.com/roach88/atomspace/internal/errors"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure describes one scenario that did not pass.
type ScenarioFailure struct {
	Name   string   `json:"name,omitempty"`
	Path   string   `json:"path"`
	Errors []string `json:"errors"`
}

// FindScenarios returns the .yaml and .yml files directly under dir,
// sorted by path.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "glob %s", dir)
		}
		paths = append(paths, m...)
	}
	slices.Sort(paths)
	return paths, nil
}

// RunDir loads and runs every scenario in dir. A scenario that fails to
// load or to run counts as failed; it does not stop the suite.
func RunDir(dir string, opts ...Option) (*SuiteResult, error) {
	paths, err := FindScenarios(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.WithHint(
			errors.Newf("no scenarios found in %s", dir),
			"scenario files end in .yaml or .yml")
	}

	sr := &SuiteResult{Total: len(paths)}
	for _, path := range paths {
		name, msgs := runFile(path, opts)
		if len(msgs) == 0 {
			sr.Passed++
			continue
		}
		sr.Failed++
		sr.Failures = append(sr.Failures, ScenarioFailure{Name: name, Path: path, Errors: msgs})
	}
	return sr, nil
}

func runFile(path string, opts []Option) (string, []string) {
	s, err := LoadScenario(path)
	if err != nil {
		return "", []string{err.Error()}
	}
	res, err := Run(s, opts...)
	if err != nil {
		return s.Name, []string{err.Error()}
	}
	return s.Name, res.Errors
}
