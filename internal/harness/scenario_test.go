package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario_Fixtures(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, p := range paths {
		t.Run(filepath.Base(p), func(t *testing.T) {
			s, err := LoadScenario(p)
			require.NoError(t, err)
			assert.NotEmpty(t, s.Name)
			assert.NotEmpty(t, s.Steps)
		})
	}
}

func TestLoadScenario_ResolvesTypesPath(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/pets.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "types", "pets.cue"), s.Types)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing name", "description: d\nsteps: [{query: q}]\n", "name is required"},
		{"missing description", "name: n\nsteps: [{query: q}]\n", "description is required"},
		{"no steps", "name: n\ndescription: d\n", "steps list is required"},
		{"empty query", "name: n\ndescription: d\nsteps: [{mode: declarative}]\n", "steps[0]: query is required"},
		{"unknown mode", "name: n\ndescription: d\nsteps: [{query: q, mode: lazy}]\n", `unknown mode "lazy"`},
		{"unknown state", "name: n\ndescription: d\nsteps: [{query: q, expect: {state: done}}]\n", `unknown state "done"`},
		{"unknown code", "name: n\ndescription: d\nsteps: [{query: q, expect: {error: BOOM}}]\n", `unknown error code "BOOM"`},
		{"error with state", "name: n\ndescription: d\nsteps: [{query: q, expect: {error: SEARCH_TIMEOUT, state: found}}]\n", "cannot be combined"},
		{"unknown field", "name: n\ndescription: d\nstep: []\n", "failed to parse YAML"},
		{"bad assertion", "name: n\ndescription: d\nsteps: [{query: q}]\nassertions: [{type: trace_order}]\n", `unknown assertion type "trace_order"`},
		{"contains without atom", "name: n\ndescription: d\nsteps: [{query: q}]\nassertions: [{type: contains}]\n", "atom is required"},
		{"count without type", "name: n\ndescription: d\nsteps: [{query: q}]\nassertions: [{type: count, count: 1}]\n", "atom_type is required"},
		{"missing types file", "name: n\ndescription: d\ntypes: nope.cue\nsteps: [{query: q}]\n", "types file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
