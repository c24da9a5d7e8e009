package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petTypes = `
types: {
	AnimalNode: ["ConceptNode"]
	PetNode:    ["AnimalNode"]
	OwnsLink:   ["OrderedLink"]
}
`

func TestTypesCommand_Builtin(t *testing.T) {
	out, err := execute(t, "types", "--format", "json")
	require.NoError(t, err, out)

	var list TypeList
	decode(t, out, &list)
	names := make([]string, 0, len(list.Types))
	for _, ti := range list.Types {
		names = append(names, ti.Name)
	}
	assert.Contains(t, names, "ConceptNode")
	assert.Contains(t, names, "BindLink")
	assert.NotContains(t, names, "PetNode")
}

func TestTypesCommand_File(t *testing.T) {
	file := writeFile(t, t.TempDir(), "pets.cue", petTypes)

	out, err := execute(t, "types", "--file", file)
	require.NoError(t, err, out)
	assert.Contains(t, out, "PetNode <: AnimalNode")
	assert.Contains(t, out, "OwnsLink <: OrderedLink")
}

func TestTypesCheck_Valid(t *testing.T) {
	file := writeFile(t, t.TempDir(), "pets.cue", petTypes)

	out, err := execute(t, "types", "check", file)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ 3 types")
}

func TestTypesCheck_ReportsEveryProblem(t *testing.T) {
	file := writeFile(t, t.TempDir(), "bad.cue", `
types: {
	A: ["B"]
	B: ["A"]
	C: ["NoSuchNode"]
}
`)

	out, err := execute(t, "types", "check", file, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTypes, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "1 cycle(s)")
}

func TestTypesCheck_TextListsCycles(t *testing.T) {
	file := writeFile(t, t.TempDir(), "self.cue", `types: { D: ["D"] }`)

	out, err := execute(t, "types", "check", file)
	require.Error(t, err)
	assert.Contains(t, out, "Error [E100]")
	assert.Contains(t, out, "type D inherits from itself")
}

func TestTypesCheck_InvalidCUE(t *testing.T) {
	file := writeFile(t, t.TempDir(), "broken.cue", `types: {`)

	_, err := execute(t, "types", "check", file)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTypesCommand_CyclicFileIsCommandError(t *testing.T) {
	file := writeFile(t, t.TempDir(), "self.cue", `types: { D: ["D"] }`)

	_, err := execute(t, "types", "--file", file)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
