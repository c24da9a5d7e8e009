package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atomspace/internal/types"
)

func TestCompileTypesBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		types: {
			AnimalNode: ["ConceptNode"]
			PetNode:    ["AnimalNode", "ConceptNode"]
		}
	`)
	require.NoError(t, v.Err())

	defs, err := CompileTypes(v)
	require.NoError(t, err)
	assert.Equal(t, []types.Def{
		{Name: "AnimalNode", Parents: []string{"ConceptNode"}},
		{Name: "PetNode", Parents: []string{"AnimalNode", "ConceptNode"}},
	}, defs)
}

func TestCompileTypesOrdersParentsFirst(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		types: {
			PuppyNode:  ["DogNode"]
			DogNode:    ["AnimalNode"]
			AnimalNode: ["ConceptNode"]
		}
	`)

	defs, err := CompileTypes(v)
	require.NoError(t, err)
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"AnimalNode", "DogNode", "PuppyNode"}, names)
}

func TestCompileTypesMissingTypes(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: 1`)

	_, err := CompileTypes(v)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "types", ce.Field)
	assert.Contains(t, err.Error(), "required")
}

func TestCompileTypesRejectsNonList(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`types: PetNode: "ConceptNode"`)

	_, err := CompileTypes(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "types.PetNode")
	assert.Contains(t, err.Error(), "list of type names")
}

func TestCompileTypesRejectsNonStringParent(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`types: PetNode: [42]`)

	_, err := CompileTypes(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parent must be a string")
}

func TestCompileTypesRejectsIncomplete(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`types: PetNode: [string]`)

	_, err := CompileTypes(v)
	require.Error(t, err)
}

func TestCompileTypesCUEErrorHasPosition(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`types: PetNode: ["ConceptNode"] & ["NumberNode"]`, cue.Filename("bad.cue"))

	_, err := CompileTypes(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.cue")
}

func TestLoadTypesFile(t *testing.T) {
	reg, err := LoadTypesFile(filepath.Join("testdata", "pets.cue"))
	require.NoError(t, err)

	pet, ok := reg.Lookup("PetNode")
	require.True(t, ok)
	animal := reg.MustLookup("AnimalNode")
	owns := reg.MustLookup("OwnsLink")

	assert.True(t, reg.IsA(pet, animal))
	assert.True(t, reg.IsA(pet, types.ConceptNode))
	assert.True(t, types.IsNodeType(reg, pet))
	assert.True(t, types.IsLinkType(reg, owns))
	assert.False(t, types.IsUnordered(reg, owns))
	assert.Equal(t, types.Builtin().Len()+3, reg.Len())
}

func TestLoadTypesFileCycle(t *testing.T) {
	_, err := LoadTypesFile(filepath.Join("testdata", "cycle.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inheritance cycle")
}

func TestLoadTypesFileRedeclaredBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.cue")
	require.NoError(t, os.WriteFile(path, []byte(`types: ConceptNode: ["Node"]`), 0o644))

	_, err := LoadTypesFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrTypeRedeclared)
}

func TestLoadTypesFileMissing(t *testing.T) {
	_, err := LoadTypesFile(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read types file")
}
