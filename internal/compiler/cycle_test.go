package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atomspace/internal/types"
)

func TestAnalyzeTypeCycles_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeTypeCycles(nil))
}

func TestAnalyzeTypeCycles_DAG(t *testing.T) {
	defs := []types.Def{
		{Name: "AnimalNode", Parents: []string{"ConceptNode"}},
		{Name: "PetNode", Parents: []string{"AnimalNode", "ConceptNode"}},
		{Name: "DogNode", Parents: []string{"PetNode", "AnimalNode"}},
	}
	assert.Empty(t, AnalyzeTypeCycles(defs), "diamond inheritance is not a cycle")
}

func TestAnalyzeTypeCycles_SelfLoop(t *testing.T) {
	warnings := AnalyzeTypeCycles([]types.Def{
		{Name: "LoopNode", Parents: []string{"LoopNode"}},
	})

	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"LoopNode", "LoopNode"}, warnings[0].Path)
	assert.Equal(t, "error", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "inherits from itself")
}

func TestAnalyzeTypeCycles_TwoNode(t *testing.T) {
	warnings := AnalyzeTypeCycles([]types.Def{
		{Name: "ANode", Parents: []string{"BNode"}},
		{Name: "BNode", Parents: []string{"ANode"}},
	})

	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"ANode", "BNode", "ANode"}, warnings[0].Path)
	assert.Equal(t, "inheritance cycle: ANode → BNode → ANode", warnings[0].Message)
}

func TestAnalyzeTypeCycles_ThreeNode(t *testing.T) {
	warnings := AnalyzeTypeCycles([]types.Def{
		{Name: "ANode", Parents: []string{"BNode"}},
		{Name: "BNode", Parents: []string{"CNode"}},
		{Name: "CNode", Parents: []string{"ANode", "ConceptNode"}},
	})

	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"ANode", "BNode", "CNode", "ANode"}, warnings[0].Path)
}

func TestAnalyzeTypeCycles_ReportsEveryCycleInDeclarationOrder(t *testing.T) {
	warnings := AnalyzeTypeCycles([]types.Def{
		{Name: "OkNode", Parents: []string{"ConceptNode"}},
		{Name: "XNode", Parents: []string{"YNode"}},
		{Name: "YNode", Parents: []string{"XNode"}},
		{Name: "SelfNode", Parents: []string{"SelfNode"}},
	})

	require.Len(t, warnings, 2)
	assert.Equal(t, "XNode", warnings[0].Path[0])
	assert.Equal(t, "SelfNode", warnings[1].Path[0])
}

func TestAnalyzeTypeCycles_Deterministic(t *testing.T) {
	defs := []types.Def{
		{Name: "ANode", Parents: []string{"BNode"}},
		{Name: "BNode", Parents: []string{"ANode"}},
		{Name: "CNode", Parents: []string{"DNode"}},
		{Name: "DNode", Parents: []string{"CNode"}},
	}
	first := AnalyzeTypeCycles(defs)
	for range 20 {
		assert.Equal(t, first, AnalyzeTypeCycles(defs))
	}
}

func TestCompiledCycleFileFeedsAnalysis(t *testing.T) {
	defs, err := CompileTypesFile("testdata/cycle.cue")
	require.NoError(t, err)

	warnings := AnalyzeTypeCycles(defs)
	require.Len(t, warnings, 2)
	assert.Len(t, warnings[0].Path, 4)
	assert.Equal(t, []string{"DNode", "DNode"}, warnings[1].Path)
}
