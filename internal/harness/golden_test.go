package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Likes(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/likes.yaml")
	require.NoError(t, err)

	// First run with -update to create golden file:
	//   go test ./internal/harness -run TestRunWithGolden_Likes -update
	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestTraceSnapshot_OmitsEmptyFields(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "s",
		Trace: []StepRecord{
			{Step: 0, Mode: "declarative", Token: "t", Query: "(q)", Results: []string{}, Error: "MALFORMED_QUERY"},
		},
	}
	got, err := snap.Marshal()
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"s","trace":[{"error":"MALFORMED_QUERY","mode":"declarative","query":"(q)","results":[],"step":0,"token":"t"}]}`,
		string(got))
}
