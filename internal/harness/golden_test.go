package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunWithGolden_Scenarios runs every scenario under testdata/scenarios
// and compares its trace with testdata/golden/<name>.golden.
//
// Regenerate with:
//
//	go test ./internal/harness -run TestRunWithGolden_Scenarios -update
func TestRunWithGolden_Scenarios(t *testing.T) {
	files, err := FindScenarioFiles(filepath.Join("testdata", "scenarios"), "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors:\n%s", strings.Join(result.Errors, "\n"))

			require.NoError(t, AssertGolden(t, scenario, result))
		})
	}
}

func TestTraceSnapshot_CanonicalJSON(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "tiny",
		KeyPath:      "@index",
		Trace: []TraceEvent{
			{Pass: 1, Seq: 1, Op: "append", Key: "0"},
			{Pass: 1, Seq: 2, Op: "done"},
		},
		Order: []string{"0"},
	}

	data, err := snapshot.MarshalCanonical()
	require.NoError(t, err)

	expected := `{"key":"@index","order":["0"],"scenario_name":"tiny","trace":[{"key":"0","op":"append","pass":1,"seq":1},{"op":"done","pass":1,"seq":2}]}`
	assert.Equal(t, expected, string(data))
}

func TestTraceSnapshot_OmitsEmptyKeyPath(t *testing.T) {
	snapshot := TraceSnapshot{ScenarioName: "identity", Trace: []TraceEvent{}, Order: []string{}}

	data, err := snapshot.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, `{"order":[],"scenario_name":"identity","trace":[]}`, string(data))
}

func TestCanonicalJSONDeterminism(t *testing.T) {
	scenario := &Scenario{
		Name:        "determinism",
		Description: "Same bytes every run",
		Passes: []Pass{
			{Items: []any{"a", "b", "a"}},
			{Items: []any{"b", "a"}},
		},
	}

	var outputs []string
	for i := 0; i < 3; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		snapshot := NewTraceSnapshot(scenario, result)
		data, err := snapshot.MarshalCanonical()
		require.NoError(t, err)
		outputs = append(outputs, string(data))
	}

	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}
