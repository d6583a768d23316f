package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/revtrack/internal/store"
)

// seedDatabase records two runs and returns the database path.
func seedDatabase(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.WriteRun(ctx, store.Run{
		ID:       "run-1",
		Scenario: "rotate",
		KeyPath:  "id",
		Passes:   2,
		Passed:   true,
	}, []store.OpRecord{
		{Seq: 1, Pass: 1, Op: "append", Key: "a"},
		{Seq: 2, Pass: 1, Op: "append", Key: "b"},
		{Seq: 3, Pass: 1, Op: "done"},
		{Seq: 4, Pass: 2, Op: "retain", Key: "b"},
		{Seq: 5, Pass: 2, Op: "move", Key: "a", Before: "END"},
		{Seq: 6, Pass: 2, Op: "done"},
	}))
	require.NoError(t, st.WriteRun(ctx, store.Run{
		ID:       "run-2",
		Scenario: "wrong_order",
		Passes:   1,
		Passed:   false,
		Errors:   []string{"pass 1: order mismatch"},
	}, []store.OpRecord{
		{Seq: 1, Pass: 1, Op: "done"},
	}))

	return dbPath
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceTooManyArgs(t *testing.T) {
	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", "x.db", "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", "/nonexistent/path/test.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestTraceListEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestTraceListRuns(t *testing.T) {
	dbPath := seedDatabase(t)

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "rotate")
	assert.Contains(t, out, "Passed")
	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "Failed")
}

func TestTraceListRunsByScenario(t *testing.T) {
	dbPath := seedDatabase(t)

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--scenario", "wrong_order")
	require.NoError(t, err)
	assert.Contains(t, out, "run-2")
	assert.NotContains(t, out, "run-1")
}

func TestTraceListRunsJSON(t *testing.T) {
	dbPath := seedDatabase(t)

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.NotEmpty(t, resp.Data[0].CreatedAt)
}

func TestTraceRun(t *testing.T) {
	dbPath := seedDatabase(t)

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "run-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for Run: run-1")
	assert.Contains(t, out, "Key: id")
	assert.Contains(t, out, "  pass 1\n    [1] append a\n")
	assert.Contains(t, out, "  pass 2\n    [4] retain b\n    [5] move a before END\n    [6] done\n")
	assert.Contains(t, out, "Total Ops: 6")
	assert.Contains(t, out, "append:   2")
}

func TestTraceRunErrors(t *testing.T) {
	dbPath := seedDatabase(t)

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "run-2")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: Failed")
	assert.Contains(t, out, "=== Errors ===\n  pass 1: order mismatch")
}

func TestTraceRunJSON(t *testing.T) {
	dbPath := seedDatabase(t)

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "run-1")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
		RunID  string      `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "rotate", resp.Data.Run.Scenario)
	assert.Len(t, resp.Data.Ops, 6)
	assert.Equal(t, 6, resp.Data.Stats.TotalOps)
	assert.Equal(t, 2, resp.Data.Stats.ByOp["done"])
}

func TestTracePassFilter(t *testing.T) {
	dbPath := seedDatabase(t)

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--pass", "2", "run-1")
	require.NoError(t, err)
	assert.NotContains(t, out, "append a")
	assert.Contains(t, out, "move a before END")
	assert.Contains(t, out, "Total Ops: 3")
}

func TestTraceOpFilter(t *testing.T) {
	dbPath := seedDatabase(t)

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--op", "append", "run-1")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Ops, 2)
	assert.Equal(t, "a", resp.Data.Ops[0].Key)
	assert.Equal(t, "b", resp.Data.Ops[1].Key)
}

func TestTracePassOutOfRange(t *testing.T) {
	dbPath := seedDatabase(t)

	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--pass", "3", "run-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "pass 3 out of range 1..2")
}

func TestTraceUnknownRun(t *testing.T) {
	dbPath := seedDatabase(t)

	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: missing")
}

func TestBuildTimeline(t *testing.T) {
	records := []store.OpRecord{
		{Seq: 1, Pass: 1, Op: "append", Key: "a"},
		{Seq: 2, Pass: 1, Op: "done"},
	}

	assert.Len(t, buildTimeline(records, ""), 2)
	filtered := buildTimeline(records, "done")
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(2), filtered[0].Seq)
	assert.NotNil(t, buildTimeline(nil, ""))
}

func TestFormatOp(t *testing.T) {
	assert.Equal(t, "done", formatOp(OpEntry{Op: "done"}))
	assert.Equal(t, "retain b", formatOp(OpEntry{Op: "retain", Key: "b"}))
	assert.Equal(t, "insert x before b", formatOp(OpEntry{Op: "insert", Key: "x", Before: "b"}))
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "0192a3b4...c5d6e7f8", truncateID("0192a3b4-0000-7000-8000-0000c5d6e7f8"))
}

func TestPassedStatus(t *testing.T) {
	assert.Equal(t, "Passed", passedStatus(true))
	assert.Equal(t, "Failed", passedStatus(false))
}
