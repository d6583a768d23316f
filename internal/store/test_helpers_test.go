package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id, scenario string, passes int) Run {
	return Run{
		ID:       id,
		Scenario: scenario,
		KeyPath:  "id",
		Passes:   passes,
		Passed:   true,
	}
}

// createTestOps returns one op per key in pass 1, numbered from seq 1.
func createTestOps(op string, keys ...string) []OpRecord {
	ops := make([]OpRecord, len(keys))
	for i, k := range keys {
		ops[i] = OpRecord{Seq: int64(i + 1), Pass: 1, Op: op, Key: k}
	}
	return ops
}
