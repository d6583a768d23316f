package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func TestReadRun_Exists(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1", "rotate", 3)
	if err := s.WriteRun(ctx, run, nil); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}

	if got.ID != "run-1" || got.Scenario != "rotate" || got.KeyPath != "id" {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.Passes != 3 || !got.Passed {
		t.Errorf("expected 3 passing passes, got %+v", got)
	}
	if got.Errors == nil || len(got.Errors) != 0 {
		t.Errorf("expected empty non-nil errors, got %#v", got.Errors)
	}
	if got.CreatedAt == "" {
		t.Error("expected created_at to be set by the database")
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background(), "")
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestListRuns_Ordering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Same created_at resolution is possible, so id breaks the tie.
	for _, id := range []string{"run-b", "run-a", "run-c"} {
		if err := s.WriteRun(ctx, createTestRun(id, id, 1), nil); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", id, err)
		}
	}
	if _, err := s.db.Exec("UPDATE runs SET created_at = '2026-01-01T00:00:00.000Z'"); err != nil {
		t.Fatalf("pin created_at: %v", err)
	}

	runs, err := s.ListRuns(ctx, "")
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}

	want := []string{"run-a", "run-b", "run-c"}
	if len(runs) != len(want) {
		t.Fatalf("expected %d runs, got %d", len(want), len(runs))
	}
	for i, id := range want {
		if runs[i].ID != id {
			t.Errorf("runs[%d] = %s, want %s", i, runs[i].ID, id)
		}
	}
}

func TestListRuns_FilterByScenario(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, run := range []Run{
		createTestRun("run-1", "rotate", 2),
		createTestRun("run-2", "duplicates", 2),
		createTestRun("run-3", "rotate", 3),
	} {
		if err := s.WriteRun(ctx, run, nil); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", run.ID, err)
		}
	}

	runs, err := s.ListRuns(ctx, "rotate")
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 rotate runs, got %d", len(runs))
	}
	for _, run := range runs {
		if run.Scenario != "rotate" {
			t.Errorf("run %s has scenario %q", run.ID, run.Scenario)
		}
	}

	runs, err = s.ListRuns(ctx, "missing")
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", runs)
	}
}

func TestReadOps_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ops := []OpRecord{
		{Seq: 3, Pass: 2, Op: "move", Key: "a", Before: "END"},
		{Seq: 1, Pass: 1, Op: "append", Key: "a"},
		{Seq: 2, Pass: 1, Op: "done"},
	}
	if err := s.WriteRun(ctx, createTestRun("run-1", "order", 2), ops); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	got, err := s.ReadOps(ctx, "run-1", 0)
	if err != nil {
		t.Fatalf("ReadOps() failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 ops, got %d", len(got))
	}
	for i, seq := range []int64{1, 2, 3} {
		if got[i].Seq != seq {
			t.Errorf("ops[%d].Seq = %d, want %d", i, got[i].Seq, seq)
		}
	}
	if got[2].Before != "END" {
		t.Errorf("expected before END on move, got %q", got[2].Before)
	}
}

func TestReadOps_FilterByPass(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ops := []OpRecord{
		{Seq: 1, Pass: 1, Op: "append", Key: "a"},
		{Seq: 2, Pass: 1, Op: "done"},
		{Seq: 3, Pass: 2, Op: "delete", Key: "a"},
		{Seq: 4, Pass: 2, Op: "done"},
	}
	if err := s.WriteRun(ctx, createTestRun("run-1", "filter", 2), ops); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	got, err := s.ReadOps(ctx, "run-1", 2)
	if err != nil {
		t.Fatalf("ReadOps() failed: %v", err)
	}
	if len(got) != 2 || got[0].Op != "delete" || got[1].Op != "done" {
		t.Errorf("unexpected pass 2 ops: %+v", got)
	}
}

func TestReadOps_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadOps(context.Background(), "missing", 0)
	if err != nil {
		t.Fatalf("ReadOps() failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}
