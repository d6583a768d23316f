package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Run is one recorded scenario execution.
type Run struct {
	ID       string
	Scenario string
	KeyPath  string
	Passes   int
	Passed   bool

	// Errors holds the error messages of failed passes, in pass order.
	Errors []string

	// CreatedAt is set by the database on insert and ignored by WriteRun.
	CreatedAt string
}

// OpRecord is one delegate callback of a run.
type OpRecord struct {
	Seq    int64
	Pass   int
	Op     string
	Key    string
	Before string
}

// WriteRun inserts a run and its ops in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency: writing the same run id twice
// keeps the first recording and its ops.
func (s *Store) WriteRun(ctx context.Context, run Run, ops []OpRecord) error {
	errorsJSON, err := marshalErrors(run.Errors)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, key_path, passes, passed, errors)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Scenario,
		run.KeyPath,
		run.Passes,
		boolToInt(run.Passed),
		errorsJSON,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if inserted == 0 {
		return tx.Commit()
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ops (run_id, seq, pass, op, key, before_key)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write ops: prepare: %w", err)
	}
	defer stmt.Close()

	for _, op := range ops {
		if _, err := stmt.ExecContext(ctx, run.ID, op.Seq, op.Pass, op.Op, op.Key, op.Before); err != nil {
			return fmt.Errorf("write op %d: %w", op.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

// DeleteRun removes a run. Its ops go with it through ON DELETE CASCADE.
// Deleting a missing run is not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

func marshalErrors(errs []string) (string, error) {
	if errs == nil {
		errs = []string{}
	}
	data, err := json.Marshal(errs)
	if err != nil {
		return "", fmt.Errorf("marshal errors: %w", err)
	}
	return string(data), nil
}

func unmarshalErrors(data string) ([]string, error) {
	if data == "" {
		return []string{}, nil
	}
	var errs []string
	if err := json.Unmarshal([]byte(data), &errs); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	if errs == nil {
		errs = []string{}
	}
	return errs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
