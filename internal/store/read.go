package store

import (
	"context"
	"database/sql"
	"fmt"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// ReadRun returns a run by id.
// Returns sql.ErrNoRows if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, key_path, passes, passed, errors, created_at
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	return run, nil
}

// ListRuns returns the runs of one scenario, or of every scenario when
// scenario is empty, oldest first.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListRuns(ctx context.Context, scenario string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, key_path, passes, passed, errors, created_at
		FROM runs
		WHERE ? = '' OR scenario = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, scenario, scenario)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadOps returns the ops of a run ORDER BY seq ASC.
// A pass of zero or less selects every pass.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadOps(ctx context.Context, runID string, pass int) ([]OpRecord, error) {
	query := `
		SELECT seq, pass, op, key, before_key
		FROM ops
		WHERE run_id = ?
		ORDER BY seq ASC
	`
	args := []any{runID}
	if pass > 0 {
		query = `
			SELECT seq, pass, op, key, before_key
			FROM ops
			WHERE run_id = ? AND pass = ?
			ORDER BY seq ASC
		`
		args = append(args, pass)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ops: %w", err)
	}
	defer rows.Close()

	ops := []OpRecord{}
	for rows.Next() {
		var op OpRecord
		if err := rows.Scan(&op.Seq, &op.Pass, &op.Op, &op.Key, &op.Before); err != nil {
			return nil, fmt.Errorf("scan op: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ops: %w", err)
	}
	return ops, nil
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		passed     int
		errorsJSON string
	)
	if err := row.Scan(&run.ID, &run.Scenario, &run.KeyPath, &run.Passes, &passed, &errorsJSON, &run.CreatedAt); err != nil {
		return Run{}, err
	}
	run.Passed = passed != 0

	errs, err := unmarshalErrors(errorsJSON)
	if err != nil {
		return Run{}, err
	}
	run.Errors = errs
	return run, nil
}
