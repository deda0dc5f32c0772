package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/idhash/internal/canonical"
	"github.com/roach88/idhash/internal/fingerprint"
	"github.com/roach88/idhash/internal/rowhash"
)

// Run is one recorded fingerprint computation.
type Run struct {
	ID            string        `json:"id" yaml:"id"`
	Seq           int64         `json:"seq" yaml:"seq"`
	Source        string        `json:"source" yaml:"source"`
	Fingerprint   rowhash.Hash  `json:"fingerprint" yaml:"fingerprint"`
	FormatVersion string        `json:"format_version" yaml:"format_version"`
	FormatKey     string        `json:"format_key" yaml:"format_key"`
	Digits        int           `json:"digits" yaml:"digits"`
	Characters    int           `json:"characters" yaml:"characters"`
	Normalization string        `json:"normalization" yaml:"normalization"`
	Rows          int64         `json:"rows" yaml:"rows"`
	Batches       int           `json:"batches" yaml:"batches"`
	Workers       int           `json:"workers" yaml:"workers"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
	RecordedAt    time.Time     `json:"recorded_at" yaml:"recorded_at"`
}

// NewRun builds a Run for a finished computation. Seq is assigned by WriteRun.
func NewRun(source string, cfg canonical.Config, res fingerprint.Result, now time.Time) (Run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Run{}, fmt.Errorf("new run id: %w", err)
	}

	norm := cfg.Normalization
	if norm == "" {
		norm = canonical.NormalizationNone
	}

	return Run{
		ID:            id.String(),
		Source:        source,
		Fingerprint:   res.Fingerprint,
		FormatVersion: canonical.FormatVersion,
		FormatKey:     cfg.Key(),
		Digits:        cfg.Digits,
		Characters:    cfg.Characters,
		Normalization: string(norm),
		Rows:          res.Rows,
		Batches:       res.Batches,
		Workers:       res.Workers,
		Duration:      res.Elapsed,
		RecordedAt:    now.UTC(),
	}, nil
}

// Comparable reports whether two runs used the same canonical format.
func (r Run) Comparable(o Run) bool {
	return r.FormatKey == o.FormatKey
}

// WriteRun inserts a run and returns it with Seq filled in.
// Uses ON CONFLICT(id) DO NOTHING for idempotency; a duplicate ID returns
// the stored row unchanged.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		return Run{}, errors.New("write run: id is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, source, fingerprint, format_version, format_key, digits, characters,
		 normalization, row_count, batch_count, workers, duration_ns, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Source,
		run.Fingerprint.Hex(),
		run.FormatVersion,
		run.FormatKey,
		run.Digits,
		run.Characters,
		run.Normalization,
		run.Rows,
		run.Batches,
		run.Workers,
		int64(run.Duration),
		run.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	stored, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, run.ID))
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	return stored, nil
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	Source string
	Limit  int
}

// ListRuns returns recorded runs, newest first.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}

	query := selectRuns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recent run of source with the given format key.
// The bool is false when there is none.
func (s *Store) LatestRun(ctx context.Context, source, formatKey string) (Run, bool, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+`
		WHERE source = ? AND format_key = ?
		ORDER BY seq DESC
		LIMIT 1
	`, source, formatKey))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("latest run: %w", err)
	}
	return run, true, nil
}

const selectRuns = `
	SELECT seq, id, source, fingerprint, format_version, format_key, digits, characters,
	       normalization, row_count, batch_count, workers, duration_ns, recorded_at
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run        Run
		hexHash    string
		durationNS int64
		recordedAt string
	)
	err := sc.Scan(
		&run.Seq,
		&run.ID,
		&run.Source,
		&hexHash,
		&run.FormatVersion,
		&run.FormatKey,
		&run.Digits,
		&run.Characters,
		&run.Normalization,
		&run.Rows,
		&run.Batches,
		&run.Workers,
		&durationNS,
		&recordedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if run.Fingerprint, err = rowhash.Parse("0x" + hexHash); err != nil {
		return Run{}, fmt.Errorf("scan run %s: %w", run.ID, err)
	}
	if run.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
		return Run{}, fmt.Errorf("scan run %s: recorded_at: %w", run.ID, err)
	}
	run.Duration = time.Duration(durationNS)
	return run, nil
}
