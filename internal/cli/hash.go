package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/roach88/idhash/internal/fingerprint"
	"github.com/roach88/idhash/internal/rowhash"
	"github.com/roach88/idhash/internal/settings"
	"github.com/roach88/idhash/internal/source"
	"github.com/roach88/idhash/internal/store"
)

// HashOptions holds flags for the hash command.
type HashOptions struct {
	*RootOptions
	Database string

	// Now allows overriding the clock used for recorded runs (for testing).
	Now func() time.Time
}

// HashReport is the per-file output of the hash command.
type HashReport struct {
	Path        string        `json:"path" yaml:"path"`
	Fingerprint rowhash.Hash  `json:"fingerprint" yaml:"fingerprint"`
	Hex         string        `json:"hex" yaml:"hex"`
	FormatKey   string        `json:"format_key" yaml:"format_key"`
	Rows        int64         `json:"rows" yaml:"rows"`
	Batches     int           `json:"batches" yaml:"batches"`
	Workers     int           `json:"workers" yaml:"workers"`
	Elapsed     time.Duration `json:"elapsed_ns" yaml:"elapsed_ns"`
	RunID       string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Previous    *PreviousRun  `json:"previous,omitempty" yaml:"previous,omitempty"`
}

// PreviousRun describes the last recorded run of the same source and format.
type PreviousRun struct {
	RunID       string       `json:"run_id" yaml:"run_id"`
	Fingerprint rowhash.Hash `json:"fingerprint" yaml:"fingerprint"`
	Changed     bool         `json:"changed" yaml:"changed"`
}

// String renders the report the way the text output prints it.
func (r HashReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s | ShortHash: %s", r.Path, r.Fingerprint)
	if r.Previous != nil {
		if r.Previous.Changed {
			fmt.Fprintf(&b, "\n  changed since run %s (was %s)", r.Previous.RunID, r.Previous.Fingerprint)
		} else {
			fmt.Fprintf(&b, "\n  unchanged since run %s", r.Previous.RunID)
		}
	}
	return b.String()
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	return newHashCommand(&HashOptions{RootOptions: rootOpts, Now: time.Now})
}

func newHashCommand(opts *HashOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print the fingerprint of one or more datasets",
		Long: `Compute the fingerprint of each file and print it as a decimal number.

Supported inputs are CSV, TSV and Arrow IPC files or streams. The format is
detected from the extension unless --input-format is given.

With --db, every run is recorded and compared with the previous run of the
same file under the same canonical settings.

Example:
  idhash hash data.csv
  idhash hash --digits 3 --workers 1 a.arrow b.tsv
  idhash hash --db runs.db data.csv`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(opts, args, cmd)
		},
	}

	settings.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.Database, "db", "", "record runs in this SQLite database")

	return cmd
}

func runHash(opts *HashOptions, paths []string, cmd *cobra.Command) (err error) {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadSettings(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid settings", err)
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				err = multierr.Append(err, WrapExitError(ExitCommandError, "failed to close database", closeErr))
			}
		}()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reports := make([]HashReport, 0, len(paths))
	for _, path := range paths {
		report, err := hashFile(ctx, path, cfg)
		if err != nil {
			return formatter.Fail(ExitCommandError, errorCode(err), fmt.Sprintf("failed to fingerprint %s", path), err)
		}

		if st != nil {
			if err := recordRun(ctx, st, &report, cfg, opts.Now()); err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to record run", err)
			}
		}

		formatter.VerboseLog("%s: %s rows in %s batches, %d workers, %s",
			path, humanize.Comma(report.Rows), humanize.Comma(int64(report.Batches)), report.Workers, report.Elapsed)
		reports = append(reports, report)
	}

	if formatter.Structured() {
		return formatter.Success(reports)
	}
	for _, r := range reports {
		if err := formatter.Success(r); err != nil {
			return err
		}
	}
	return nil
}

// hashFile opens path and fingerprints it under cfg.
func hashFile(ctx context.Context, path string, cfg settings.Options) (HashReport, error) {
	res, err := fingerprintFile(ctx, path, cfg)
	if err != nil {
		return HashReport{}, err
	}
	return HashReport{
		Path:        path,
		Fingerprint: res.Fingerprint,
		Hex:         res.Fingerprint.Hex(),
		FormatKey:   cfg.Canonical().Key(),
		Rows:        res.Rows,
		Batches:     res.Batches,
		Workers:     res.Workers,
		Elapsed:     res.Elapsed,
	}, nil
}

// fingerprintFile opens path, computes its fingerprint and closes it.
// Close errors are combined with the computation's error.
func fingerprintFile(ctx context.Context, path string, cfg settings.Options) (res fingerprint.Result, err error) {
	rdr, err := source.Open(path, cfg.Source())
	if err != nil {
		return fingerprint.Result{}, err
	}
	defer func() {
		err = multierr.Append(err, rdr.Close())
	}()

	slog.Debug("source opened", "path", path, "format", rdr.Format, "columns", rdr.Schema().NumFields())
	return fingerprint.Compute(ctx, rdr, cfg.Fingerprint(slog.Default().With("path", path)))
}

// recordRun stores report as a run and attaches the previous comparable run.
func recordRun(ctx context.Context, st *store.Store, report *HashReport, cfg settings.Options, now time.Time) error {
	prev, found, err := st.LatestRun(ctx, report.Path, report.FormatKey)
	if err != nil {
		return err
	}

	run, err := store.NewRun(report.Path, cfg.Canonical(), fingerprint.Result{
		Fingerprint: report.Fingerprint,
		Rows:        report.Rows,
		Batches:     report.Batches,
		Workers:     report.Workers,
		Elapsed:     report.Elapsed,
	}, now)
	if err != nil {
		return err
	}
	if run, err = st.WriteRun(ctx, run); err != nil {
		return err
	}

	report.RunID = run.ID
	if found && prev.Comparable(run) {
		report.Previous = &PreviousRun{
			RunID:       prev.ID,
			Fingerprint: prev.Fingerprint,
			Changed:     prev.Fingerprint != report.Fingerprint,
		}
		slog.Debug("compared with previous run", "path", report.Path, "previous", prev.ID, "changed", report.Previous.Changed)
	}
	return nil
}
