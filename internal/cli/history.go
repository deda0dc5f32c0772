package cli

import (
	"context"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/roach88/idhash/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Source   string
	Limit    int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show fingerprints recorded with hash --db",
		Long: `List recorded runs, newest first.

Runs are only comparable when their format keys match; the key encodes the
canonical format version, digits, characters and normalization.

Example:
  idhash history --db runs.db
  idhash history --db runs.db --source data.csv --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Source, "source", "", "only show runs of this file")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum runs shown (0 = all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) (err error) {
	formatter := opts.formatter(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			err = multierr.Append(err, WrapExitError(ExitCommandError, "failed to close database", closeErr))
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runs, err := st.ListRuns(ctx, store.RunFilter{Source: opts.Source, Limit: opts.Limit})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
	}

	if formatter.Structured() {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		return formatter.Success("No runs recorded.")
	}
	return formatter.Success(renderRuns(runs))
}

// renderRuns formats runs as a rounded table.
func renderRuns(runs []store.Run) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Seq", "Recorded", "Source", "Fingerprint", "Format", "Rows", "Elapsed"})

	for _, r := range runs {
		tw.AppendRow(table.Row{
			strconv.FormatInt(r.Seq, 10),
			r.RecordedAt.Local().Format("2006-01-02 15:04:05"),
			r.Source,
			r.Fingerprint.String(),
			r.FormatKey,
			humanize.Comma(r.Rows),
			r.Duration.String(),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 7, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
