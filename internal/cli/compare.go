package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/idhash/internal/settings"
)

// CompareResult is the output of the compare command.
type CompareResult struct {
	Match     bool       `json:"match" yaml:"match"`
	FormatKey string     `json:"format_key" yaml:"format_key"`
	Left      HashReport `json:"left" yaml:"left"`
	Right     HashReport `json:"right" yaml:"right"`
}

// String renders the result the way the text output prints it.
func (r CompareResult) String() string {
	verdict := "MATCH"
	if !r.Match {
		verdict = "DIFFER"
	}
	return fmt.Sprintf("%s\n%s\n%s", r.Left, r.Right, verdict)
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <a> <b>",
		Short: "Check whether two datasets share a fingerprint",
		Long: `Fingerprint two files under the same settings and compare the results.

Exits 0 when the fingerprints match and 1 when they differ. The two files
may have different formats; only their values matter.

Example:
  idhash compare export.csv export.arrow
  idhash compare --digits 3 before.csv after.csv`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(rootOpts, args[0], args[1], cmd)
		},
	}

	settings.RegisterFlags(cmd.Flags())

	return cmd
}

func runCompare(opts *RootOptions, left, right string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadSettings(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid settings", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := CompareResult{FormatKey: cfg.Canonical().Key()}
	for _, side := range []struct {
		path   string
		report *HashReport
	}{
		{left, &result.Left},
		{right, &result.Right},
	} {
		report, err := hashFile(ctx, side.path, cfg)
		if err != nil {
			return formatter.Fail(ExitCommandError, errorCode(err), fmt.Sprintf("failed to fingerprint %s", side.path), err)
		}
		*side.report = report
	}
	result.Match = result.Left.Fingerprint == result.Right.Fingerprint

	if err := formatter.Success(result); err != nil {
		return err
	}
	if !result.Match {
		if formatter.Structured() {
			return NewExitError(ExitFailure, "fingerprints differ")
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s: fingerprints differ", ErrCodeMismatch))
	}
	return nil
}
