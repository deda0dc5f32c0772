package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/idhash/internal/canonical"
	"github.com/roach88/idhash/internal/column"
	"github.com/roach88/idhash/internal/rowhash"
	"github.com/roach88/idhash/internal/settings"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Type string
	Null bool
}

// EncodeResult is the output of the encode command.
type EncodeResult struct {
	Kind      string       `json:"kind" yaml:"kind"`
	Input     *string      `json:"input" yaml:"input"`
	Canonical string       `json:"canonical" yaml:"canonical"`
	Quoted    string       `json:"quoted" yaml:"quoted"`
	RowHash   rowhash.Hash `json:"row_hash" yaml:"row_hash"`
	FormatKey string       `json:"format_key" yaml:"format_key"`
}

// String renders the result the way the text output prints it.
func (r EncodeResult) String() string {
	return r.Quoted
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode --type <kind> <value>",
		Short: "Print the canonical form of a single value",
		Long: `Print the canonical form of one value, sentinel included, as a quoted
Go string. With --format json the hash of a one-column row holding the
value is reported too.

Kinds: null, bool, int, uint, float, date, timestamp, text.
Dates accept YYYY-MM-DD or a day count since 1970-01-01. Timestamps accept
a raw tick count or an RFC 3339 time, converted to microseconds.

Example:
  idhash encode --type float 19.99
  idhash encode --type float --digits 2 3.14159
  idhash encode --type text --characters 3 abcdef
  idhash encode --null`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, args, cmd)
		},
	}

	settings.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.Type, "type", "text", "value kind (null|bool|int|uint|float|date|timestamp|text)")
	cmd.Flags().BoolVar(&opts.Null, "null", false, "encode a null instead of a value")

	return cmd
}

func runEncode(opts *EncodeOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadSettings(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid settings", err)
	}

	kind, err := column.ParseKind(opts.Type)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid --type", err)
	}

	var input *string
	switch {
	case opts.Null || kind == column.KindNull:
		if len(args) > 0 {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "a null takes no value", nil)
		}
	case len(args) == 1:
		input = &args[0]
	default:
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "a value is required unless --null is set", nil)
	}

	form, err := encodeValue(kind, input, cfg.Canonical())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("cannot encode as %s", kind), err)
	}

	return formatter.Success(EncodeResult{
		Kind:      kind.String(),
		Input:     input,
		Canonical: form.String(),
		Quoted:    strconv.Quote(form.String()),
		RowHash:   rowhash.HashRow(form),
		FormatKey: cfg.Canonical().Key(),
	})
}

// encodeValue parses s as kind and returns its canonical form. A nil s is
// a null.
func encodeValue(kind column.Kind, s *string, cfg canonical.Config) (canonical.Form, error) {
	if s == nil {
		return canonical.EncodeNull(cfg), nil
	}
	v := *s

	switch kind {
	case column.KindBool:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		return canonical.EncodeBool(b, cfg), nil
	case column.KindSigned:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, err
		}
		return canonical.EncodeInt(n, cfg), nil
	case column.KindUnsigned:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, err
		}
		return canonical.EncodeUint(n, cfg), nil
	case column.KindFloat:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		return canonical.EncodeFloat(f, cfg), nil
	case column.KindDate:
		days, err := parseDays(v)
		if err != nil {
			return nil, err
		}
		return canonical.EncodeInt(days, cfg), nil
	case column.KindTimestamp:
		ticks, err := parseTicks(v)
		if err != nil {
			return nil, err
		}
		return canonical.EncodeTimestamp(ticks), nil
	case column.KindText:
		return canonical.EncodeText(v, cfg), nil
	default:
		return nil, fmt.Errorf("kind %s takes no value", kind)
	}
}

func parseDays(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("date %q: want YYYY-MM-DD or a day count", s)
	}
	return t.Unix() / 86400, nil
}

func parseTicks(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: want RFC 3339 or a tick count", s)
	}
	return t.UnixMicro(), nil
}
