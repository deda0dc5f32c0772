package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v13/arrow"
	arrowcsv "github.com/apache/arrow/go/v13/arrow/csv"
)

// Inferred CSV column types.
var (
	TypeBool      arrow.DataType = arrow.FixedWidthTypes.Boolean
	TypeInt       arrow.DataType = arrow.PrimitiveTypes.Int64
	TypeFloat     arrow.DataType = arrow.PrimitiveTypes.Float64
	TypeDate      arrow.DataType = arrow.FixedWidthTypes.Date32
	TypeTimestamp arrow.DataType = &arrow.TimestampType{Unit: arrow.Microsecond}
	TypeText      arrow.DataType = arrow.BinaryTypes.String

	// TypeTimestampNano replaces TypeTimestamp for columns whose sampled
	// values carry more than six fractional digits.
	TypeTimestampNano arrow.DataType = &arrow.TimestampType{Unit: arrow.Nanosecond}
)

// Range of time representable as int64 nanoseconds since the epoch.
var (
	minNanoTime = time.Unix(0, math.MinInt64).UTC()
	maxNanoTime = time.Unix(0, math.MaxInt64).UTC()
)

// candidate is a type still consistent with every sampled value, tried in
// order from most to least specific.
type candidate struct {
	dt    arrow.DataType
	match func(string) bool
}

var candidates = []candidate{
	{TypeBool, isBool},
	{TypeInt, isInt},
	{TypeFloat, isFloat},
	{TypeDate, isDate},
	{TypeTimestamp, isTimestamp},
}

// OpenCSV infers a schema from the head of r and returns a reader over the
// whole input. r is rewound after sampling.
func OpenCSV(r io.ReadSeeker, comma rune, opts Options) (*Reader, error) {
	schema, err := InferSchema(r, comma, opts.inferenceRows())
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind after inference: %w", err)
	}

	slog.Debug("csv schema inferred", "columns", len(schema.Fields()), "schema", schema.String())

	rdr := arrowcsv.NewReader(r, schema,
		arrowcsv.WithComma(comma),
		arrowcsv.WithHeader(true),
		arrowcsv.WithChunk(opts.batchSize()),
		arrowcsv.WithNullReader(true, ""),
		arrowcsv.WithAllocator(opts.allocator()),
	)
	return &Reader{RecordReader: rdr}, nil
}

// InferSchema reads the header and up to rows data rows from r and returns
// one nullable field per header column.
//
// Empty values are nulls and do not vote. A column with no non-empty sampled
// value is text. Timestamp columns are microsecond unless a sampled value has
// sub-microsecond digits; such a column is nanosecond, or text when one of
// its values lies outside the nanosecond range.
func InferSchema(r io.Reader, comma rune, rows int) (*arrow.Schema, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("infer schema: empty input, a header row is required")
	}
	if err != nil {
		return nil, fmt.Errorf("infer schema: read header: %w", err)
	}
	names := append([]string(nil), header...)

	// live[i] holds the candidates column i still satisfies.
	live := make([][]candidate, len(names))
	seen := make([]bool, len(names))
	// fraction[i] is the most fractional-second digits seen in column i.
	fraction := make([]int, len(names))
	wide := make([]bool, len(names))
	for i := range live {
		live[i] = candidates
	}

	for n := 0; n < rows; n++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("infer schema: row %d: %w", n+1, err)
		}
		for i, v := range record {
			if v == "" {
				continue
			}
			seen[i] = true
			live[i] = narrow(live[i], v)
			if t, ok := parseTimestamp(v); ok {
				fraction[i] = max(fraction[i], fractionDigits(v))
				wide[i] = wide[i] || t.Before(minNanoTime) || t.After(maxNanoTime)
			}
		}
	}

	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		dt := TypeText
		if seen[i] && len(live[i]) > 0 {
			dt = live[i][0].dt
		}
		if dt == TypeTimestamp && fraction[i] > 6 {
			dt = TypeTimestampNano
			if wide[i] {
				dt = TypeText
			}
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

func narrow(cs []candidate, v string) []candidate {
	out := cs[:0:0]
	for _, c := range cs {
		if c.match(v) {
			out = append(out, c)
		}
	}
	return out
}

func isBool(s string) bool {
	switch s {
	case "true", "false", "True", "False":
		return true
	}
	return false
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// isFloat accepts decimal and scientific notation, not the NaN or Inf
// spellings, so words in text columns are not taken for floats.
func isFloat(s string) bool {
	if !strings.ContainsAny(s, "0123456789") {
		return false
	}
	if strings.ContainsAny(s, "nNiIxXpP_") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isDate(s string) bool {
	if len(s) != len(time.DateOnly) {
		return false
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

func isTimestamp(s string) bool {
	_, ok := parseTimestamp(s)
	return ok
}

// parseTimestamp accepts RFC 3339 and "2006-01-02 15:04:05", each with at
// most nine fractional digits.
func parseTimestamp(s string) (time.Time, bool) {
	if fractionDigits(s) > 9 {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	t, err := time.Parse(time.DateTime, s)
	return t, err == nil
}

// fractionDigits counts the digits after the first '.' in s.
func fractionDigits(s string) int {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	n := 0
	for _, c := range s[i+1:] {
		if c < '0' || c > '9' {
			break
		}
		n++
	}
	return n
}
