package testutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/float16"
	"github.com/apache/arrow/go/v13/arrow/memory"
)

// Schema builds a nullable schema from alternating name/type pairs.
//
//	testutil.Schema("id", arrow.PrimitiveTypes.Int64, "name", arrow.BinaryTypes.String)
func Schema(pairs ...any) *arrow.Schema {
	if len(pairs)%2 != 0 {
		panic("testutil.Schema: odd number of arguments")
	}
	fields := make([]arrow.Field, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		fields = append(fields, arrow.Field{
			Name:     pairs[i].(string),
			Type:     pairs[i+1].(arrow.DataType),
			Nullable: true,
		})
	}
	return arrow.NewSchema(fields, nil)
}

// Record builds one record from rows of Go values. A nil cell is null.
// The record is released when the test ends.
func Record(t testing.TB, mem memory.Allocator, schema *arrow.Schema, rows [][]any) arrow.Record {
	t.Helper()
	rec, err := BuildRecord(mem, schema, rows)
	if err != nil {
		t.Fatalf("build record: %v", err)
	}
	t.Cleanup(rec.Release)
	return rec
}

// Records splits rows into records of at most batchSize rows each.
// An empty rows slice yields no records.
func Records(t testing.TB, mem memory.Allocator, schema *arrow.Schema, rows [][]any, batchSize int) []arrow.Record {
	t.Helper()
	if batchSize < 1 {
		t.Fatalf("batch size must be positive, got %d", batchSize)
	}
	var recs []arrow.Record
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		recs = append(recs, Record(t, mem, schema, rows[start:end]))
	}
	return recs
}

// Reader returns a record reader over rows split into batchSize batches.
func Reader(t testing.TB, mem memory.Allocator, schema *arrow.Schema, rows [][]any, batchSize int) array.RecordReader {
	t.Helper()
	rdr, err := array.NewRecordReader(schema, Records(t, mem, schema, rows, batchSize))
	if err != nil {
		t.Fatalf("new record reader: %v", err)
	}
	t.Cleanup(rdr.Release)
	return rdr
}

// BuildRecord is the non-test form of Record. The caller owns the result.
func BuildRecord(mem memory.Allocator, schema *arrow.Schema, rows [][]any) (arrow.Record, error) {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	width := len(schema.Fields())
	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d values, schema has %d fields", r, len(row), width)
		}
		for c, v := range row {
			if err := appendValue(b.Field(c), v); err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", r, c, err)
			}
		}
	}
	return b.NewRecord(), nil
}

func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch fb := b.(type) {
	case *array.NullBuilder:
		return fmt.Errorf("null column holds non-nil %v", v)
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return mismatch(v, "bool")
		}
		fb.Append(x)
	case *array.Int8Builder:
		return appendInt(v, func(x int64) { fb.Append(int8(x)) })
	case *array.Int16Builder:
		return appendInt(v, func(x int64) { fb.Append(int16(x)) })
	case *array.Int32Builder:
		return appendInt(v, func(x int64) { fb.Append(int32(x)) })
	case *array.Int64Builder:
		return appendInt(v, func(x int64) { fb.Append(x) })
	case *array.Uint8Builder:
		return appendInt(v, func(x int64) { fb.Append(uint8(x)) })
	case *array.Uint16Builder:
		return appendInt(v, func(x int64) { fb.Append(uint16(x)) })
	case *array.Uint32Builder:
		return appendInt(v, func(x int64) { fb.Append(uint32(x)) })
	case *array.Uint64Builder:
		if x, ok := v.(uint64); ok {
			fb.Append(x)
			return nil
		}
		return appendInt(v, func(x int64) { fb.Append(uint64(x)) })
	case *array.Float16Builder:
		return appendFloat(v, func(x float64) { fb.Append(float16.New(float32(x))) })
	case *array.Float32Builder:
		return appendFloat(v, func(x float64) { fb.Append(float32(x)) })
	case *array.Float64Builder:
		return appendFloat(v, func(x float64) { fb.Append(x) })
	case *array.Date32Builder:
		return appendInt(v, func(x int64) { fb.Append(arrow.Date32(x)) })
	case *array.Date64Builder:
		return appendInt(v, func(x int64) { fb.Append(arrow.Date64(x)) })
	case *array.TimestampBuilder:
		return appendInt(v, func(x int64) { fb.Append(arrow.Timestamp(x)) })
	case *array.StringBuilder:
		x, ok := v.(string)
		if !ok {
			return mismatch(v, "string")
		}
		fb.Append(x)
	case *array.LargeStringBuilder:
		x, ok := v.(string)
		if !ok {
			return mismatch(v, "string")
		}
		fb.Append(x)
	case *array.BinaryBuilder:
		x, ok := v.([]byte)
		if !ok {
			return mismatch(v, "[]byte")
		}
		fb.Append(x)
	default:
		return fmt.Errorf("no builder support for %T", b)
	}
	return nil
}

func appendInt(v any, add func(int64)) error {
	switch x := v.(type) {
	case int:
		add(int64(x))
	case int8:
		add(int64(x))
	case int16:
		add(int64(x))
	case int32:
		add(int64(x))
	case int64:
		add(x)
	case uint8:
		add(int64(x))
	case uint16:
		add(int64(x))
	case uint32:
		add(int64(x))
	default:
		return mismatch(v, "integer")
	}
	return nil
}

func appendFloat(v any, add func(float64)) error {
	switch x := v.(type) {
	case float64:
		add(x)
	case float32:
		add(float64(x))
	case int:
		add(float64(x))
	default:
		return mismatch(v, "float")
	}
	return nil
}

func mismatch(v any, want string) error {
	return fmt.Errorf("value %v (%T) is not a %s", v, v, want)
}

// ErrSource is the error reported by a failing SliceReader.
var ErrSource = errors.New("testutil: source failed")

// SliceReader yields a fixed list of records without checking them against
// its schema, then ends with Err set to its failure, if any.
type SliceReader struct {
	schema *arrow.Schema
	recs   []arrow.Record
	fail   error
	pos    int
	cur    arrow.Record
	err    error
}

// NewSliceReader returns a reader that ends cleanly after recs.
func NewSliceReader(schema *arrow.Schema, recs []arrow.Record) *SliceReader {
	return &SliceReader{schema: schema, recs: recs}
}

// NewFailingReader returns a reader that reports ErrSource after recs.
func NewFailingReader(schema *arrow.Schema, recs []arrow.Record) *SliceReader {
	return &SliceReader{schema: schema, recs: recs, fail: ErrSource}
}

func (r *SliceReader) Retain() {}
func (r *SliceReader) Release() {}
func (r *SliceReader) Schema() *arrow.Schema { return r.schema }
func (r *SliceReader) Record() arrow.Record { return r.cur }
func (r *SliceReader) Err() error { return r.err }

func (r *SliceReader) Next() bool {
	if r.pos < len(r.recs) {
		r.cur = r.recs[r.pos]
		r.pos++
		return true
	}
	r.cur = nil
	r.err = r.fail
	return false
}

var _ array.RecordReader = (*SliceReader)(nil)
