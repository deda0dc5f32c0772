package fingerprint

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/idhash/internal/canonical"
	"github.com/roach88/idhash/internal/column"
	"github.com/roach88/idhash/internal/rowhash"
	"github.com/roach88/idhash/internal/testutil"
)

func quietOptions(workers int) Options {
	return Options{
		Config:  canonical.DefaultConfig(),
		Workers: workers,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func mixedSchema() *arrow.Schema {
	return testutil.Schema(
		"id", arrow.PrimitiveTypes.Int64,
		"name", arrow.BinaryTypes.String,
		"score", arrow.PrimitiveTypes.Float64,
		"active", arrow.FixedWidthTypes.Boolean,
		"day", arrow.FixedWidthTypes.Date32,
	)
}

func mixedRows(n int) [][]any {
	names := []string{"alpha", "béta", "gamma", "", "δέλτα"}
	rows := make([][]any, n)
	for i := range rows {
		var name any = names[i%len(names)]
		if i%7 == 3 {
			name = nil
		}
		var score any = float64(i) * 1.25
		if i%5 == 4 {
			score = nil
		}
		rows[i] = []any{int64(i), name, score, i%2 == 0, 18000 + i}
	}
	return rows
}

func compute(t *testing.T, mem memory.Allocator, schema *arrow.Schema, rows [][]any, batchSize, workers int) Result {
	t.Helper()
	rdr := testutil.Reader(t, mem, schema, rows, batchSize)
	res, err := Compute(context.Background(), rdr, quietOptions(workers))
	require.NoError(t, err)
	return res
}

func TestComputeDeterministic(t *testing.T) {
	mem := memory.NewGoAllocator()
	rows := mixedRows(50)

	first := compute(t, mem, mixedSchema(), rows, 8, 1)
	second := compute(t, mem, mixedSchema(), rows, 8, 1)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.False(t, first.Fingerprint.IsZero())
	assert.Equal(t, int64(50), first.Rows)
	assert.Equal(t, 7, first.Batches)
}

func TestComputeOrderIndependent(t *testing.T) {
	mem := memory.NewGoAllocator()
	rows := mixedRows(64)
	want := compute(t, mem, mixedSchema(), rows, 10, 1).Fingerprint

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 5; trial++ {
		shuffled := append([][]any(nil), rows...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := compute(t, mem, mixedSchema(), shuffled, 10, 1).Fingerprint
		assert.Equal(t, want, got, "trial %d", trial)
	}
}

func TestComputeBatchSizeIndependent(t *testing.T) {
	mem := memory.NewGoAllocator()
	rows := mixedRows(37)
	want := compute(t, mem, mixedSchema(), rows, 37, 1).Fingerprint

	for _, size := range []int{1, 2, 3, 5, 16, 36, 100} {
		got := compute(t, mem, mixedSchema(), rows, size, 1).Fingerprint
		assert.Equal(t, want, got, "batch size %d", size)
	}
}

func TestComputeWorkerCountIndependent(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	rows := mixedRows(200)
	want := compute(t, mem, mixedSchema(), rows, 9, 1)

	for _, workers := range []int{0, 2, 3, 4, 8, 32} {
		got := compute(t, mem, mixedSchema(), rows, 9, workers)
		assert.Equal(t, want.Fingerprint, got.Fingerprint, "workers %d", workers)
		assert.Equal(t, want.Rows, got.Rows)
		assert.Equal(t, want.Batches, got.Batches)
	}
}

func TestParallelSmallQueue(t *testing.T) {
	mem := memory.NewGoAllocator()
	rows := mixedRows(40)
	want := compute(t, mem, mixedSchema(), rows, 3, 1).Fingerprint

	opts := quietOptions(4)
	opts.QueueDepth = 1
	rdr := testutil.Reader(t, mem, mixedSchema(), rows, 3)
	res, err := Compute(context.Background(), rdr, opts)
	require.NoError(t, err)
	assert.Equal(t, want, res.Fingerprint)
	assert.Equal(t, 4, res.Workers)
}

func TestComputeEmptyDataset(t *testing.T) {
	mem := memory.NewGoAllocator()
	for _, workers := range []int{1, 4} {
		res := compute(t, mem, mixedSchema(), nil, 10, workers)
		assert.Equal(t, rowhash.Zero, res.Fingerprint)
		assert.Equal(t, int64(0), res.Rows)
		assert.Equal(t, 0, res.Batches)
	}
}

func TestAggregateEmptyBatch(t *testing.T) {
	mem := memory.NewGoAllocator()
	rec := testutil.Record(t, mem, mixedSchema(), nil)
	h, err := Aggregate(mixedSchema(), rec, canonical.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, rowhash.Zero, h)
}

func TestEmptyBatchesDoNotChangeFingerprint(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := mixedSchema()
	rows := mixedRows(10)
	want := compute(t, mem, schema, rows, 4, 1).Fingerprint

	recs := []arrow.Record{
		testutil.Record(t, mem, schema, nil),
		testutil.Record(t, mem, schema, rows[:6]),
		testutil.Record(t, mem, schema, nil),
		testutil.Record(t, mem, schema, rows[6:]),
	}
	got, err := Reduce(context.Background(), schema, recs, quietOptions(2))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// Rows (1,"a") and (2,"b") hash the same as one batch or as two.
func TestScenarioA(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := testutil.Schema("n", arrow.PrimitiveTypes.Int64, "s", arrow.BinaryTypes.String)
	rows := [][]any{{1, "a"}, {2, "b"}}

	one := compute(t, mem, schema, rows, 2, 1)
	two := compute(t, mem, schema, rows, 1, 1)
	assert.Equal(t, 1, one.Batches)
	assert.Equal(t, 2, two.Batches)
	assert.Equal(t, one.Fingerprint, two.Fingerprint)

	expected := rowhash.HashRow([]byte("1\n\x00"), []byte("a\n\x00")).
		Add(rowhash.HashRow([]byte("2\n\x00"), []byte("b\n\x00")))
	assert.Equal(t, expected, one.Fingerprint)
}

func TestScenarioB(t *testing.T) {
	cfg := canonical.Config{Digits: 2, Characters: 128}
	first := canonical.EncodeFloat(20.0, cfg)
	second := canonical.EncodeFloat(20.0, cfg)
	assert.Equal(t, first, second)
	assert.Equal(t, "+2.0e+1\n\x00", first.String())
}

func TestDuplicateRowsCount(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := testutil.Schema("n", arrow.PrimitiveTypes.Int64)

	once := compute(t, mem, schema, [][]any{{1}}, 1, 1).Fingerprint
	twice := compute(t, mem, schema, [][]any{{1}, {1}}, 1, 1).Fingerprint
	assert.NotEqual(t, once, twice, "the fold is a multiset sum, not a set")
	assert.Equal(t, once.Add(once), twice)
}

func TestConfigChangesFingerprint(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := testutil.Schema("x", arrow.PrimitiveTypes.Float64)
	rows := [][]any{{1.23456}}

	run := func(digits int) rowhash.Hash {
		opts := quietOptions(1)
		opts.Config.Digits = digits
		res, err := Compute(context.Background(), testutil.Reader(t, mem, schema, rows, 1), opts)
		require.NoError(t, err)
		return res.Fingerprint
	}
	assert.NotEqual(t, run(2), run(7))
	assert.Equal(t, run(7), run(7))
}

func TestComputeRejectsUnsupportedSchemaBeforeReading(t *testing.T) {
	schema := testutil.Schema("id", arrow.PrimitiveTypes.Int64, "blob", arrow.BinaryTypes.Binary)
	rdr := testutil.NewFailingReader(schema, nil)

	_, err := Compute(context.Background(), rdr, quietOptions(1))
	require.Error(t, err)
	assert.True(t, column.IsUnsupportedType(err))
	assert.False(t, IsSourceReadError(err), "no batch should have been read")
	assert.NoError(t, rdr.Err())
}

func TestComputeTypeContractViolation(t *testing.T) {
	mem := memory.NewGoAllocator()
	declared := testutil.Schema("n", arrow.PrimitiveTypes.Int64)
	actual := testutil.Schema("n", arrow.PrimitiveTypes.Int32)
	recs := []arrow.Record{testutil.Record(t, mem, actual, [][]any{{1}})}

	for _, workers := range []int{1, 3} {
		rdr := testutil.NewSliceReader(declared, recs)
		_, err := Compute(context.Background(), rdr, quietOptions(workers))
		require.Error(t, err, "workers %d", workers)
		assert.True(t, column.IsTypeContractViolation(err), "workers %d: %v", workers, err)
	}
}

func TestComputeSourceReadError(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	schema := mixedSchema()
	recs := testutil.Records(t, mem, schema, mixedRows(20), 5)

	for _, workers := range []int{1, 4} {
		rdr := testutil.NewFailingReader(schema, recs)
		res, err := Compute(context.Background(), rdr, quietOptions(workers))
		require.Error(t, err)
		assert.True(t, IsSourceReadError(err))
		assert.ErrorIs(t, err, testutil.ErrSource)
		assert.Equal(t, Result{}, res, "no partial result")

		var se *SourceReadError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 4, se.Batch)
	}
}

func TestComputeInvalidConfig(t *testing.T) {
	mem := memory.NewGoAllocator()
	for _, workers := range []int{1, 4} {
		opts := quietOptions(workers)
		opts.Config.Digits = 0
		rdr := testutil.Reader(t, mem, mixedSchema(), mixedRows(10), 3)
		_, err := Compute(context.Background(), rdr, opts)
		assert.ErrorContains(t, err, "digits", "workers %d", workers)
	}
}

func TestInvalidConfigRejectedByEveryEntryPoint(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := mixedSchema()
	rows := mixedRows(5)

	tests := []struct {
		name   string
		mutate func(*canonical.Config)
		want   string
	}{
		{"digits zero", func(c *canonical.Config) { c.Digits = 0 }, "digits"},
		{"digits too high", func(c *canonical.Config) { c.Digits = canonical.MaxDigits + 1 }, "digits"},
		{"characters zero", func(c *canonical.Config) { c.Characters = 0 }, "characters"},
		{"normalization", func(c *canonical.Config) { c.Normalization = "nfd" }, "normalization"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := canonical.DefaultConfig()
			tt.mutate(&cfg)

			_, err := Aggregate(schema, testutil.Record(t, mem, schema, rows), cfg)
			assert.ErrorContains(t, err, tt.want)

			opts := quietOptions(2)
			opts.Config = cfg
			_, err = Reduce(context.Background(), schema, []arrow.Record{testutil.Record(t, mem, schema, rows)}, opts)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestComputeCancelled(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		rdr := testutil.Reader(t, mem, mixedSchema(), mixedRows(30), 2)
		_, err := Compute(ctx, rdr, quietOptions(workers))
		assert.ErrorIs(t, err, context.Canceled, "workers %d", workers)
	}
}

func TestCombineTree(t *testing.T) {
	assert.Equal(t, rowhash.Zero, CombineTree(nil))

	var parts []rowhash.Hash
	linear := rowhash.Zero
	for i := 0; i < 13; i++ {
		h := rowhash.Sum([]byte{byte(i)})
		parts = append(parts, h)
		linear = linear.Add(h)
	}
	assert.Equal(t, parts[0], CombineTree(parts[:1]))
	assert.Equal(t, linear, CombineTree(parts))

	// The input slice is left untouched.
	assert.Equal(t, rowhash.Sum([]byte{1}), parts[1])
}

func TestSequentialMatchesParallelDirectly(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := mixedSchema()
	rows := mixedRows(25)

	seq, err := sequential(context.Background(), testutil.Reader(t, mem, schema, rows, 4), quietOptions(1))
	require.NoError(t, err)
	par, err := parallel(context.Background(), testutil.Reader(t, mem, schema, rows, 4), quietOptions(5))
	require.NoError(t, err)
	assert.Equal(t, seq.Fingerprint, par.Fingerprint)
	assert.Equal(t, 5, par.Workers)
}

func TestReduceRejectsMismatchedRecords(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := testutil.Schema("n", arrow.PrimitiveTypes.Int64)
	other := testutil.Schema("n", arrow.BinaryTypes.String)
	recs := []arrow.Record{testutil.Record(t, mem, other, [][]any{{"x"}})}

	_, err := Reduce(context.Background(), schema, recs, quietOptions(1))
	assert.True(t, column.IsTypeContractViolation(err))
}
