package fingerprint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/idhash/internal/canonical"
	"github.com/roach88/idhash/internal/column"
	"github.com/roach88/idhash/internal/rowhash"
)

// Options controls a fingerprint computation.
type Options struct {
	// Config governs canonicalization. The zero value is invalid; start
	// from canonical.DefaultConfig.
	Config canonical.Config

	// Workers selects the strategy: <= 1 is sequential, otherwise the
	// parallel pool size.
	Workers int

	// QueueDepth bounds the batches buffered between the source and the
	// workers. Zero means twice Workers.
	QueueDepth int

	// Logger receives progress; nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns sequential options with the default config.
func DefaultOptions() Options {
	return Options{Config: canonical.DefaultConfig()}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) queueDepth() int {
	if o.QueueDepth > 0 {
		return o.QueueDepth
	}
	return 2 * o.Workers
}

// Result is the outcome of Compute.
type Result struct {
	Fingerprint rowhash.Hash  `json:"fingerprint" yaml:"fingerprint"`
	Rows        int64         `json:"rows" yaml:"rows"`
	Batches     int           `json:"batches" yaml:"batches"`
	Workers     int           `json:"workers" yaml:"workers"`
	Elapsed     time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Compute reads every batch from rdr and returns the dataset fingerprint.
//
// The schema is checked before any batch is read, so unsupported column
// types fail without touching the data. Zero batches yield rowhash.Zero.
func Compute(ctx context.Context, rdr array.RecordReader, opts Options) (Result, error) {
	if err := opts.Config.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid canonical config: %w", err)
	}
	schema := rdr.Schema()
	if err := column.CheckSchema(schema); err != nil {
		return Result{}, err
	}

	log := opts.logger()
	start := time.Now()

	var (
		res Result
		err error
	)
	if opts.Workers <= 1 {
		res, err = sequential(ctx, rdr, opts)
	} else {
		res, err = parallel(ctx, rdr, opts)
	}
	if err != nil {
		return Result{}, err
	}
	res.Elapsed = time.Since(start)

	log.Info("fingerprint computed",
		"fingerprint", res.Fingerprint.String(),
		"rows", res.Rows,
		"batches", res.Batches,
		"workers", res.Workers,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

// sequential folds batches in source order on the calling goroutine.
// opts and the schema must already be validated; see Compute.
func sequential(ctx context.Context, rdr array.RecordReader, opts Options) (Result, error) {
	schema := rdr.Schema()
	log := opts.logger()
	res := Result{Workers: 1}

	for rdr.Next() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		rec := rdr.Record()
		h, err := aggregate(schema, rec, opts.Config)
		if err != nil {
			return Result{}, fmt.Errorf("batch %d: %w", res.Batches, err)
		}
		log.Debug("batch aggregated", "batch", res.Batches, "rows", rec.NumRows())
		res.Fingerprint = res.Fingerprint.Add(h)
		res.Rows += rec.NumRows()
		res.Batches++
	}
	if err := rdr.Err(); err != nil {
		return Result{}, &SourceReadError{Batch: res.Batches, Err: err}
	}
	return res, nil
}

type batch struct {
	index int
	rec   arrow.Record
}

type partial struct {
	sum     rowhash.Hash
	rows    int64
	batches int
}

// parallel hands batches from rdr to opts.Workers goroutines through a
// bounded queue. Each batch is owned by exactly one worker, which releases
// it once aggregated. Worker partials are combined with CombineTree.
func parallel(ctx context.Context, rdr array.RecordReader, opts Options) (Result, error) {
	workers := max(opts.Workers, 1)
	schema := rdr.Schema()
	log := opts.logger()

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan batch, opts.queueDepth())
	partials := make([]partial, workers)
	var read int

	// Producer: the only goroutine touching rdr.
	g.Go(func() error {
		defer close(queue)
		for rdr.Next() {
			rec := rdr.Record()
			rec.Retain()
			select {
			case queue <- batch{index: read, rec: rec}:
				read++
			case <-gctx.Done():
				rec.Release()
				return gctx.Err()
			}
		}
		if err := rdr.Err(); err != nil {
			return &SourceReadError{Batch: read, Err: err}
		}
		return nil
	})

	for w := range workers {
		g.Go(func() error {
			p := &partials[w]
			for b := range queue {
				if err := gctx.Err(); err != nil {
					b.rec.Release()
					return err
				}
				h, err := aggregate(schema, b.rec, opts.Config)
				rows := b.rec.NumRows()
				b.rec.Release()
				if err != nil {
					return fmt.Errorf("batch %d: %w", b.index, err)
				}
				log.Debug("batch aggregated", "batch", b.index, "rows", rows, "worker", w)
				p.sum = p.sum.Add(h)
				p.rows += rows
				p.batches++
			}
			return nil
		})
	}

	err := g.Wait()
	// Workers stop early on error; release whatever is still queued.
	for b := range queue {
		b.rec.Release()
	}
	if err != nil {
		return Result{}, err
	}

	sums := make([]rowhash.Hash, workers)
	res := Result{Workers: workers}
	for i, p := range partials {
		sums[i] = p.sum
		res.Rows += p.rows
		res.Batches += p.batches
	}
	res.Fingerprint = CombineTree(sums)
	return res, nil
}

// CombineTree sums parts pairwise, level by level. The result equals a
// linear fold; the tree shape only limits dependency depth.
func CombineTree(parts []rowhash.Hash) rowhash.Hash {
	switch len(parts) {
	case 0:
		return rowhash.Zero
	case 1:
		return parts[0]
	}
	level := append([]rowhash.Hash(nil), parts...)
	for len(level) > 1 {
		next := level[:0]
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, level[i].Add(level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0]
}

// Reduce fingerprints an in-memory batch sequence sharing schema.
func Reduce(ctx context.Context, schema *arrow.Schema, recs []arrow.Record, opts Options) (rowhash.Hash, error) {
	rdr, err := array.NewRecordReader(schema, recs)
	if err != nil {
		return rowhash.Zero, &column.Error{
			Code:     column.ErrCodeTypeContract,
			Field:    "*",
			Index:    -1,
			Declared: schema.String(),
			Message:  err.Error(),
		}
	}
	defer rdr.Release()

	res, err := Compute(ctx, rdr, opts)
	if err != nil {
		return rowhash.Zero, err
	}
	return res.Fingerprint, nil
}
