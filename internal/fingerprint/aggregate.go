package fingerprint

import (
	"fmt"

	"github.com/apache/arrow/go/v13/arrow"

	"github.com/roach88/idhash/internal/canonical"
	"github.com/roach88/idhash/internal/column"
	"github.com/roach88/idhash/internal/rowhash"
)

// Aggregate folds every row of rec into one accumulator. rec must match
// schema; see column.FromRecord. An empty batch yields rowhash.Zero.
func Aggregate(schema *arrow.Schema, rec arrow.Record, cfg canonical.Config) (rowhash.Hash, error) {
	if err := cfg.Validate(); err != nil {
		return rowhash.Zero, fmt.Errorf("invalid canonical config: %w", err)
	}
	return aggregate(schema, rec, cfg)
}

// aggregate is Aggregate without the config check.
func aggregate(schema *arrow.Schema, rec arrow.Record, cfg canonical.Config) (rowhash.Hash, error) {
	cols, err := column.FromRecord(schema, rec)
	if err != nil {
		return rowhash.Zero, err
	}
	return aggregateColumns(cols, int(rec.NumRows()), cfg), nil
}

// aggregateColumns folds rows [0, rows) of cols, which must all hold at
// least rows values.
func aggregateColumns(cols []column.Column, rows int, cfg canonical.Config) rowhash.Hash {
	acc := rowhash.Zero
	cur := newRowCursor(cols, rows, cfg)
	for cur.Next() {
		acc = acc.Add(cur.Hash())
	}
	return acc
}

// rowCursor walks a batch one row at a time, encoding each row into a
// reused buffer so only one row is materialized at once.
type rowCursor struct {
	cols []column.Column
	cfg  canonical.Config
	rows int
	row  int
	buf  []byte
}

func newRowCursor(cols []column.Column, rows int, cfg canonical.Config) *rowCursor {
	return &rowCursor{cols: cols, cfg: cfg, rows: rows, row: -1}
}

// Next advances to the next row and encodes it.
func (c *rowCursor) Next() bool {
	if c.row+1 >= c.rows {
		return false
	}
	c.row++
	c.buf = c.buf[:0]
	for _, col := range c.cols {
		c.buf = col.AppendCanonical(c.buf, c.row, c.cfg)
	}
	return true
}

// Bytes returns the concatenated canonical forms of the current row. The
// slice is overwritten by the next call to Next.
func (c *rowCursor) Bytes() []byte {
	return c.buf
}

// Hash returns the row hash of the current row.
func (c *rowCursor) Hash() rowhash.Hash {
	return rowhash.Sum(c.buf)
}
