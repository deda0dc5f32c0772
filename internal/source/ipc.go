package source

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/ipc"
)

// OpenIPCStream reads an Arrow IPC stream.
func OpenIPCStream(r io.Reader, opts Options) (*Reader, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(opts.allocator()))
	if err != nil {
		return nil, fmt.Errorf("read ipc stream: %w", err)
	}
	return &Reader{RecordReader: rdr}, nil
}

// OpenIPCFile reads an Arrow IPC file (Feather v2).
func OpenIPCFile(r ipc.ReadAtSeeker, opts Options) (*Reader, error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(opts.allocator()))
	if err != nil {
		return nil, fmt.Errorf("read ipc file: %w", err)
	}
	fileRdr := &fileReader{fr: fr, refs: 1}
	return &Reader{RecordReader: fileRdr, closers: []io.Closer{fr}}, nil
}

// fileReader walks the record batches of an IPC file in order. The current
// record is owned by the file reader and valid until the next call to Next.
type fileReader struct {
	fr   *ipc.FileReader
	refs int64
	next int
	cur  arrow.Record
	err  error
}

func (r *fileReader) Retain() { r.refs++ }

func (r *fileReader) Release() {
	r.refs--
	if r.refs == 0 {
		r.cur = nil
	}
}

func (r *fileReader) Schema() *arrow.Schema { return r.fr.Schema() }

func (r *fileReader) Next() bool {
	if r.err != nil || r.next >= r.fr.NumRecords() {
		r.cur = nil
		return false
	}
	rec, err := r.fr.Record(r.next)
	if err != nil {
		r.err = fmt.Errorf("record batch %d: %w", r.next, err)
		r.cur = nil
		return false
	}
	r.next++
	r.cur = rec
	return true
}

func (r *fileReader) Record() arrow.Record { return r.cur }

func (r *fileReader) Err() error { return r.err }

var _ array.RecordReader = (*fileReader)(nil)
