package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"go.uber.org/multierr"
)

// Format names a supported file layout.
type Format string

const (
	FormatAuto      Format = ""
	FormatCSV       Format = "csv"
	FormatTSV       Format = "tsv"
	FormatIPCFile   Format = "arrow"
	FormatIPCStream Format = "arrows"
)

// Defaults for Options.
const (
	DefaultInferenceRows = 100
	DefaultBatchSize     = 1024
)

// Options controls how files are opened.
type Options struct {
	// Format overrides detection by extension.
	Format Format

	// InferenceRows is the number of CSV data rows sampled to infer column
	// types. Zero means DefaultInferenceRows.
	InferenceRows int

	// BatchSize is the number of CSV rows per record. Zero means
	// DefaultBatchSize. IPC inputs keep their stored batching.
	BatchSize int

	// Allocator backs the records; nil means memory.DefaultAllocator.
	Allocator memory.Allocator
}

func (o Options) inferenceRows() int {
	if o.InferenceRows > 0 {
		return o.InferenceRows
	}
	return DefaultInferenceRows
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSize
}

func (o Options) allocator() memory.Allocator {
	if o.Allocator != nil {
		return o.Allocator
	}
	return memory.DefaultAllocator
}

// Reader is a record reader bound to an open file. Close releases both.
type Reader struct {
	array.RecordReader

	// Path is the file the reader was opened from.
	Path string

	// Format is the layout the file was read as.
	Format Format

	closers []io.Closer
}

// Close releases the record reader, then closes its closers in order,
// the file last.
func (r *Reader) Close() error {
	r.RecordReader.Release()
	var err error
	for _, c := range r.closers {
		err = multierr.Append(err, c.Close())
	}
	r.closers = nil
	return err
}

// DetectFormat maps a file extension to a format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".arrow", ".feather", ".ipc":
		return FormatIPCFile, nil
	case ".arrows":
		return FormatIPCStream, nil
	default:
		return FormatAuto, fmt.Errorf("cannot detect format of %q: unknown extension", path)
	}
}

// ParseFormat validates a format name given on the command line.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatCSV, FormatTSV, FormatIPCFile, FormatIPCStream:
		return f, nil
	case "ipc", "feather":
		return FormatIPCFile, nil
	default:
		return FormatAuto, fmt.Errorf("unknown input format %q", s)
	}
}

// Open opens path for reading with the format detected from its extension
// unless opts.Format is set.
func Open(path string, opts Options) (*Reader, error) {
	format := opts.Format
	if format == FormatAuto {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	var rdr *Reader
	switch format {
	case FormatCSV:
		rdr, err = OpenCSV(f, ',', opts)
	case FormatTSV:
		rdr, err = OpenCSV(f, '\t', opts)
	case FormatIPCFile:
		rdr, err = OpenIPCFile(f, opts)
	case FormatIPCStream:
		rdr, err = OpenIPCStream(f, opts)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("open %s: %w", path, err), f.Close())
	}

	rdr.Path = path
	rdr.Format = format
	rdr.closers = append(rdr.closers, f)
	return rdr, nil
}
