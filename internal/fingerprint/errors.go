package fingerprint

import (
	"errors"
	"fmt"
)

// SourceReadError is returned when the record reader fails to produce a
// batch. No rows are skipped; the computation stops.
type SourceReadError struct {
	// Batch is the number of batches successfully read before the failure.
	Batch int

	Err error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("SOURCE_READ_ERROR: after %d batches: %v", e.Batch, e.Err)
}

func (e *SourceReadError) Unwrap() error {
	return e.Err
}

// IsSourceReadError returns true if err is or wraps a SourceReadError.
func IsSourceReadError(err error) bool {
	var se *SourceReadError
	return errors.As(err, &se)
}
