package column

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes column errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedType indicates a declared type with no canonical form.
	ErrCodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"

	// ErrCodeTypeContract indicates the runtime array does not match the
	// declared schema type. This is a breach between the source and the
	// fingerprinting core, not a user input error.
	ErrCodeTypeContract ErrorCode = "TYPE_CONTRACT_VIOLATION"
)

// Error is returned when a column cannot be canonicalized. Both codes are
// fatal for the whole computation.
type Error struct {
	Code ErrorCode

	// Field is the column name from the schema.
	Field string

	// Index is the column position, or -1 when not known.
	Index int

	// Declared is the schema type; Actual is what the source produced.
	Declared string
	Actual   string

	Message string
}

func (e *Error) Error() string {
	field := e.Field
	if e.Index >= 0 {
		field = fmt.Sprintf("%s (#%d)", e.Field, e.Index)
	}
	if e.Actual != "" {
		return fmt.Sprintf("%s: column %s: %s (declared %s, got %s)", e.Code, field, e.Message, e.Declared, e.Actual)
	}
	return fmt.Sprintf("%s: column %s: %s (%s)", e.Code, field, e.Message, e.Declared)
}

// IsUnsupportedType returns true if err carries ErrCodeUnsupportedType.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedType(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeUnsupportedType
	}
	return false
}

// IsTypeContractViolation returns true if err carries ErrCodeTypeContract.
// Uses errors.As to handle wrapped errors.
func IsTypeContractViolation(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeTypeContract
	}
	return false
}
