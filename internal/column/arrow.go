package column

import (
	"fmt"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
)

// New wraps arr as the column variant matching field's declared type.
//
// Returns UNSUPPORTED_TYPE when the declared type has no canonical form and
// TYPE_CONTRACT_VIOLATION when arr is not the array the declaration implies.
func New(field arrow.Field, arr arrow.Array) (Column, error) {
	return newAt(-1, field, arr)
}

func newAt(index int, field arrow.Field, arr arrow.Array) (Column, error) {
	if arr == nil {
		return nil, &Error{
			Code:     ErrCodeTypeContract,
			Field:    field.Name,
			Index:    index,
			Declared: typeName(field.Type),
			Actual:   "nil",
			Message:  "missing array",
		}
	}

	if field.Type == nil {
		return nil, unsupported(index, field)
	}

	switch field.Type.ID() {
	case arrow.NULL:
		return as(index, field, arr, func(a *array.Null) Column { return Null{base{a}} })
	case arrow.BOOL:
		return as(index, field, arr, func(a *array.Boolean) Column { return Bool{base{a}, a} })
	case arrow.INT8:
		return as(index, field, arr, func(a *array.Int8) Column { return Signed[int8]{base{a}, a} })
	case arrow.INT16:
		return as(index, field, arr, func(a *array.Int16) Column { return Signed[int16]{base{a}, a} })
	case arrow.INT32:
		return as(index, field, arr, func(a *array.Int32) Column { return Signed[int32]{base{a}, a} })
	case arrow.INT64:
		return as(index, field, arr, func(a *array.Int64) Column { return Signed[int64]{base{a}, a} })
	case arrow.UINT8:
		return as(index, field, arr, func(a *array.Uint8) Column { return Unsigned[uint8]{base{a}, a} })
	case arrow.UINT16:
		return as(index, field, arr, func(a *array.Uint16) Column { return Unsigned[uint16]{base{a}, a} })
	case arrow.UINT32:
		return as(index, field, arr, func(a *array.Uint32) Column { return Unsigned[uint32]{base{a}, a} })
	case arrow.UINT64:
		return as(index, field, arr, func(a *array.Uint64) Column { return Unsigned[uint64]{base{a}, a} })
	case arrow.FLOAT16:
		return as(index, field, arr, func(a *array.Float16) Column { return Float16{base{a}, a} })
	case arrow.FLOAT32:
		return as(index, field, arr, func(a *array.Float32) Column { return Float[float32]{base{a}, a} })
	case arrow.FLOAT64:
		return as(index, field, arr, func(a *array.Float64) Column { return Float[float64]{base{a}, a} })
	case arrow.DATE32:
		return as(index, field, arr, func(a *array.Date32) Column { return Date[arrow.Date32]{base{a}, a} })
	case arrow.DATE64:
		return as(index, field, arr, func(a *array.Date64) Column { return Date[arrow.Date64]{base{a}, a} })
	case arrow.TIMESTAMP:
		return as(index, field, arr, func(a *array.Timestamp) Column { return Timestamp{base{a}, a} })
	case arrow.STRING:
		return as(index, field, arr, func(a *array.String) Column { return Text{base{a}, a} })
	case arrow.LARGE_STRING:
		return as(index, field, arr, func(a *array.LargeString) Column { return Text{base{a}, a} })
	default:
		return nil, unsupported(index, field)
	}
}

// as checks that arr carries the declared type and has the concrete array
// type A before wrapping it.
func as[A arrow.Array](index int, field arrow.Field, arr arrow.Array, wrap func(A) Column) (Column, error) {
	if !arrow.TypeEqual(field.Type, arr.DataType()) {
		return nil, contract(index, field, arr, "array type does not match declared type")
	}
	typed, ok := arr.(A)
	if !ok {
		return nil, contract(index, field, arr, fmt.Sprintf("unexpected array implementation %T", arr))
	}
	return wrap(typed), nil
}

// FromRecord wraps every column of rec, checking rec against the dataset
// schema. Field names are not compared; counts, types and lengths are.
func FromRecord(schema *arrow.Schema, rec arrow.Record) ([]Column, error) {
	fields := schema.Fields()
	if int(rec.NumCols()) != len(fields) {
		return nil, &Error{
			Code:     ErrCodeTypeContract,
			Field:    "*",
			Index:    -1,
			Declared: fmt.Sprintf("%d columns", len(fields)),
			Actual:   fmt.Sprintf("%d columns", rec.NumCols()),
			Message:  "batch width does not match schema",
		}
	}

	rows := int(rec.NumRows())
	cols := make([]Column, len(fields))
	for i, field := range fields {
		col, err := newAt(i, field, rec.Column(i))
		if err != nil {
			return nil, err
		}
		if col.Len() != rows {
			return nil, &Error{
				Code:     ErrCodeTypeContract,
				Field:    field.Name,
				Index:    i,
				Declared: fmt.Sprintf("%d rows", rows),
				Actual:   fmt.Sprintf("%d rows", col.Len()),
				Message:  "column length does not match batch",
			}
		}
		cols[i] = col
	}
	return cols, nil
}

// CheckSchema reports the first field whose type has no canonical form.
// Callers run it before reading any data so unsupported inputs fail fast.
func CheckSchema(schema *arrow.Schema) error {
	for i, field := range schema.Fields() {
		if !Supported(field.Type) {
			return unsupported(i, field)
		}
	}
	return nil
}

// Supported reports whether dt maps to a column kind.
func Supported(dt arrow.DataType) bool {
	_, ok := KindOf(dt)
	return ok
}

// KindOf returns the kind dt maps to.
func KindOf(dt arrow.DataType) (Kind, bool) {
	if dt == nil {
		return 0, false
	}
	switch dt.ID() {
	case arrow.NULL:
		return KindNull, true
	case arrow.BOOL:
		return KindBool, true
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return KindSigned, true
	case arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return KindUnsigned, true
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return KindFloat, true
	case arrow.DATE32, arrow.DATE64:
		return KindDate, true
	case arrow.TIMESTAMP:
		return KindTimestamp, true
	case arrow.STRING, arrow.LARGE_STRING:
		return KindText, true
	default:
		return 0, false
	}
}

func unsupported(index int, field arrow.Field) *Error {
	return &Error{
		Code:     ErrCodeUnsupportedType,
		Field:    field.Name,
		Index:    index,
		Declared: typeName(field.Type),
		Message:  "type has no canonical form",
	}
}

func contract(index int, field arrow.Field, arr arrow.Array, msg string) *Error {
	return &Error{
		Code:     ErrCodeTypeContract,
		Field:    field.Name,
		Index:    index,
		Declared: typeName(field.Type),
		Actual:   typeName(arr.DataType()),
		Message:  msg,
	}
}

func typeName(dt arrow.DataType) string {
	if dt == nil {
		return "<nil>"
	}
	return dt.String()
}
