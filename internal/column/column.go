package column

import (
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"

	"github.com/roach88/idhash/internal/canonical"
)

// Kind identifies a supported logical column type.
type Kind int

const (
	KindNull Kind = iota + 1
	KindBool
	KindSigned
	KindUnsigned
	KindFloat
	KindDate
	KindTimestamp
	KindText
)

var kindNames = map[Kind]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindSigned:    "int",
	KindUnsigned:  "uint",
	KindFloat:     "float",
	KindDate:      "date",
	KindTimestamp: "timestamp",
	KindText:      "text",
}

// Kinds lists every supported kind in declaration order.
var Kinds = []Kind{KindNull, KindBool, KindSigned, KindUnsigned, KindFloat, KindDate, KindTimestamp, KindText}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a kind name as printed by Kind.String.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown column kind %q", s)
}

// Column is a sealed interface over the supported column kinds.
// Only the variants declared in this package implement it.
type Column interface {
	Kind() Kind
	Len() int
	IsNull(row int) bool

	// AppendCanonical appends the canonical form of the value at row,
	// sentinel included.
	AppendCanonical(dst []byte, row int, cfg canonical.Config) []byte

	sealed()
}

type signedInt interface {
	~int8 | ~int16 | ~int32 | ~int64
}

type unsignedInt interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

type floating interface {
	~float32 | ~float64
}

// valuer is the typed accessor shared by Arrow's primitive arrays.
type valuer[T any] interface {
	arrow.Array
	Value(int) T
}

type base struct {
	arr arrow.Array
}

func (b base) Len() int { return b.arr.Len() }
func (b base) IsNull(row int) bool { return b.arr.IsNull(row) }
func (base) sealed() {}

// Null is an all-null column.
type Null struct{ base }

func (Null) Kind() Kind { return KindNull }
func (Null) IsNull(int) bool { return true }
func (Null) AppendCanonical(dst []byte, _ int, cfg canonical.Config) []byte {
	return canonical.AppendNull(dst, cfg)
}

// Bool is a boolean column.
type Bool struct {
	base
	values *array.Boolean
}

func (Bool) Kind() Kind { return KindBool }

func (c Bool) AppendCanonical(dst []byte, row int, cfg canonical.Config) []byte {
	if c.values.IsNull(row) {
		return canonical.AppendNull(dst, cfg)
	}
	return canonical.AppendBool(dst, c.values.Value(row), cfg)
}

// Signed is a signed integer column of any width.
type Signed[T signedInt] struct {
	base
	values valuer[T]
}

func (Signed[T]) Kind() Kind { return KindSigned }

func (c Signed[T]) AppendCanonical(dst []byte, row int, cfg canonical.Config) []byte {
	if c.values.IsNull(row) {
		return canonical.AppendNull(dst, cfg)
	}
	return canonical.AppendInt(dst, int64(c.values.Value(row)), cfg.Characters)
}

// Unsigned is an unsigned integer column of any width.
type Unsigned[T unsignedInt] struct {
	base
	values valuer[T]
}

func (Unsigned[T]) Kind() Kind { return KindUnsigned }

func (c Unsigned[T]) AppendCanonical(dst []byte, row int, cfg canonical.Config) []byte {
	if c.values.IsNull(row) {
		return canonical.AppendNull(dst, cfg)
	}
	return canonical.AppendUint(dst, uint64(c.values.Value(row)), cfg.Characters)
}

// Float is a 32 or 64-bit floating point column. Values are widened to
// float64 before rounding.
type Float[T floating] struct {
	base
	values valuer[T]
}

func (Float[T]) Kind() Kind { return KindFloat }

func (c Float[T]) AppendCanonical(dst []byte, row int, cfg canonical.Config) []byte {
	if c.values.IsNull(row) {
		return canonical.AppendNull(dst, cfg)
	}
	return canonical.AppendFloat(dst, float64(c.values.Value(row)), cfg)
}

// Float16 is a half-precision column.
type Float16 struct {
	base
	values *array.Float16
}

func (Float16) Kind() Kind { return KindFloat }

func (c Float16) AppendCanonical(dst []byte, row int, cfg canonical.Config) []byte {
	if c.values.IsNull(row) {
		return canonical.AppendNull(dst, cfg)
	}
	return canonical.AppendFloat(dst, float64(c.values.Value(row).Float32()), cfg)
}

// Date is a Date32 (days) or Date64 (milliseconds) column, encoded as its
// tick count since the epoch.
type Date[T ~int32 | ~int64] struct {
	base
	values valuer[T]
}

func (Date[T]) Kind() Kind { return KindDate }

func (c Date[T]) AppendCanonical(dst []byte, row int, cfg canonical.Config) []byte {
	if c.values.IsNull(row) {
		return canonical.AppendNull(dst, cfg)
	}
	return canonical.AppendInt(dst, int64(c.values.Value(row)), cfg.Characters)
}

// Timestamp is a timestamp column of any unit, encoded as its raw tick count
// with the fixed timestamp limit.
type Timestamp struct {
	base
	values *array.Timestamp
}

func (Timestamp) Kind() Kind { return KindTimestamp }

func (c Timestamp) AppendCanonical(dst []byte, row int, cfg canonical.Config) []byte {
	if c.values.IsNull(row) {
		return canonical.AppendNull(dst, cfg)
	}
	return canonical.AppendTimestamp(dst, int64(c.values.Value(row)))
}

// Text is a UTF-8 column (String or LargeString).
type Text struct {
	base
	values valuer[string]
}

func (Text) Kind() Kind { return KindText }

func (c Text) AppendCanonical(dst []byte, row int, cfg canonical.Config) []byte {
	if c.values.IsNull(row) {
		return canonical.AppendNull(dst, cfg)
	}
	return canonical.AppendText(dst, c.values.Value(row), cfg)
}
