// Package column maps Arrow arrays onto a closed set of column kinds, each
// carrying its own canonicalization.
//
// Column is a sealed interface: only the variants in this package implement
// it, one per supported kind. New is the single place where an Arrow type ID
// is matched to a variant; anything it does not match is reported as
// UNSUPPORTED_TYPE rather than falling through to a default encoding.
//
// Columns wrap the Arrow array without copying. They are read-only and
// share the array's lifetime; callers keep the owning record retained while
// a Column is in use.
package column
