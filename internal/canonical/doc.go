// Package canonical defines the canonical byte encoding of single values.
//
// Every value that takes part in a fingerprint is first rendered to a string
// by type-specific rules, truncated to a character limit, and terminated with
// the two-byte sentinel "\n\x00". The resulting Form is what the row hasher
// consumes.
//
// This package imports nothing internal. Type dispatch over column kinds lives
// in internal/column; this package only knows how to encode Go scalars.
//
// Key design constraints:
//   - The literal set (null, booleans) and the float rounding rule are part of
//     FormatVersion. Changing any of them changes every fingerprint.
//   - Encoding is a pure function of (value, Config).
//   - Truncation counts Unicode code points and never splits one.
package canonical
