// Package rowhash hashes canonical rows to 128-bit values and folds them.
//
// Hash addition wraps modulo 2^128. It is commutative and associative with
// Zero as identity, so rows, batches and worker partials can be summed in any
// grouping and any order with the same result.
package rowhash

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/bits"
	"strings"

	"github.com/spaolacci/murmur3"
	"lukechampine.com/uint128"
)

// Hash is an unsigned 128-bit value.
type Hash struct {
	Hi uint64
	Lo uint64
}

// Zero is the identity of Add.
var Zero Hash

// Sum hashes b with seedless Murmur3 x64-128.
//
// The digest's first word is the low half, matching a little-endian read of
// the 16 output bytes.
func Sum(b []byte) Hash {
	h1, h2 := murmur3.Sum128(b)
	return Hash{Hi: h2, Lo: h1}
}

// HashRow hashes the concatenation of forms. Each form carries its own
// sentinel, so no delimiter is inserted.
func HashRow(forms ...[]byte) Hash {
	n := 0
	for _, f := range forms {
		n += len(f)
	}
	buf := make([]byte, 0, n)
	for _, f := range forms {
		buf = append(buf, f...)
	}
	return Sum(buf)
}

// Add returns h + o modulo 2^128.
func (h Hash) Add(o Hash) Hash {
	lo, carry := bits.Add64(h.Lo, o.Lo, 0)
	hi, _ := bits.Add64(h.Hi, o.Hi, carry)
	return Hash{Hi: hi, Lo: lo}
}

// IsZero reports whether h is the identity.
func (h Hash) IsZero() bool {
	return h == Zero
}

// String returns h in decimal.
func (h Hash) String() string {
	return uint128.New(h.Lo, h.Hi).String()
}

// Hex returns h as 32 lowercase hex digits, most significant first.
func (h Hash) Hex() string {
	b := h.Bytes()
	return hex.EncodeToString(b[:])
}

// Bytes returns h big-endian.
func (h Hash) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], h.Hi)
	binary.BigEndian.PutUint64(b[8:], h.Lo)
	return b
}

// FromBytes is the inverse of Bytes.
func FromBytes(b [16]byte) Hash {
	return Hash{
		Hi: binary.BigEndian.Uint64(b[:8]),
		Lo: binary.BigEndian.Uint64(b[8:]),
	}
}

// Parse reads a decimal hash, or a 0x-prefixed hex one.
func Parse(s string) (Hash, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		if rest == "" || len(rest) > 32 {
			return Zero, fmt.Errorf("parse hash %q: hex must have 1 to 32 digits", s)
		}
		raw, err := hex.DecodeString(strings.Repeat("0", 32-len(rest)) + rest)
		if err != nil {
			return Zero, fmt.Errorf("parse hash %q: %w", s, err)
		}
		return FromBytes([16]byte(raw)), nil
	}

	u, err := uint128.FromString(s)
	if err != nil {
		return Zero, fmt.Errorf("parse hash %q: %w", s, err)
	}
	return Hash{Hi: u.Hi, Lo: u.Lo}, nil
}

// MarshalText implements encoding.TextMarshaler using the decimal form.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
