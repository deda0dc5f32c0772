package canonical

import (
	"strconv"
	"unicode/utf8"
)

// Form is the canonical encoding of one value, sentinel included.
type Form []byte

// String returns the form as a string, sentinel included.
func (f Form) String() string {
	return string(f)
}

// AppendForm appends at most limit characters of s followed by the sentinel.
//
// A character is one UTF-8 code point; retained characters keep their
// original bytes. Each byte of an invalid sequence counts as one character.
func AppendForm(dst []byte, s string, limit int) []byte {
	dst = append(dst, prefix(s, limit)...)
	return append(dst, Sentinel[:]...)
}

// prefix returns the longest prefix of s holding at most n characters.
func prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	// n bytes can never hold more than n characters.
	if len(s) <= n {
		return s
	}
	i := 0
	for count := 0; count < n && i < len(s); count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}

// AppendNull appends the null form. It does not depend on the column type.
func AppendNull(dst []byte, cfg Config) []byte {
	return AppendForm(dst, NullLiteral, cfg.Characters)
}

// AppendBool appends the boolean literal for v.
func AppendBool(dst []byte, v bool, cfg Config) []byte {
	if v {
		return AppendForm(dst, TrueLiteral, cfg.Characters)
	}
	return AppendForm(dst, FalseLiteral, cfg.Characters)
}

// AppendInt appends the decimal form of v truncated to limit characters.
func AppendInt(dst []byte, v int64, limit int) []byte {
	start := len(dst)
	dst = strconv.AppendInt(dst, v, 10)
	return appendSentinelASCII(dst, start, limit)
}

// AppendUint appends the decimal form of v truncated to limit characters.
func AppendUint(dst []byte, v uint64, limit int) []byte {
	start := len(dst)
	dst = strconv.AppendUint(dst, v, 10)
	return appendSentinelASCII(dst, start, limit)
}

func appendSentinelASCII(dst []byte, start, limit int) []byte {
	if limit < 0 {
		limit = 0
	}
	if len(dst)-start > limit {
		dst = dst[:start+limit]
	}
	return append(dst, Sentinel[:]...)
}

// AppendFloat appends the rounded scientific form of v.
func AppendFloat(dst []byte, v float64, cfg Config) []byte {
	return AppendForm(dst, FormatFloat(v, cfg.Digits), cfg.Characters)
}

// AppendText appends s, normalized per cfg, unescaped.
func AppendText(dst []byte, s string, cfg Config) []byte {
	return AppendForm(dst, cfg.normalize(s), cfg.Characters)
}

// AppendTimestamp appends the raw tick count of a timestamp using the fixed
// TimestampCharacters limit.
func AppendTimestamp(dst []byte, ticks int64) []byte {
	return AppendInt(dst, ticks, TimestampCharacters)
}

// EncodeNull returns the canonical form of a null value.
func EncodeNull(cfg Config) Form {
	return AppendNull(nil, cfg)
}

// EncodeBool returns the canonical form of a boolean.
func EncodeBool(v bool, cfg Config) Form {
	return AppendBool(nil, v, cfg)
}

// EncodeInt returns the canonical form of a signed integer or date.
func EncodeInt(v int64, cfg Config) Form {
	return AppendInt(nil, v, cfg.Characters)
}

// EncodeUint returns the canonical form of an unsigned integer.
func EncodeUint(v uint64, cfg Config) Form {
	return AppendUint(nil, v, cfg.Characters)
}

// EncodeFloat returns the canonical form of a float.
func EncodeFloat(v float64, cfg Config) Form {
	return AppendFloat(nil, v, cfg)
}

// EncodeText returns the canonical form of a string.
func EncodeText(s string, cfg Config) Form {
	return AppendText(nil, s, cfg)
}

// EncodeTimestamp returns the canonical form of a timestamp tick count.
func EncodeTimestamp(ticks int64) Form {
	return AppendTimestamp(nil, ticks)
}
