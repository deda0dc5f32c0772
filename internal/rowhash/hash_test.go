package rowhash

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/spaolacci/murmur3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumEmptyIsZero(t *testing.T) {
	assert.True(t, Sum(nil).IsZero())
}

func TestSumKnownVectors(t *testing.T) {
	tests := []struct {
		input string
		want  Hash
	}{
		{"", Hash{}},
		{"hello", Hash{Hi: 0x5b1e906a48ae1d19, Lo: 0xcbd8a7b341bd9b02}},
		{"The quick brown fox jumps over the lazy dog", Hash{Hi: 0x7a433ca9c49a9347, Lo: 0xe34bbc7bbc071b6c}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Sum([]byte(tt.input)))
		})
	}

	assert.Equal(t, "121118445609844952839898260755277781762", Sum([]byte("hello")).String())
	assert.Equal(t, "5b1e906a48ae1d19cbd8a7b341bd9b02", Sum([]byte("hello")).Hex())
}

func TestSumWordOrder(t *testing.T) {
	data := []byte("1\n\x00a\n\x00")
	h1, h2 := murmur3.Sum128(data)
	got := Sum(data)
	assert.Equal(t, h1, got.Lo)
	assert.Equal(t, h2, got.Hi)
}

func TestHashRowConcatenates(t *testing.T) {
	a := []byte("1\n\x00")
	b := []byte("a\n\x00")
	assert.Equal(t, Sum([]byte("1\n\x00a\n\x00")), HashRow(a, b))
	assert.NotEqual(t, HashRow(a, b), HashRow(b, a), "column order is significant within a row")
}

func TestHashRowDeterministic(t *testing.T) {
	forms := [][]byte{[]byte("+2.0e+1\n\x00"), []byte("null\n\x00")}
	assert.Equal(t, HashRow(forms...), HashRow(forms...))
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Hash
		expected Hash
	}{
		{"identity", Hash{Hi: 3, Lo: 4}, Zero, Hash{Hi: 3, Lo: 4}},
		{"no carry", Hash{Lo: 1}, Hash{Lo: 2}, Hash{Lo: 3}},
		{"carry into high word", Hash{Lo: math.MaxUint64}, Hash{Lo: 1}, Hash{Hi: 1}},
		{"wraps at 2^128", Hash{Hi: math.MaxUint64, Lo: math.MaxUint64}, Hash{Lo: 1}, Zero},
		{"high words wrap", Hash{Hi: math.MaxUint64}, Hash{Hi: 2, Lo: 5}, Hash{Hi: 1, Lo: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Add(tt.b))
			assert.Equal(t, tt.expected, tt.b.Add(tt.a))
		})
	}
}

func TestAddAssociative(t *testing.T) {
	a := Sum([]byte("a"))
	b := Sum([]byte("b"))
	c := Sum([]byte("c"))
	assert.Equal(t, a.Add(b).Add(c), a.Add(b.Add(c)))
	assert.Equal(t, a.Add(b).Add(c), c.Add(a).Add(b))
}

func TestString(t *testing.T) {
	assert.Equal(t, "0", Zero.String())
	assert.Equal(t, "18446744073709551616", Hash{Hi: 1}.String())
	assert.Equal(t, "340282366920938463463374607431768211455",
		Hash{Hi: math.MaxUint64, Lo: math.MaxUint64}.String())
}

func TestHexAndBytes(t *testing.T) {
	h := Hash{Hi: 0x0102030405060708, Lo: 0x090a0b0c0d0e0f10}
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", h.Hex())
	assert.Equal(t, h, FromBytes(h.Bytes()))
}

func TestParse(t *testing.T) {
	h := Sum([]byte("row"))

	got, err := Parse(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, got)

	got, err = Parse("0x" + h.Hex())
	require.NoError(t, err)
	assert.Equal(t, h, got)

	got, err = Parse("0X1")
	require.NoError(t, err)
	assert.Equal(t, Hash{Lo: 1}, got)

	got, err = Parse("  42 ")
	require.NoError(t, err)
	assert.Equal(t, Hash{Lo: 42}, got)
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{"", "abc", "-1", "0x", "0xzz", "0x" + string(make([]byte, 33)), "340282366920938463463374607431768211456"} {
		_, err := Parse(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestJSONUsesDecimal(t *testing.T) {
	h := Hash{Hi: 1, Lo: 2}
	b, err := json.Marshal(struct {
		Fingerprint Hash `json:"fingerprint"`
	}{h})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fingerprint":"18446744073709551618"}`, string(b))

	var back struct {
		Fingerprint Hash `json:"fingerprint"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, h, back.Fingerprint)
}
