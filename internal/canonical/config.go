package canonical

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Normalization selects the Unicode normalization applied to text values
// before truncation.
type Normalization string

const (
	NormalizationNone Normalization = "none"
	NormalizationNFC  Normalization = "nfc"
	NormalizationNFKC Normalization = "nfkc"
)

// Default and limit values for Config.
const (
	DefaultDigits     = 7
	DefaultCharacters = 128

	// MaxDigits is the largest significant-figure count a float64 can carry.
	MaxDigits = 17
)

// Config governs canonicalization. It is passed by value through every call
// and never mutated after construction.
type Config struct {
	// Digits is the number of significant figures kept for floats.
	Digits int

	// Characters is the maximum number of characters kept per value before
	// the sentinel is appended.
	Characters int

	// Normalization is applied to text values only. Empty means none.
	Normalization Normalization
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Digits:        DefaultDigits,
		Characters:    DefaultCharacters,
		Normalization: NormalizationNone,
	}
}

// Validate reports whether c can be used for encoding.
func (c Config) Validate() error {
	if c.Digits < 1 || c.Digits > MaxDigits {
		return fmt.Errorf("digits must be in [1, %d], got %d", MaxDigits, c.Digits)
	}
	if c.Characters < 1 {
		return fmt.Errorf("characters must be positive, got %d", c.Characters)
	}
	switch c.Normalization {
	case "", NormalizationNone, NormalizationNFC, NormalizationNFKC:
	default:
		return fmt.Errorf("unknown normalization %q", c.Normalization)
	}
	return nil
}

// Key identifies every setting that influences a fingerprint. Fingerprints
// are only comparable when their keys are equal.
func (c Config) Key() string {
	return fmt.Sprintf("v%s/d%d/c%d/%s", FormatVersion, c.Digits, c.Characters, c.normalization())
}

func (c Config) normalization() Normalization {
	if c.Normalization == "" {
		return NormalizationNone
	}
	return c.Normalization
}

func (c Config) normalize(s string) string {
	switch c.Normalization {
	case NormalizationNFC:
		return norm.NFC.String(s)
	case NormalizationNFKC:
		return norm.NFKC.String(s)
	default:
		return s
	}
}
