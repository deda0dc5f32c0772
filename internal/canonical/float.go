package canonical

import (
	"math"
	"strconv"
	"strings"
)

// SigFig rounds v to digits significant figures.
//
// For v != 0 the rounding scale is s = 10^(digits - floor(log10|v|) - 1) and
// the result is round(v*s)/s, rounding half away from zero. Zero (of either
// sign) returns +0. When the scale or the scaled value is not finite, which
// happens only for subnormal inputs, v is returned unchanged and the
// formatter's own rounding applies.
func SigFig(v float64, digits int) float64 {
	if v == 0 {
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}

	e := int(math.Floor(math.Log10(math.Abs(v))))
	s := math.Pow10(digits - e - 1)
	scaled := v * s
	if math.IsInf(s, 0) || s == 0 || math.IsInf(scaled, 0) {
		return v
	}
	return math.Round(scaled) / s
}

// FormatFloat renders v in normalized scientific notation after rounding it to
// digits significant figures: a sign, one integer digit, a decimal point,
// digits-1 fractional digits, "e", a signed exponent without leading zeros.
//
//	FormatFloat(20, 2)      == "+2.0e+1"
//	FormatFloat(-0.0012, 2) == "-1.2e-3"
//	FormatFloat(2.5, 1)     == "+3.e+0"
//
// NaN and the infinities render as "NaN", "+Inf" and "-Inf".
func FormatFloat(v float64, digits int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}

	s := strconv.FormatFloat(SigFig(v, digits), 'e', digits-1, 64)
	mantissa, exponent, _ := strings.Cut(s, "e")

	var b strings.Builder
	b.Grow(len(s) + 2)
	if !strings.HasPrefix(mantissa, "-") {
		b.WriteByte('+')
	}
	b.WriteString(mantissa)
	if digits == 1 {
		b.WriteByte('.')
	}
	b.WriteByte('e')
	b.WriteByte(exponent[0])
	magnitude := strings.TrimLeft(exponent[1:], "0")
	if magnitude == "" {
		magnitude = "0"
	}
	b.WriteString(magnitude)
	return b.String()
}
