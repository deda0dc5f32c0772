package canonical

// FormatVersion identifies the canonical encoding rules. Bump it whenever a
// literal, the rounding rule or the sentinel changes.
const FormatVersion = "1"

// Literal forms. These are versioned constants, not implementation details.
const (
	NullLiteral  = "null"
	TrueLiteral  = "1"
	FalseLiteral = "0"
)

// TimestampCharacters is the fixed character limit for timestamp values,
// independent of Config.Characters.
const TimestampCharacters = 12

// Sentinel terminates every canonical form.
var Sentinel = [...]byte{'\n', 0x00}
