// Package token defines the symbol-store row model shared by the
// tokenizer, the renderer and the learner, together with the
// per-handle instance pools that keep the hot path allocation free.
package token

// SymbolMax is the byte limit for a pattern or a value column.
const SymbolMax = 30

// Kind classifies a symbol-store row. The integer values are part of
// the .vst file ABI and must not be reordered.
type Kind int

const (
	Vowel Kind = iota + 1
	Consonant
	DeadConsonant
	ConsonantVowel
	Number
	Symbol
	Anusvara
	Visarga
	Virama
	Other
	NonJoiner
	Joiner
)

// MatchType ranks a row. Exact rows win over Possibility rows;
// MatchAll is a query-time selector, never stored.
type MatchType int

const (
	MatchExact MatchType = iota + 1
	MatchPossibility
	MatchAll
)

// Prefix-tree flag bits stamped at scheme build time. A set bit means
// some other symbol extends this one, so the tokenizer must keep
// looking ahead.
const (
	FlagMorePatternMatches uint8 = 1 << iota
	FlagMoreValueMatches
)

// Token is one symbol-store row. Tokens are immutable once persisted;
// identity is (pattern, value1, match type).
type Token struct {
	ID              int64
	Kind            Kind
	Match           MatchType
	Pattern         string
	Value1          string
	Value2          string
	Value3          string
	Tag             string
	Priority        int
	AcceptCondition int
	Flags           uint8
}

// Group holds every candidate token tied at the longest matched
// segment of the input. Ordering follows storage order.
type Group []*Token

// OtherID marks synthesised Other tokens, which never come from the
// store and therefore have no row id.
const OtherID = -99

// MakeOther synthesises the fallback token for an unmatched segment:
// pattern and value1 both carry the unmatched text so reassembly stays
// byte exact.
func MakeOther(lookup string) Token {
	return Token{
		ID:      OtherID,
		Kind:    Other,
		Match:   MatchExact,
		Pattern: lookup,
		Value1:  lookup,
	}
}
