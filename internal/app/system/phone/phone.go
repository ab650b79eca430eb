// Package phone normalizes phone numbers so that the same subscriber written
// in different ways compares equal.
//
// A number is normalized by dropping every non-digit, replacing a leading
// trunk prefix with the country code, and prepending "+":
//
//	"020 123 4567"   -> "+232201234567"
//	"+232201234567"  -> "+232201234567"
package phone

import (
	"strings"
)

// Normalizer holds the dialing rules for one country.
type Normalizer struct {
	TrunkPrefix string // e.g. "0"
	CountryCode string // e.g. "232", digits only
}

// Default is the normalizer used when none is configured.
var Default = Normalizer{TrunkPrefix: "0", CountryCode: "232"}

// Normalize returns the canonical form of s, or "" if s has no digits.
func (n Normalizer) Normalize(s string) string {
	digits := Digits(s)
	if digits == "" {
		return ""
	}
	if n.TrunkPrefix != "" && strings.HasPrefix(digits, n.TrunkPrefix) {
		digits = n.CountryCode + strings.TrimPrefix(digits, n.TrunkPrefix)
	}
	return "+" + digits
}

// Equal reports whether a and b normalize to the same non-empty number.
func (n Normalizer) Equal(a, b string) bool {
	na := n.Normalize(a)
	if na == "" {
		return false
	}
	return na == n.Normalize(b)
}

// MatchesAny reports whether phone equals any of candidates.
func (n Normalizer) MatchesAny(phone string, candidates ...string) bool {
	np := n.Normalize(phone)
	if np == "" {
		return false
	}
	for _, c := range candidates {
		if n.Normalize(c) == np {
			return true
		}
	}
	return false
}

// Normalize uses Default.
func Normalize(s string) string { return Default.Normalize(s) }

// Equal uses Default.
func Equal(a, b string) bool { return Default.Equal(a, b) }

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// DisplayName is the legacy author label stored on posts.
func DisplayName(normalized string) string {
	return "User " + normalized
}

// PlaceholderEmail is the login email given to accounts created without one.
func PlaceholderEmail(normalized string) string {
	return Digits(normalized) + "@phone.user"
}

// Variants returns the spellings under which s may have been stored:
// the normalized form, its bare digits, the local trunk form, and the
// legacy display label for each. It returns nil when s has no digits.
func (n Normalizer) Variants(s string) []string {
	norm := n.Normalize(s)
	if norm == "" {
		return nil
	}
	digits := strings.TrimPrefix(norm, "+")
	forms := []string{norm, digits}
	if n.TrunkPrefix != "" && n.CountryCode != "" && strings.HasPrefix(digits, n.CountryCode) {
		forms = append(forms, n.TrunkPrefix+strings.TrimPrefix(digits, n.CountryCode))
	}
	out := make([]string, 0, len(forms)*2)
	out = append(out, forms...)
	for _, f := range forms {
		out = append(out, DisplayName(f))
	}
	return out
}
