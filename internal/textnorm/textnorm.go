// Package textnorm folds human-typed spreadsheet text into comparable forms.
//
// Three foldings are offered, each for a different consumer:
//
//   - Fold:    upper-case, accent-free, punctuation-free token text used by the
//     layout scanner to recognize labels such as "NOME CIENTÍFICO".
//   - Slug:    lower-case, accent-free, underscore-joined identifiers used as
//     natural keys for indicators (e.g. "crimes_contra_a_fauna").
//   - NameKey: lower-case, whitespace-collapsed names used to match species
//     against the dimension table (mirrors SQL LOWER(TRIM(x))).
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const nbsp = "\u00a0"

// StripAccents removes combining marks after canonical decomposition, so that
// "RÉPTEIS" becomes "REPTEIS" and "Hídricos" becomes "Hidricos".
func StripAccents(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Clean trims s, turns no-break spaces into plain spaces and collapses runs of
// whitespace into a single space. Case and accents are preserved.
func Clean(s string) string {
	s = strings.ReplaceAll(s, nbsp, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Fold returns the upper-case, accent-free form of s where every rune that is
// not a letter or digit is treated as a separator. Separators are collapsed to
// one space and trimmed.
func Fold(s string) string {
	s = strings.ToUpper(StripAccents(s))
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// Slug derives a deterministic identifier from a human label: lower-cased and
// accent-stripped, punctuation dropped, every run of whitespace or
// underscores turned into a single underscore, ends trimmed. "P.A.A.I."
// becomes "paai" and "Crimes contra a Fauna" becomes "crimes_contra_a_fauna".
//
// Slug is idempotent: Slug(Slug(x)) == Slug(x). It returns "" when the label
// has no letters or digits.
func Slug(label string) string {
	s := strings.ToLower(StripAccents(label))
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		case r == '_' || unicode.IsSpace(r):
			pending = true
		}
	}
	return b.String()
}

// NameKey is the comparison form for species names: trimmed, whitespace
// collapsed and lower-cased. Accents are kept, matching LOWER(TRIM(x)).
func NameKey(s string) string {
	return strings.ToLower(Clean(s))
}

// HasPrefixToken reports whether any space-separated token of the folded text
// starts with prefix. Both arguments are expected in Fold form.
func HasPrefixToken(folded, prefix string) bool {
	for _, tok := range strings.Fields(folded) {
		if strings.HasPrefix(tok, prefix) {
			return true
		}
	}
	return false
}
