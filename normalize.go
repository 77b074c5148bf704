package ggk

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// placeholderPrefix marks organization keys which were derived from a
// normalized name rather than taken from a tax ID.
const placeholderPrefix = "org-"

// corporate/legal suffixes stripped (as whole words) during name
// normalization.
var nameStopWords = map[string]struct{}{
	"inc":        {},
	"llc":        {},
	"corp":       {},
	"foundation": {},
	"fund":       {},
	"trust":      {},
	"the":        {},
	"a":          {},
	"an":         {},
}

// NormalizeName reduces an organization name to a matching key: lowercase,
// strip common corporate suffixes as whole words, then strip everything which
// isn't a letter or digit. "The Acme Foundation, Inc." and "ACME" normalize
// to the same key.
func NormalizeName(name string) string {
	lower := strings.ToLower(name)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == '.'
	})
	var b strings.Builder
	for _, w := range words {
		if _, ok := nameStopWords[w]; ok {
			continue
		}
		for _, r := range w {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// PlaceholderKey derives a deterministic organization key from a name for use
// when no tax ID is available. Repeat runs produce the same key for the same
// normalized name.
func PlaceholderKey(name string) string {
	h := fnv.New64a()
	h.Write([]byte(NormalizeName(name)))
	return fmt.Sprintf("%s%016x", placeholderPrefix, h.Sum64())
}

// IsPlaceholderKey reports whether key was minted by PlaceholderKey.
func IsPlaceholderKey(key string) bool {
	return strings.HasPrefix(key, placeholderPrefix)
}

// ValidEIN reports whether s looks like a well-formed tax ID (nine digits,
// optionally with the usual two-seven hyphen).
func ValidEIN(s string) bool {
	s = strings.Replace(s, "-", "", 1)
	if len(s) != 9 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CanonicalEIN strips the hyphen from a well-formed tax ID. It returns the
// input unchanged if it isn't well-formed.
func CanonicalEIN(s string) string {
	if !ValidEIN(s) {
		return s
	}
	return strings.Replace(s, "-", "", 1)
}
