package entity

import (
	"sort"
	"strings"
)

// DefaultHonorifics is the prefix list stripped from entity names before
// comparison. Matching is case-insensitive and repeats until no prefix
// applies, so compound titles like "Hon. Mr. Justice" fall away fully.
var DefaultHonorifics = []string{
	"hon'ble",
	"hon.",
	"honorable",
	"justice",
	"judge",
	"mr.",
	"mrs.",
	"ms.",
	"dr.",
	"prof.",
	"shri",
	"smt.",
	"sri",
	"adv.",
	"advocate",
	"mr",
	"mrs",
	"ms",
	"dr",
	"smt",
}

// Normalizer canonicalizes raw entity strings for comparison. The zero
// value is not usable; construct with NewNormalizer.
type Normalizer struct {
	// prefixes sorted longest first so "hon'ble" wins over "hon.".
	prefixes []string
}

// NewNormalizer builds a normalizer from a honorific prefix list. An
// empty list falls back to DefaultHonorifics.
func NewNormalizer(honorifics []string) *Normalizer {
	if len(honorifics) == 0 {
		honorifics = DefaultHonorifics
	}
	prefixes := make([]string, len(honorifics))
	for i, h := range honorifics {
		prefixes[i] = strings.ToLower(strings.TrimSpace(h))
	}
	sort.Slice(prefixes, func(i, j int) bool {
		return len(prefixes[i]) > len(prefixes[j])
	})
	return &Normalizer{prefixes: prefixes}
}

// Normalize strips honorific prefixes, collapses internal whitespace,
// trims, and lower-cases. It never fails; whitespace-only input yields
// an empty string and callers discard empties.
func (n *Normalizer) Normalize(raw string) string {
	s := strings.ToLower(strings.Join(strings.Fields(raw), " "))

	for {
		stripped := false
		for _, prefix := range n.prefixes {
			if !strings.HasPrefix(s, prefix) {
				continue
			}
			rest := s[len(prefix):]
			// A prefix only counts when it ends the token.
			if rest != "" && rest[0] != ' ' {
				continue
			}
			s = strings.TrimLeft(rest, " ")
			stripped = true
			break
		}
		if !stripped {
			break
		}
	}

	return s
}

// DisplayName trims and collapses whitespace but keeps the original
// casing and honorifics for presentation.
func DisplayName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
