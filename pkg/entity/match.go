package entity

import (
	"sort"
	"strings"

	"github.com/casegraph/backend/pkg/common"
)

const (
	// DefaultThreshold is the minimum token-set score for a fuzzy match.
	DefaultThreshold = 85.0

	maxCandidates = 5
)

// Candidate is a scored fuzzy-match result.
type Candidate struct {
	Entity common.CanonicalEntity
	Score  float64
}

// TokenSetRatio scores two strings by order-independent token overlap on
// a 0-100 scale. Identical token sets score 100 regardless of order or
// repetition; disjoint sets score 0.
func TokenSetRatio(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		if len(ta) == 0 && len(tb) == 0 {
			return 100
		}
		return 0
	}

	shared := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return 100 * float64(shared) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = struct{}{}
	}
	return set
}

// FindCandidates ranks the owner's existing entities against a
// normalized name, keeping at most 5 results with score >= threshold,
// descending by score. Ties break on the lexicographically smaller
// canonical name. The pool is sorted by canonical name before scoring so
// repeated calls over the same pool are reproducible.
func FindCandidates(name string, pool []common.CanonicalEntity, threshold float64) []Candidate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	sorted := make([]common.CanonicalEntity, len(pool))
	copy(sorted, pool)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CanonicalName < sorted[j].CanonicalName
	})

	candidates := make([]Candidate, 0, maxCandidates)
	for _, e := range sorted {
		score := TokenSetRatio(name, e.NormalizedName)
		if score < threshold {
			continue
		}
		candidates = append(candidates, Candidate{Entity: e, Score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Entity.CanonicalName < candidates[j].Entity.CanonicalName
	})

	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}
