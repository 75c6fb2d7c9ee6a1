package identity

import "strings"

// DefaultNearDupThreshold is the Jaccard similarity at or above which a
// candidate is a near-duplicate.
const DefaultNearDupThreshold = 0.85

// TokenSet is a set of lowercase whitespace-delimited tokens.
type TokenSet map[string]struct{}

// Tokenize lowercases text and splits it on whitespace.
func Tokenize(text string) TokenSet {
	fields := strings.Fields(strings.ToLower(text))
	set := make(TokenSet, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets are identical (1.0).
func Jaccard(a, b TokenSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for token := range small {
		if _, ok := large[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// NearDuplicateOf compares candidate against every accepted set and returns
// the index of the first one with similarity >= threshold, or -1. The highest
// similarity seen is always returned.
func NearDuplicateOf(candidate TokenSet, accepted []TokenSet, threshold float64) (index int, highest float64) {
	index = -1
	for i, other := range accepted {
		sim := Jaccard(candidate, other)
		if sim > highest {
			highest = sim
		}
		if index < 0 && sim >= threshold {
			index = i
		}
	}
	return index, highest
}
