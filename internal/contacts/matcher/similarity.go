// Package matcher scores likely duplicate companies and persons against
// records already loaded in memory. It performs no I/O and never fails:
// invalid or too short input simply yields no duplicates.
package matcher

import "strings"

// Similarity returns the normalized Levenshtein similarity of a and b in
// [0, 1], ignoring case and surrounding whitespace. Two empty strings are
// identical.
func Similarity(a, b string) float64 {
	ra := []rune(normalize(a))
	rb := []rune(normalize(b))
	if string(ra) == string(rb) {
		return 1.0
	}

	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein counts the unit-cost insertions, deletions and substitutions
// needed to turn a into b, keeping only two rows of the DP table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
