package dedup

// DefaultThreshold is the similarity at or above which two names are
// considered the same company.
const DefaultThreshold = 0.85

// Similarity returns 1 - levenshtein(a, b) / max(len(a), len(b)) over the
// normalized forms of a and b. Two empty names are identical.
func Similarity(a, b string) float64 {
	ra := []rune(Normalize(a))
	rb := []rune(Normalize(b))

	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// AreSimilar reports whether Similarity(a, b) reaches threshold.
func AreSimilar(a, b string, threshold float64) bool {
	return Similarity(a, b) >= threshold
}

// levenshtein computes the edit distance with a two-row table.
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
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
