package matcher

// Distance returns the Levenshtein edit distance between a and b, counting
// runes. Insertions, deletions and substitutions each cost 1.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
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

	return prev[len(rb)]
}

// Similarity maps the edit distance into [0,1]; identical strings score 1.
func Similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := max(la, lb)
	if maxLen == 0 {
		return 1.0
	}
	return 1 - float64(Distance(a, b))/float64(maxLen)
}
