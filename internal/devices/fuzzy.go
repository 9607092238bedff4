package devices

// suggestCutoff is the minimum similarity ratio for a fuzzy suggestion.
const suggestCutoff = 0.6

// similarity is the classic sequence-matcher ratio: 2*M/T where M is the
// total length of the matched blocks and T the combined length of both
// strings. Operates on runes so multi-byte Turkish characters count as
// single positions.
func similarity(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	total := len(ar) + len(br)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingLen(ar, br)) / float64(total)
}

// matchingLen sums matched block lengths: find the longest common block,
// then recurse into the regions before and after it.
func matchingLen(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ai, bi, size := longestBlock(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingLen(a[:ai], b[:bi]) +
		matchingLen(a[ai+size:], b[bi+size:])
}

// longestBlock finds the longest run of runes common to a and b. Among
// equally long blocks the earliest in a, then earliest in b, wins.
func longestBlock(a, b []rune) (ai, bi, size int) {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	j2len := make(map[int]int)
	for i, r := range a {
		newJ2len := make(map[int]int)
		for _, j := range b2j[r] {
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > size {
				ai, bi, size = i-k+1, j-k+1, k
			}
		}
		j2len = newJ2len
	}
	return ai, bi, size
}

// closestMatch returns the candidate most similar to word at or above the
// cutoff. Candidates are scanned in order; a later candidate replaces an
// earlier one only with a strictly better ratio.
func closestMatch(word string, candidates []string, cutoff float64) (string, bool) {
	var best string
	bestRatio := cutoff
	found := false
	for _, cand := range candidates {
		ratio := similarity(word, cand)
		if ratio > bestRatio || (!found && ratio >= cutoff) {
			best = cand
			bestRatio = ratio
			found = true
		}
	}
	return best, found
}
