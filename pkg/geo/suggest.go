package geo

import "unicode/utf8"

// suggestRatio bounds how far a suggestion may be from the query: at most
// one edit per suggestRatio runes, and always at least one.
const suggestRatio = 4

// Suggest returns the known country closest to country by edit distance over
// folded names, or "" when nothing is close enough. Exact matches and empty
// input yield "".
func (t *Table) Suggest(country string) string {
	query := fold(country)
	if t == nil || query == "" {
		return ""
	}

	if _, ok := t.folded[query]; ok {
		return ""
	}

	budget := max(1, utf8.RuneCountInString(query)/suggestRatio)

	var (
		d         distance
		best      string
		bestScore = budget + 1
	)

	for name := range t.exact {
		score := d.between(query, fold(name))
		if score < bestScore || (score == bestScore && name < best) {
			best, bestScore = name, score
		}
	}

	if bestScore > budget {
		return ""
	}

	return best
}

// distance computes Levenshtein distance with a reused single column, so a
// scan over the whole table allocates once.
type distance struct {
	column []int
}

func (d *distance) between(a, b string) int {
	s1 := []rune(a)
	s2 := []rune(b)

	if len(s2) == 0 {
		return len(s1)
	}

	if cap(d.column) < len(s1)+1 {
		d.column = make([]int, len(s1)+1)
	}

	column := d.column[:len(s1)+1]
	for i := range column {
		column[i] = i
	}

	for col, r2 := range s2 {
		column[0] = col + 1
		diag := col

		for row, r1 := range s1 {
			prev := column[row+1]

			cost := 1
			if r1 == r2 {
				cost = 0
			}

			column[row+1] = min(column[row+1]+1, column[row]+1, diag+cost)
			diag = prev
		}
	}

	return column[len(s1)]
}
