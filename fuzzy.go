package understory

import "unicode"

// Match is the result of scoring a query against a candidate string.
// A zero Score with nil Positions means the query is not a subsequence of
// the candidate at all; Positions otherwise holds the index of every
// matched character in the candidate.
type Match struct {
	Score     int
	Positions []int
}

// isFuzzySeparator reports whether c acts as a word boundary for the
// boundary bonus.
func isFuzzySeparator(c rune) bool {
	return c == '_' || c == '-' || c == '/' || c == '.'
}

// FuzzyScore ranks how well query matches text for interactive symbol
// search. The query must match as a case-insensitive ordered subsequence
// of text; anything less is a hard non-match, not a low score.
//
// The bonus scheme makes short, boundary-aligned matches beat long
// incidental substrings: consecutive runs earn an escalating bonus,
// matches at the start of text or just after a separator or camel-case
// boundary are boosted, and shorter candidates with earlier first hits
// win the final tie-breaks.
func FuzzyScore(query, text string) Match {
	if query == "" || text == "" {
		return Match{}
	}

	qr := []rune(query)
	tr := []rune(text)

	score := 0
	positions := make([]int, 0, len(qr))
	qi := 0
	prev := -2 // text index of the previous match
	run := 0   // length of the current consecutive run

	for ti := 0; ti < len(tr) && qi < len(qr); ti++ {
		if unicode.ToLower(tr[ti]) != unicode.ToLower(qr[qi]) {
			continue
		}

		charScore := 1
		if ti == prev+1 {
			run++
			charScore = 10 + run*5
		} else {
			run = 0
		}

		if ti == 0 {
			charScore += 15
		} else if isFuzzySeparator(tr[ti-1]) ||
			(unicode.IsLower(tr[ti-1]) && unicode.IsUpper(tr[ti])) {
			charScore += 10
		}

		if tr[ti] == qr[qi] {
			charScore += 2
		}

		score += charScore
		positions = append(positions, ti)
		prev = ti
		qi++
	}

	if qi < len(qr) {
		return Match{}
	}

	if bonus := 30 - len(tr); bonus > 0 {
		score += bonus
	}
	if bonus := 20 - positions[0]; bonus > 0 {
		score += bonus
	}

	return Match{Score: score, Positions: positions}
}
