package resolver

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransform strips combining marks so "Pádraig" and "Padraig"
// compare equal.
var foldTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldName(value string) string {
	folded, _, err := transform.String(foldTransform, value)
	if err != nil {
		folded = value
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// levenshtein computes edit distance over runes.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
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
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// similarity maps edit distance to [0, 1], where 1 is an exact match.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// nameScore scores a folded mention against a set of folded name
// variants and keeps the best. Two players sharing a first name both
// score high on it; the margin check downstream turns that into a
// disambiguation instead of a wrong auto-resolve.
func nameScore(foldedRaw string, variants []string) float64 {
	best := 0.0
	for _, variant := range variants {
		if variant == "" {
			continue
		}
		if score := similarity(foldedRaw, variant); score > best {
			best = score
		}
	}
	return best
}
