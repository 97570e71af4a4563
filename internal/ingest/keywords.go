package ingest

import (
	"sort"
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all am an and any are as at be
		because been before being below between both but by can could did do does doing down during each
		few for from further had has have having he her here hers him his how i if in into is it its
		itself just me more most my no nor not now of off on once only or other our ours out over own
		same she should so some such than that the their theirs them then there these they this those
		through to too under until up very was we were what when where which while who whom why will
		with would you your yours`) {
		stopwords[w] = struct{}{}
	}
}

// extractKeywords returns the n most frequent content words across
// segments, ties broken alphabetically.
func extractKeywords(segs []Segment, n int) []string {
	counts := map[string]int{}
	for _, s := range segs {
		words := strings.FieldsFunc(strings.ToLower(s.Text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
		})
		for _, w := range words {
			w = strings.Trim(w, "-")
			if len([]rune(w)) < 3 {
				continue
			}
			if _, stop := stopwords[w]; stop {
				continue
			}
			counts[w]++
		}
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}
