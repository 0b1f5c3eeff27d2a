package search

import (
	"sort"

	"github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"
)

// Suggester offers "did you mean" terms from the index vocabulary when
// a search comes back empty. Two channels feed it: Jaro-Winkler string
// similarity for typos, and Porter2 stem equality for word forms
// (search/searching/searched).
type Suggester struct {
	maxSuggestions int
	minSimilarity  float32
}

// NewSuggester creates a suggester with default thresholds.
func NewSuggester() *Suggester {
	return &Suggester{
		maxSuggestions: 5,
		minSimilarity:  0.84,
	}
}

type scoredTerm struct {
	term  string
	score float32
}

// Suggest ranks vocabulary terms against one query term. Results are
// deterministic: score descending, then alphabetical.
func (s *Suggester) Suggest(term string, vocabulary []string) []string {
	if term == "" || len(vocabulary) == 0 {
		return nil
	}

	stem := porter2.Stem(term)

	sort.Strings(vocabulary)

	var candidates []scoredTerm
	for _, v := range vocabulary {
		if v == term {
			continue
		}

		if porter2.Stem(v) == stem {
			candidates = append(candidates, scoredTerm{term: v, score: 1.0})
			continue
		}

		sim, err := edlib.StringsSimilarity(term, v, edlib.JaroWinkler)
		if err != nil || sim < s.minSimilarity {
			continue
		}
		candidates = append(candidates, scoredTerm{term: v, score: sim})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].term < candidates[j].term
	})

	if len(candidates) > s.maxSuggestions {
		candidates = candidates[:s.maxSuggestions]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.term
	}
	return out
}
