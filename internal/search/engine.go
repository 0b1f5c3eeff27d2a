package search

import (
	"errors"
	"sort"
	"strings"

	"github.com/prism-search/prism/internal/config"
	"github.com/prism-search/prism/internal/debug"
	"github.com/prism-search/prism/internal/indexing"
	"github.com/prism-search/prism/internal/types"
)

// ErrQueryTooLong rejects queries over the hard length cap.
var ErrQueryTooLong = errors.New("query exceeds maximum length")

// Result is one ranked search hit.
type Result struct {
	Path     string        `json:"path"`
	Line     int           `json:"line"`
	Text     string        `json:"text"`
	Score    float64       `json:"score"`
	Language string        `json:"language"`
	Context  []ContextLine `json:"context,omitempty"`
}

// ContextLine is a neighboring line attached to a result.
type ContextLine struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Usage is the outcome of ExplainUsage: a nominated definition site and
// the remaining occurrences.
type Usage struct {
	Definition *Result  `json:"definition,omitempty"`
	Usages     []Result `json:"usages"`
}

// Engine answers queries against the coordinator's current store. It is
// safe for concurrent use; every query runs under the store's read lock
// so posting references stay coherent against the single writer.
type Engine struct {
	cfg       *config.Config
	coord     *indexing.Coordinator
	cache     *ResultCache
	suggester *Suggester
}

// NewEngine creates a search engine over coord and registers the cache
// purge on its commit hook.
func NewEngine(cfg *config.Config, coord *indexing.Coordinator) *Engine {
	e := &Engine{
		cfg:       cfg,
		coord:     coord,
		cache:     NewResultCache(cfg.Search.CacheCapacity),
		suggester: NewSuggester(),
	}
	coord.OnCommit(e.cache.Purge)
	return e
}

// CacheStats exposes result-cache counters for the stats surface.
func (e *Engine) CacheStats() CacheStats {
	return e.cache.Stats()
}

// Search resolves a query into a ranked, bounded result list. Empty or
// whitespace-only queries return an empty list without touching the
// cache. Two identical calls against the same store state return
// identical results.
func (e *Engine) Search(query string, limit int) ([]Result, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return []Result{}, nil
	}
	if len(trimmed) > types.MaxQueryLength {
		return nil, ErrQueryTooLong
	}

	if limit <= 0 {
		limit = e.cfg.Search.DefaultLimit
	}
	if limit > e.cfg.Search.MaxResults {
		limit = e.cfg.Search.MaxResults
	}

	if cached, ok := e.cache.Get(trimmed, limit); ok {
		debug.LogSearch("cache hit for %q limit=%d\n", trimmed, limit)
		return cached, nil
	}

	lowered := strings.ToLower(trimmed)
	terms := indexing.UniqueTokens(trimmed)

	st := e.coord.Store()
	st.RLock()
	defer st.RUnlock()

	var matches []match
	if len(terms) > 0 && allTermsIndexed(st, terms) {
		matches = e.invertedSearch(st, lowered, terms, limit)
	} else {
		matches = e.linearSearch(st, lowered)
	}

	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	results := assembleResults(st, matches)
	e.cache.Put(trimmed, limit, results)

	return results, nil
}

// ExplainUsage searches for a symbol and nominates the first hit in a
// code language as its definition; the rest are usages.
func (e *Engine) ExplainUsage(symbol string, limit int) (Usage, error) {
	results, err := e.Search(symbol, limit)
	if err != nil {
		return Usage{}, err
	}

	usage := Usage{Usages: []Result{}}
	for _, r := range results {
		if usage.Definition == nil && isCodeLanguage(r.Language) {
			def := r
			usage.Definition = &def
			continue
		}
		usage.Usages = append(usage.Usages, r)
	}

	return usage, nil
}

// Suggest offers index terms resembling the query, for empty result
// sets. Disabled suggesters return nil.
func (e *Engine) Suggest(query string) []string {
	if !e.cfg.Search.EnableSuggest {
		return nil
	}

	terms := indexing.UniqueTokens(query)
	if len(terms) == 0 {
		return nil
	}

	st := e.coord.Store()
	st.RLock()
	vocabulary := st.Terms()
	st.RUnlock()

	return e.suggester.Suggest(terms[len(terms)-1], vocabulary)
}

// match is an admitted line before result assembly.
type match struct {
	file  types.FileID
	line  int32 // index into the record's Lines
	score float64
	path  string
	num   int // 1-based line number
}

func allTermsIndexed(st *indexing.Store, terms []string) bool {
	for _, t := range terms {
		if !st.HasTerm(t) {
			return false
		}
	}
	return true
}

// invertedSearch buckets postings by line, verifies the full query as a
// phrase, and scores by base + exact bonus + term coverage. Bucket
// creation stops at CandidateFactor*limit; counts for existing buckets
// still accumulate so coverage stays exact.
func (e *Engine) invertedSearch(st *indexing.Store, lowered string, terms []string, limit int) []match {
	type bucket struct {
		file    types.FileID
		line    int32
		base    float64
		matched int
	}

	maxCandidates := types.CandidateFactor * limit
	buckets := make(map[uint64]*bucket)
	var order []uint64

	for _, term := range terms {
		for _, p := range st.PostingsFor(term) {
			key := uint64(uint32(p.File))<<32 | uint64(uint32(p.Line))
			if b, ok := buckets[key]; ok {
				b.matched++
				continue
			}
			if len(order) >= maxCandidates {
				continue
			}
			buckets[key] = &bucket{file: p.File, line: p.Line, base: float64(p.Score), matched: 1}
			order = append(order, key)
		}
	}

	total := len(terms)
	matches := make([]match, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		rec := st.FileByID(b.file)
		if rec == nil || int(b.line) >= len(rec.Lines) {
			continue
		}
		line := rec.Lines[b.line]

		// Phrase verification: term co-occurrence alone is not a match.
		if !strings.Contains(strings.ToLower(line.Text), lowered) {
			continue
		}

		score := b.base + types.ExactMatchBonus + types.TermCoverageWeight*(float64(b.matched)/float64(total))
		matches = append(matches, match{
			file:  b.file,
			line:  b.line,
			score: indexing.ClampScore(score),
			path:  rec.Path,
			num:   line.Number,
		})
	}

	debug.LogSearch("inverted search: %d buckets, %d phrase matches\n", len(order), len(matches))
	return matches
}

// linearSearch scans every line record for the lowercased query as a
// substring. Used when some query term is absent from the index or the
// query yields no terms at all.
func (e *Engine) linearSearch(st *indexing.Store, lowered string) []match {
	var matches []match

	st.ForEachFile(func(id types.FileID, rec *indexing.FileRecord) bool {
		for i, line := range rec.Lines {
			if !strings.Contains(strings.ToLower(line.Text), lowered) {
				continue
			}
			score := indexing.BaseScore(rec.Language, line.Length) + types.ExactMatchBonus
			matches = append(matches, match{
				file:  id,
				line:  int32(i),
				score: indexing.ClampScore(score),
				path:  rec.Path,
				num:   line.Number,
			})
		}
		return true
	})

	debug.LogSearch("linear search: %d matches\n", len(matches))
	return matches
}

// sortMatches orders by score descending with (path, line) ascending
// tie-breaks so identical queries rank identically.
func sortMatches(matches []match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		if matches[i].path != matches[j].path {
			return matches[i].path < matches[j].path
		}
		return matches[i].num < matches[j].num
	})
}

// assembleResults attaches language and the ±1 neighboring lines.
func assembleResults(st *indexing.Store, matches []match) []Result {
	results := make([]Result, 0, len(matches))

	for _, m := range matches {
		rec := st.FileByID(m.file)
		if rec == nil || int(m.line) >= len(rec.Lines) {
			continue
		}
		line := rec.Lines[m.line]

		results = append(results, Result{
			Path:     rec.Path,
			Line:     line.Number,
			Text:     line.Text,
			Score:    m.score,
			Language: rec.Language,
			Context:  contextLines(rec, line.Number),
		})
	}

	return results
}

// contextLines returns the records at line numbers n-1 and n+1 when
// they exist. Blank source lines carry no record, so a neighbor may be
// legitimately absent.
func contextLines(rec *indexing.FileRecord, n int) []ContextLine {
	var ctx []ContextLine
	for _, want := range []int{n - 1, n + 1} {
		idx := sort.Search(len(rec.Lines), func(i int) bool {
			return rec.Lines[i].Number >= want
		})
		if idx < len(rec.Lines) && rec.Lines[idx].Number == want {
			ctx = append(ctx, ContextLine{Line: want, Text: rec.Lines[idx].Text})
		}
	}
	return ctx
}

func isCodeLanguage(language string) bool {
	return language != "" && indexing.LanguageWeight(language) == types.CodeLanguageWeight
}
