// Package keyword implements the keyword-matching strategies of spec
// §6.4: exact, substring, and fuzzy (normalized edit distance) matching
// against recognized text regions, with a confidence floor and
// highest-confidence tie-breaking.
package keyword

import (
	"strings"

	"github.com/honygo/ocrpool/pkg/types"
)

// Strategy selects how a target keyword is compared against recognized
// text.
type Strategy string

const (
	Exact    Strategy = "EXACT"
	Contains Strategy = "CONTAINS"
	Fuzzy    Strategy = "FUZZY"
)

// Options tunes a Matcher.
type Options struct {
	Strategy      Strategy
	MinConfidence float64 // default 0.5
	FuzzyThreshold float64 // default 0.8, floor on 1 - edit distance / longer length
}

// DefaultOptions mirrors spec §6.4's stated defaults.
func DefaultOptions() Options {
	return Options{
		Strategy:       Contains,
		MinConfidence:  0.5,
		FuzzyThreshold: 0.8,
	}
}

// Matcher finds target keywords within a set of recognized text regions.
type Matcher struct {
	opts Options
}

// New builds a Matcher; zero-value fields in opts fall back to
// DefaultOptions.
func New(opts Options) *Matcher {
	defaults := DefaultOptions()
	if opts.Strategy == "" {
		opts.Strategy = defaults.Strategy
	}
	if opts.MinConfidence == 0 {
		opts.MinConfidence = defaults.MinConfidence
	}
	if opts.FuzzyThreshold == 0 {
		opts.FuzzyThreshold = defaults.FuzzyThreshold
	}
	return &Matcher{opts: opts}
}

// Match returns one KeywordMatch per keyword that has at least one
// qualifying region, each the highest-confidence textual match for that
// keyword.
func (m *Matcher) Match(regions []types.TextRegion, keywords []string) []types.KeywordMatch {
	out := make([]types.KeywordMatch, 0, len(keywords))
	for _, kw := range keywords {
		best, found := m.bestMatch(regions, kw)
		if found {
			out = append(out, best)
		}
	}
	return out
}

func (m *Matcher) bestMatch(regions []types.TextRegion, keyword string) (types.KeywordMatch, bool) {
	var best types.KeywordMatch
	found := false

	for _, region := range regions {
		if region.Confidence < m.opts.MinConfidence {
			continue
		}
		if !m.matches(region.Text, keyword) {
			continue
		}
		if !found || region.Confidence > best.Confidence {
			best = types.KeywordMatch{
				Keyword:    keyword,
				Text:       region.Text,
				BBox:       region.BBox,
				Confidence: region.Confidence,
			}
			found = true
		}
	}
	return best, found
}

func (m *Matcher) matches(text, keyword string) bool {
	switch m.opts.Strategy {
	case Exact:
		return strings.TrimSpace(text) == strings.TrimSpace(keyword)
	case Fuzzy:
		return normalizedSimilarity(text, keyword) >= m.opts.FuzzyThreshold
	case Contains:
		fallthrough
	default:
		return strings.Contains(
			strings.ToLower(strings.TrimSpace(text)),
			strings.ToLower(strings.TrimSpace(keyword)),
		)
	}
}

// normalizedSimilarity returns 1 - (levenshtein distance / max length),
// i.e. 1.0 for identical strings and decreasing toward 0 as the strings
// diverge.
func normalizedSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" && b == "" {
		return 1
	}
	dist := levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}

// levenshtein computes edit distance with a two-row dynamic-programming
// table; inputs are short (recognized text spans and keywords), so the
// O(len(a)*len(b)) cost is negligible.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
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
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = minInt(del, minInt(ins, sub))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
