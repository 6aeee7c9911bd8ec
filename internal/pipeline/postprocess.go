package pipeline

import (
	"github.com/honygo/ocrpool/internal/keyword"
	"github.com/honygo/ocrpool/internal/recognizer"
	"github.com/honygo/ocrpool/pkg/types"
)

// normalize collapses each raw recognizer tuple into a TextRegion: a
// 4-point polygon becomes its axis-aligned bounding rectangle (spec §4.2
// step 1).
func normalize(tuples []recognizer.Tuple) []types.TextRegion {
	out := make([]types.TextRegion, 0, len(tuples))
	for _, t := range tuples {
		out = append(out, types.TextRegion{
			BBox:       boundingBox(t.Quad),
			Text:       t.Text,
			Confidence: t.Confidence,
		})
	}
	return out
}

func boundingBox(quad [4][2]int) types.BBox {
	x1, y1 := quad[0][0], quad[0][1]
	x2, y2 := quad[0][0], quad[0][1]
	for _, p := range quad[1:] {
		if p[0] < x1 {
			x1 = p[0]
		}
		if p[0] > x2 {
			x2 = p[0]
		}
		if p[1] < y1 {
			y1 = p[1]
		}
		if p[1] > y2 {
			y2 = p[1]
		}
	}
	return types.BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// enrich builds the single stable return shape described in spec §4.2 step
// 4 and SPEC_FULL's resolution of the "unstable return shape" redesign
// flag: KeywordMatches is always a non-nil slice, empty when no keywords
// were requested.
func enrich(tuples []recognizer.Tuple, targetKeywords []string, quality float64, matcher *keyword.Matcher) *types.EnrichedResult {
	regions := normalize(tuples)

	matches := make([]types.KeywordMatch, 0)
	if len(targetKeywords) > 0 {
		matches = matcher.Match(regions, targetKeywords)
	}

	return &types.EnrichedResult{
		OriginalResult:  regions,
		ProcessedResult: regions,
		KeywordMatches:  matches,
		OptimizationInfo: map[string]interface{}{
			"quality_score": quality,
		},
	}
}
