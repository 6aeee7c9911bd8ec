// Package pipeline implements the Preprocess/Postprocess Pipeline of spec
// §4.2: a pure, instance-identity-free transform chain wrapped around a
// Recognizer, with a deterministic pre/post ordering (resolving the
// "dual pipelines" redesign flag into a single pass).
package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/honygo/ocrpool/internal/history"
	"github.com/honygo/ocrpool/internal/keyword"
	"github.com/honygo/ocrpool/internal/recognizer"
	"github.com/honygo/ocrpool/pkg/poolerr"
	"github.com/honygo/ocrpool/pkg/types"
)

// Pipeline is pure given a Recognizer: it has no knowledge of instance
// identity and can be invoked in isolation for testing (spec §4.2).
type Pipeline struct {
	cfg       Config
	matcher   *keyword.Matcher
	predictor history.Predictor // optional, best-effort; may be nil
}

// New builds a Pipeline. predictor may be nil when no region-history
// store is configured.
func New(cfg Config, matcher *keyword.Matcher, predictor history.Predictor) *Pipeline {
	return &Pipeline{cfg: cfg, matcher: matcher, predictor: predictor}
}

// Run decodes raw image bytes, applies the configured preprocess stages,
// invokes rec.ReadText, and postprocesses the result into the stable
// EnrichedResult shape.
func (p *Pipeline) Run(ctx context.Context, raw []byte, targetKeywords []string, opts types.RecognizeOptions, rec recognizer.Recognizer) (*types.EnrichedResult, error) {
	img, err := decode(raw)
	if err != nil {
		return nil, err
	}

	processed := resize(img, p.cfg.ResizeMaxWidth, p.cfg.ResizeMaxHeight)
	if p.cfg.Denoise {
		processed = denoise(processed)
	}
	if p.cfg.Contrast {
		processed = contrastEnhance(processed)
	}
	if p.cfg.Binarize {
		processed = binarizeAdaptive(processed)
	}

	quality := qualityScore(processed)

	tuples, err := rec.ReadText(ctx, processed, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", poolerr.ErrRecognition, err)
	}

	result := enrich(tuples, targetKeywords, quality, p.matcher)

	if p.predictor != nil && len(targetKeywords) > 0 {
		p.recordHistory(result, targetKeywords)
	}

	return result, nil
}

// recordHistory best-effort notifies the region-history predictor of
// match outcomes; failures are swallowed per spec §6.3.
func (p *Pipeline) recordHistory(result *types.EnrichedResult, targetKeywords []string) {
	matched := make(map[string]bool, len(result.KeywordMatches))
	for _, m := range result.KeywordMatches {
		matched[m.Keyword] = true
		region := history.Region{
			X: m.BBox.X1, Y: m.BBox.Y1,
			Width:  m.BBox.X2 - m.BBox.X1,
			Height: m.BBox.Y2 - m.BBox.Y1,
			Source: "recognition",
		}
		_ = p.predictor.RecordSuccess(region, m.Keyword)
	}
	for _, kw := range targetKeywords {
		if !matched[kw] {
			_ = p.predictor.RecordFailure(kw)
		}
	}
}

// ResolvePayload turns a tagged Payload into raw image bytes, per the
// redesign-flag resolution in SPEC_FULL: routing is by the caller-asserted
// Kind, never by sniffing.
func ResolvePayload(payload types.Payload) ([]byte, error) {
	switch payload.Kind {
	case types.PayloadBytes:
		return payload.Bytes, nil
	case types.PayloadBase64:
		decoded, err := base64.StdEncoding.DecodeString(payload.Base64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64: %v", poolerr.ErrBadImage, err)
		}
		return decoded, nil
	case types.PayloadPath:
		data, err := os.ReadFile(payload.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: read path %s: %v", poolerr.ErrBadImage, payload.Path, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized payload kind %q", poolerr.ErrBadImage, payload.Kind)
	}
}
