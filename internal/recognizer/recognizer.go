// Package recognizer defines the external OCR engine contract the core
// consumes. The engine itself (the neural model) is out of scope per
// spec §1; this package only pins down the interface and its synthetic
// test double used for warmup and unit tests.
package recognizer

import (
	"context"
	"image"

	"github.com/honygo/ocrpool/pkg/types"
)

// Tuple is one raw recognizer output: a quadrilateral, its text, and a
// confidence score. Quad holds four (x, y) points; callers normalize to
// an axis-aligned BBox in internal/pipeline.
type Tuple struct {
	Quad       [4][2]int
	Text       string
	Confidence float64
}

// Recognizer is the capability an Instance wraps. Implementations are not
// safe for concurrent use by more than one caller at a time (spec §5:
// "exactly one worker touches one Recognizer at a time").
type Recognizer interface {
	// ReadText runs recognition over a decoded image and the pass-through
	// options the core recognized from the request (spec §6.2).
	ReadText(ctx context.Context, img image.Image, opts types.RecognizeOptions) ([]Tuple, error)

	// Close releases any resources (model weights, device handles) held by
	// the recognizer. Called once, from Instance.stop().
	Close() error
}
