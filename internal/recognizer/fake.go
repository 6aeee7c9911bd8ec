package recognizer

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/honygo/ocrpool/pkg/types"
)

// Fake is a deterministic, configurable Recognizer double for tests: it
// simulates latency and a scripted sequence of failures before succeeding,
// the way this codebase's worker simulation models unreliable execution.
type Fake struct {
	mu sync.Mutex

	// Delay is applied before every ReadText call returns.
	Delay time.Duration

	// FailuresBeforeSuccess counts down on each call; while > 0 the call
	// returns Err (or a generic recognition error) and decrements.
	FailuresBeforeSuccess int
	Err                   error

	// Tuples is returned on a successful call. Results is an optional
	// function form for per-call customization (e.g. echoing the image
	// size); when set it takes precedence over Tuples.
	Tuples  []Tuple
	Results func(img image.Image) []Tuple

	Calls  int
	Closed bool
}

// ReadText implements Recognizer.
func (f *Fake) ReadText(ctx context.Context, img image.Image, opts types.RecognizeOptions) ([]Tuple, error) {
	f.mu.Lock()
	f.Calls++
	remaining := f.FailuresBeforeSuccess
	if remaining > 0 {
		f.FailuresBeforeSuccess--
	}
	delay := f.Delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if remaining > 0 {
		if f.Err != nil {
			return nil, f.Err
		}
		return nil, errors.New("simulated recognition failure")
	}

	if f.Results != nil {
		return f.Results(img), nil
	}
	return f.Tuples, nil
}

// Close implements Recognizer.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
