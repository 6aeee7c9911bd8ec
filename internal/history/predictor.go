// Package history implements the region-history predictor of spec §6.3/
// §6.6: a best-effort store of where keywords have previously been found,
// consulted to bias future ROI selection and never required for
// correctness.
package history

// Region is a rectangular area of an image. It carries no keyword itself;
// the keyword it matched is the target it is recorded under.
type Region struct {
	X, Y, Width, Height int
	Source              string // e.g. "recognition", "manual"
	RegionType          string // e.g. "label", "table_cell"
	Confidence          float64
}

// Predictor is consulted by the pipeline to bias preprocessing/ROI choices
// toward regions that have previously matched a given keyword, and is fed
// back success/failure observations so its predictions improve over time.
// It is advisory only: callers must treat every method as best-effort and
// never fail a recognition on a Predictor error.
type Predictor interface {
	// Predict returns previously observed regions for target, most
	// recently confirmed first. An empty result is not an error.
	Predict(target string) ([]Region, error)

	// RecordSuccess records that region matched target.
	RecordSuccess(region Region, target string) error

	// RecordFailure records that target was requested but not found
	// anywhere in the image.
	RecordFailure(target string) error
}
