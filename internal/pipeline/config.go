package pipeline

// Config gates which preprocess stages run and bounds the resize target,
// matching the preprocess.* keys of spec §6.5.
type Config struct {
	ResizeMaxWidth  int
	ResizeMaxHeight int
	Denoise         bool
	Contrast        bool
	Binarize        bool
}

// DefaultConfig mirrors the defaults this codebase ships for every other
// tunable: sane, documented, and overridable from the YAML config file.
func DefaultConfig() Config {
	return Config{
		ResizeMaxWidth:  1920,
		ResizeMaxHeight: 1080,
		Denoise:         true,
		Contrast:        false,
		Binarize:        false,
	}
}

// minResizeBound is the "small lower bound" spec §4.2 forbids up-scaling
// past; images smaller than this on both axes are left alone.
const minResizeBound = 32
