// Package imageproc produces the canonical raster the face detector runs on.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
)

// DefaultMaxDim bounds the longer image dimension before detection. Bounding
// the input keeps detector latency and memory predictable.
const DefaultMaxDim = 600

var ErrInvalidImage = errors.New("invalid image")

// Normalize decodes buf and downscales it so that neither dimension exceeds
// maxDim, preserving aspect ratio. Images already within bounds pass through
// unchanged; Normalize never upscales, since fabricated detail would affect
// embedding quality.
func Normalize(buf []byte, maxDim int) (image.Image, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrInvalidImage)
	}
	if maxDim <= 0 {
		maxDim = DefaultMaxDim
	}

	src, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: zero-sized image", ErrInvalidImage)
	}

	scale := math.Min(float64(maxDim)/float64(w), float64(maxDim)/float64(h))
	if scale >= 1 {
		return src, nil
	}

	dw := int(math.Round(float64(w) * scale))
	dh := int(math.Round(float64(h) * scale))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst, nil
}
