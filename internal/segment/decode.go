package segment

import (
	"image"
	"math"

	"github.com/chewxy/math32"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// smallest and largest float32 strictly inside (0, 1)
var (
	minProb = math.Nextafter32(0, 1)
	maxProb = math.Nextafter32(1, 0)
)

func sigmoid(x float32) float32 {
	p := 1 / (1 + math32.Exp(-x))
	switch {
	case p >= 1:
		return maxProb
	case p <= 0:
		return minProb
	}
	return p
}

// Probabilities combines the prototype planes weighted by coeffs and applies the
// sigmoid. Only the first min(len(coeffs), p.C) channels take part.
func Probabilities(p *Prototypes, coeffs []float32) []float32 {
	n := min(len(coeffs), p.C)
	plane := make([]float32, p.H*p.W)
	for c := 0; c < n; c++ {
		w := coeffs[c]
		for i, v := range p.Plane(c) {
			plane[i] += v * w
		}
	}
	for i, v := range plane {
		plane[i] = sigmoid(v)
	}
	return plane
}

// Decode reconstructs the instance mask at width×height. The prototype-resolution
// mask is binarized with "> threshold" and scaled with nearest-neighbor sampling,
// so the result only ever holds 0 and 1.
//
// When len(coeffs) differs from the prototype channel count both sides are
// truncated to the shorter one, unless strict is set.
func Decode(p *Prototypes, coeffs []float32, height, width int, threshold float32, strict bool) (*BinaryMask, error) {
	if height <= 0 || width <= 0 {
		return nil, errors.Wrapf(ErrInvalidImage, "mask target %dx%d", width, height)
	}
	if len(coeffs) != p.C && strict {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d coefficients for %d prototypes", len(coeffs), p.C)
	}

	probs := Probabilities(p, coeffs)
	small := image.NewGray(image.Rect(0, 0, p.W, p.H))
	for i, v := range probs {
		if v > threshold {
			small.Pix[(i/p.W)*small.Stride+i%p.W] = 255
		}
	}

	scaled := imaging.Resize(small, width, height, imaging.NearestNeighbor)
	mask := NewBinaryMask(width, height)
	for y := 0; y < height; y++ {
		row := scaled.Pix[y*scaled.Stride:]
		for x := 0; x < width; x++ {
			if row[x*4] != 0 {
				mask.Pix[y*width+x] = 1
			}
		}
	}
	return mask, nil
}
