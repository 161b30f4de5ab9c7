package segment

import (
	"image"
	"image/color"
	"math"
	"math/rand"

	"go.uber.org/zap"
)

const (
	testAttrs      = 37
	testCandidates = 8400
	testProtoC     = 32
	testProtoSize  = 160
)

func nopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// rawDetections lays rows out the way the network does: one attribute per
// channel, candidates along the last axis.
func rawDetections(attrs, candidates int, rows map[int][]float32) []float32 {
	data := make([]float32, attrs*candidates)
	for i, row := range rows {
		for a, v := range row {
			data[a*candidates+i] = v
		}
	}
	return data
}

// detectionRow builds a row with the given confidence and coefficients
// starting at DefaultCoeffColumn. Coefficients past the row end are dropped.
func detectionRow(attrs int, conf float32, coeffs ...float32) []float32 {
	row := make([]float32, attrs)
	row[confColumn] = conf
	copy(row[DefaultCoeffColumn:], coeffs)
	return row
}

// constantProtos returns prototypes whose first channel is v everywhere and
// whose other channels are zero.
func constantProtos(c, h, w int, v float32) []float32 {
	data := make([]float32, c*h*w)
	for i := 0; i < h*w; i++ {
		data[i] = v
	}
	return data
}

func randomProtos(rng *rand.Rand, c, h, w int) *Prototypes {
	data := make([]float32, c*h*w)
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return &Prototypes{C: c, H: h, W: w, Data: data}
}

func randomCoeffs(rng *rand.Rand, n int) []float32 {
	coeffs := make([]float32, n)
	for i := range coeffs {
		coeffs[i] = float32(rng.NormFloat64())
	}
	return coeffs
}

// logit is the inverse of the sigmoid.
func logit(p float64) float32 {
	return float32(math.Log(p / (1 - p)))
}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func rectMask(w, h int, r image.Rectangle) *BinaryMask {
	m := NewBinaryMask(w, h)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Set(x, y, 1)
		}
	}
	return m
}
