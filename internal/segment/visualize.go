package segment

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	overlayAlpha = 0.3
	labelSize    = 14
	labelPad     = 10
)

var labelFont *truetype.Font

func init() {
	var err error
	labelFont, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Visualizer burns a decoded mask, its bounding box and a label into a copy of
// the source image.
type Visualizer struct {
	logger    *zap.SugaredLogger
	threshold float32
}

func NewVisualizer(logger *zap.SugaredLogger, threshold float32) *Visualizer {
	return &Visualizer{logger: logger, threshold: threshold}
}

// Visualize never fails: if composition goes wrong the original image comes
// back with OutcomeAnnotationFailed, and a mask without any region yields
// OutcomeNoDetection.
func (v *Visualizer) Visualize(original image.Image, mask *BinaryMask, class Class, confidence float32) (res *Result) {
	res = &Result{
		Outcome:    OutcomeNoDetection,
		Image:      original,
		Class:      class,
		Confidence: confidence,
		Mask:       mask,
	}

	defer func() {
		if r := recover(); r != nil {
			v.logger.Errorw("segmentation visualization failed", "panic", r)
			res.Outcome = OutcomeAnnotationFailed
			res.Image = original
			res.Box = image.Rectangle{}
		}
	}()

	b := original.Bounds()
	if mask == nil || mask.Width != b.Dx() || mask.Height != b.Dy() {
		v.logger.Errorw("segmentation visualization failed",
			"error", errors.Errorf("mask does not match image %dx%d", b.Dx(), b.Dy()))
		res.Outcome = OutcomeAnnotationFailed
		return res
	}

	contours, err := FindContours(mask)
	if err != nil {
		v.logger.Errorw("segmentation visualization failed", "error", err)
		res.Outcome = OutcomeAnnotationFailed
		return res
	}
	largest, ok := Largest(contours)
	if !ok {
		v.logger.Warn("no contours found in mask")
		return res
	}
	box := largest.Bounds()

	vis := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(vis, vis.Bounds(), original, b.Min, draw.Src)
	c := class.Color().RGBA()
	blend(vis, mask, c)

	if confidence >= v.threshold {
		drawLabel(vis, box, labelText(class, confidence), c)
	}
	for _, p := range largest {
		vis.SetRGBA(p.X, p.Y, c)
	}

	res.Outcome = OutcomeAnnotated
	res.Image = vis
	res.Box = box
	return res
}

func labelText(class Class, confidence float32) string {
	return fmt.Sprintf("%s %.2f", class, confidence)
}

// blend mixes the class color into every masked pixel at a fixed 70/30 ratio.
func blend(img *image.RGBA, mask *BinaryMask, c color.RGBA) {
	mix := func(o, k uint8) uint8 {
		return uint8(math.Round((1-overlayAlpha)*float64(o) + overlayAlpha*float64(k)))
	}
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.At(x, y) == 0 {
				continue
			}
			i := img.PixOffset(x, y)
			img.Pix[i] = mix(img.Pix[i], c.R)
			img.Pix[i+1] = mix(img.Pix[i+1], c.G)
			img.Pix[i+2] = mix(img.Pix[i+2], c.B)
		}
	}
}

// drawLabel outlines the box and writes the label on a filled tab sitting on
// the box's top-left corner. A box touching the top edge gets the tab inside.
func drawLabel(img *image.RGBA, box image.Rectangle, label string, c color.RGBA) {
	dc := gg.NewContextForRGBA(img)
	x, y := float64(box.Min.X), float64(box.Min.Y)

	dc.SetColor(c)
	dc.SetLineWidth(2)
	dc.DrawRectangle(x, y, float64(box.Dx()), float64(box.Dy()))
	dc.Stroke()

	dc.SetFontFace(truetype.NewFace(labelFont, &truetype.Options{Size: labelSize}))
	w, h := dc.MeasureString(label)
	top := y - h - labelPad
	if top < 0 {
		top = y
	}
	dc.DrawRectangle(x, top, w+labelPad, h+labelPad)
	dc.Fill()

	dc.SetColor(color.White)
	dc.DrawString(label, x+labelPad/2, top+h+labelPad/2)
}
