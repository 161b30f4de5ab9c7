package segment

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Resize scales img to size×size with bilinear interpolation and returns an RGBA
// copy. Grayscale images come back with three identical channels.
func Resize(img image.Image, size int) (*image.RGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.Wrap(ErrInvalidImage, "empty bounds")
	}
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidImage, "target size %d", size)
	}

	b := img.Bounds()
	if b.Dx() != size || b.Dy() != size {
		img = resize.Resize(uint(size), uint(size), img, resize.Bilinear)
		b = img.Bounds()
	}

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				v := src.GrayAt(b.Min.X+x, b.Min.Y+y).Y
				out.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
			}
		}
	case *image.Gray16:
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				v := uint8(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y >> 8)
				out.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
			}
		}
	default:
		draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	}
	return out, nil
}

// Preprocess turns an image into the (1, 3, size, size) float tensor the network
// expects. Channels are written in B, G, R order and scaled to [0, 1].
func Preprocess(img image.Image, size int) (*Tensor, error) {
	rgba, err := Resize(img, size)
	if err != nil {
		return nil, err
	}

	hwc := make([]float32, size*size*3)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			p := rgba.RGBAAt(x, y)
			i := (y*size + x) * 3
			hwc[i] = float32(p.B) / 255.0
			hwc[i+1] = float32(p.G) / 255.0
			hwc[i+2] = float32(p.R) / 255.0
		}
	}

	t := tensor.New(tensor.WithShape(size, size, 3), tensor.WithBacking(hwc))
	if err := t.T(2, 0, 1); err != nil {
		return nil, errors.Wrap(err, "preprocess: transpose to CHW")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "preprocess: transpose to CHW")
	}
	if err := t.Reshape(1, 3, size, size); err != nil {
		return nil, errors.Wrap(err, "preprocess: add batch dimension")
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("preprocess: unexpected backing type %T", t.Data())
	}

	return &Tensor{
		Shape: [4]int64{1, 3, int64(size), int64(size)},
		Data:  data,
	}, nil
}
