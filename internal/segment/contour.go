package segment

import (
	"image"
	"math"
)

// Contour is the traced outer boundary of one connected region of a mask.
type Contour []image.Point

// Area is the polygon area enclosed by the contour (shoelace formula).
func (c Contour) Area() float64 {
	if len(c) < 3 {
		return 0
	}
	var sum float64
	prev := c[len(c)-1]
	for _, p := range c {
		sum += float64(prev.X*p.Y - p.X*prev.Y)
		prev = p
	}
	return math.Abs(sum) / 2
}

// Bounds is the axis-aligned bounding rectangle of the contour pixels. Max is
// exclusive, so a contour touching columns 0..639 has Dx() == 640.
func (c Contour) Bounds() image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: c[0], Max: c[0]}
	for _, p := range c[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	r.Max = r.Max.Add(image.Pt(1, 1))
	return r
}

// FindContours returns the outer contours of every region in the mask. Regions
// sitting inside a hole of another region are not reported.
func FindContours(m *BinaryMask) ([]Contour, error) {
	if m == nil || m.Width == 0 || m.Height == 0 {
		return nil, nil
	}
	return findExternalContours(m)
}

// Largest returns the contour with the biggest area; the earliest one wins ties.
func Largest(contours []Contour) (Contour, bool) {
	if len(contours) == 0 {
		return nil, false
	}
	best := 0
	for i := 1; i < len(contours); i++ {
		if contours[i].Area() > contours[best].Area() {
			best = i
		}
	}
	return contours[best], true
}
