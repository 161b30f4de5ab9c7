//go:build !gocv

package segment

import "image"

// 8-neighborhood; index order runs clockwise on screen (y grows downward).
var neighbors = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

var cross = [4]image.Point{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

func findExternalContours(m *BinaryMask) ([]Contour, error) {
	w, h := m.Width, m.Height
	outside := outerBackground(m)
	labels := make([]int32, w*h)

	var contours []Contour
	var next int32
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if m.Pix[i] == 0 || labels[i] != 0 {
				continue
			}
			next++
			if labelRegion(m, labels, outside, image.Pt(x, y), next) {
				contours = append(contours, traceBorder(labels, w, h, image.Pt(x, y), next))
			}
		}
	}
	return contours, nil
}

// outerBackground marks the zero pixels 4-connected to the image edge.
func outerBackground(m *BinaryMask) []bool {
	w, h := m.Width, m.Height
	seen := make([]bool, w*h)
	var queue []image.Point
	push := func(p image.Point) {
		i := p.Y*w + p.X
		if m.Pix[i] == 0 && !seen[i] {
			seen[i] = true
			queue = append(queue, p)
		}
	}
	for x := 0; x < w; x++ {
		push(image.Pt(x, 0))
		push(image.Pt(x, h-1))
	}
	for y := 0; y < h; y++ {
		push(image.Pt(0, y))
		push(image.Pt(w-1, y))
	}
	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for _, d := range cross {
			q := p.Add(d)
			if q.X >= 0 && q.Y >= 0 && q.X < w && q.Y < h {
				push(q)
			}
		}
	}
	return seen
}

// labelRegion floods the 8-connected region containing start with lbl and
// reports whether the region borders the outer background.
func labelRegion(m *BinaryMask, labels []int32, outside []bool, start image.Point, lbl int32) bool {
	w, h := m.Width, m.Height
	external := false
	labels[start.Y*w+start.X] = lbl
	queue := []image.Point{start}
	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if p.X == 0 || p.Y == 0 || p.X == w-1 || p.Y == h-1 {
			external = true
		}
		for _, d := range neighbors {
			q := p.Add(d)
			if q.X < 0 || q.Y < 0 || q.X >= w || q.Y >= h {
				continue
			}
			i := q.Y*w + q.X
			if m.Pix[i] == 0 {
				if outside[i] && (d.X == 0 || d.Y == 0) {
					external = true
				}
				continue
			}
			if labels[i] == 0 {
				labels[i] = lbl
				queue = append(queue, q)
			}
		}
	}
	return external
}

// traceBorder follows the outer border of region lbl (Suzuki–Abe border
// following). start must be the first pixel of the region in raster order.
func traceBorder(labels []int32, w, h int, start image.Point, lbl int32) Contour {
	on := func(p image.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && labels[p.Y*w+p.X] == lbl
	}

	// clockwise from the west neighbor, which is background for a raster-first pixel
	first := -1
	for k := 0; k < 8; k++ {
		if d := (4 + k) % 8; on(start.Add(neighbors[d])) {
			first = d
			break
		}
	}
	if first < 0 {
		return Contour{start}
	}

	p1 := start.Add(neighbors[first])
	prev, cur := p1, start
	var contour Contour
	for {
		back := direction(cur, prev)
		nxt := prev
		for k := 1; k < 8; k++ {
			if q := cur.Add(neighbors[(back-k+8)%8]); on(q) {
				nxt = q
				break
			}
		}
		contour = append(contour, cur)
		if nxt == start && cur == p1 {
			return contour
		}
		prev, cur = cur, nxt
	}
}

func direction(from, to image.Point) int {
	d := to.Sub(from)
	for i, n := range neighbors {
		if n == d {
			return i
		}
	}
	return 0
}
