//go:build gocv

package segment

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

func findExternalContours(m *BinaryMask) ([]Contour, error) {
	mat, err := gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8U, m.Pix)
	if err != nil {
		return nil, errors.Wrap(err, "mask to mat")
	}
	defer mat.Close()

	pv := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer pv.Close()

	contours := make([]Contour, 0, pv.Size())
	for i := 0; i < pv.Size(); i++ {
		contours = append(contours, Contour(pv.At(i).ToPoints()))
	}
	return contours, nil
}
