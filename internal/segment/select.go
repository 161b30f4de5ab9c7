package segment

import (
	"strings"

	"github.com/pkg/errors"
)

// SelectionPolicy decides which passing row becomes the visualized instance.
type SelectionPolicy int

const (
	// SelectFirst takes the first row above the threshold in array order.
	SelectFirst SelectionPolicy = iota
	// SelectBest takes the row with the highest confidence. Ties keep the earlier row.
	SelectBest
)

func (p SelectionPolicy) String() string {
	if p == SelectBest {
		return "best"
	}
	return "first"
}

// ParseSelectionPolicy maps "first" or "best" to a policy.
func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return SelectFirst, nil
	case "best":
		return SelectBest, nil
	default:
		return SelectFirst, errors.Errorf("unknown selection policy %q", s)
	}
}

// Select picks one detection whose confidence is strictly above threshold and
// copies its mask coefficients from coeffColumn to the end of the row.
// ok is false when no row qualifies.
func Select(d *Detections, threshold float32, policy SelectionPolicy, coeffColumn int) (det Detection, ok bool) {
	best := -1
	for i := 0; i < d.Rows; i++ {
		conf := d.Data[i*d.Cols+confColumn]
		if !(conf > threshold) {
			continue
		}
		if best < 0 || conf > d.Data[best*d.Cols+confColumn] {
			best = i
		}
		if policy == SelectFirst {
			break
		}
	}
	if best < 0 {
		return Detection{}, false
	}

	row := d.Row(best)
	start := min(max(coeffColumn, confColumn+1), len(row))
	coeffs := make([]float32, len(row)-start)
	copy(coeffs, row[start:])
	return Detection{
		Index:        best,
		Confidence:   row[confColumn],
		Coefficients: coeffs,
	}, true
}
