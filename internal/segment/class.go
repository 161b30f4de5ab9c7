package segment

import (
	"image/color"
	"strings"

	"github.com/pkg/errors"
)

// BGR is a color triple in blue, green, red order.
type BGR [3]uint8

// RGBA converts the triple to an opaque color for drawing.
func (c BGR) RGBA() color.RGBA {
	return color.RGBA{R: c[2], G: c[1], B: c[0], A: 255}
}

// Class is the closed set of labels the model can produce.
type Class int

const (
	ClassPothole Class = iota
)

func (c Class) String() string {
	switch c {
	case ClassPothole:
		return "Pothole"
	default:
		return "Unknown"
	}
}

// ParseClass maps a label name, as listed in the model metadata, to its Class.
func ParseClass(name string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pothole":
		return ClassPothole, nil
	default:
		return 0, errors.Errorf("unknown class %q", name)
	}
}

// Color is the overlay color for the class.
func (c Class) Color() BGR {
	switch c {
	case ClassPothole:
		return BGR{19, 19, 220} // crimson
	default:
		return BGR{255, 255, 255}
	}
}
