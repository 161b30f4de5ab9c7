package segment

import (
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const (
	// InputSize is the spatial resolution the exported network consumes.
	InputSize = 640
	// DefaultThreshold gates selection, mask binarization and the box/label overlay.
	DefaultThreshold = 0.5

	// ConfidenceColumn holds the class score of a detection row, right after
	// the four box values.
	ConfidenceColumn = 4
	// DefaultCoeffColumn is the first mask coefficient column. Column 5 is
	// skipped, so a 37-column row carries 31 coefficients for 32 prototypes.
	DefaultCoeffColumn = 6

	confColumn = ConfidenceColumn
)

var (
	ErrInvalidImage  = errors.New("invalid image")
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Tensor is the preprocessed network input, laid out as (1, 3, H, W).
type Tensor struct {
	Shape [4]int64
	Data  []float32
}

// RawOutput holds the two raw arrays returned by the network.
type RawOutput struct {
	Detections      []float32
	DetectionsShape []int64
	Protos          []float32
	ProtosShape     []int64
}

// Detections is the detection output transposed to one row per candidate box.
// Each row holds box geometry, the class score and the mask coefficients.
type Detections struct {
	Rows int
	Cols int
	Data []float32
}

// NewDetections validates a raw (1, attrs, candidates) output and transposes it
// into (candidates, attrs).
func NewDetections(data []float32, shape []int64) (*Detections, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "detections: expected (1, attrs, candidates), got %v", shape)
	}
	attrs, candidates := int(shape[1]), int(shape[2])
	if attrs <= confColumn || candidates <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "detections: too few attributes or candidates in %v", shape)
	}
	if len(data) != attrs*candidates {
		return nil, errors.Wrapf(ErrShapeMismatch, "detections: %d values do not fill shape %v", len(data), shape)
	}

	backing := make([]float32, len(data))
	copy(backing, data)
	t := tensor.New(tensor.WithShape(attrs, candidates), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		return nil, errors.Wrap(err, "detections: transpose")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "detections: transpose")
	}
	rows, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("detections: unexpected backing type %T", t.Data())
	}

	return &Detections{Rows: candidates, Cols: attrs, Data: rows}, nil
}

// Row returns the attributes of candidate i.
func (d *Detections) Row(i int) []float32 {
	return d.Data[i*d.Cols : (i+1)*d.Cols]
}

// Prototypes are the shared basis masks, C planes of H×W.
type Prototypes struct {
	C, H, W int
	Data    []float32
}

// NewPrototypes validates a raw (1, C, H, W) prototype output.
func NewPrototypes(data []float32, shape []int64) (*Prototypes, error) {
	if len(shape) != 4 || shape[0] != 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "prototypes: expected (1, C, H, W), got %v", shape)
	}
	c, h, w := int(shape[1]), int(shape[2]), int(shape[3])
	if c <= 0 || h <= 0 || w <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "prototypes: empty dimension in %v", shape)
	}
	if len(data) != c*h*w {
		return nil, errors.Wrapf(ErrShapeMismatch, "prototypes: %d values do not fill shape %v", len(data), shape)
	}
	return &Prototypes{C: c, H: h, W: w, Data: data}, nil
}

// Plane returns prototype channel c.
func (p *Prototypes) Plane(c int) []float32 {
	n := p.H * p.W
	return p.Data[c*n : (c+1)*n]
}

// Detection is the instance picked for visualization.
type Detection struct {
	Index        int
	Confidence   float32
	Coefficients []float32
}

// BinaryMask holds one 0/1 sample per pixel, row-major.
type BinaryMask struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewBinaryMask(width, height int) *BinaryMask {
	return &BinaryMask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

func (m *BinaryMask) At(x, y int) uint8 {
	return m.Pix[y*m.Width+x]
}

func (m *BinaryMask) Set(x, y int, v uint8) {
	m.Pix[y*m.Width+x] = v
}

// Count returns the number of set pixels.
func (m *BinaryMask) Count() int {
	n := 0
	for _, v := range m.Pix {
		n += int(v)
	}
	return n
}

// Outcome distinguishes the ways a request can finish without an error.
type Outcome int

const (
	OutcomeAnnotated Outcome = iota
	OutcomeAnnotationFailed
	OutcomeNoDetection
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnnotated:
		return "annotated"
	case OutcomeAnnotationFailed:
		return "annotation_failed"
	case OutcomeNoDetection:
		return "no_detection"
	default:
		return "unknown"
	}
}

// Result is the product of one pipeline run.
type Result struct {
	Outcome    Outcome
	Original   image.Image
	Image      image.Image
	Class      Class
	Confidence float32
	Box        image.Rectangle
	Mask       *BinaryMask
}
