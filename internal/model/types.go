package model

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Metadata describes the tensors the exported network binds.
type Metadata struct {
	InputName       string   `json:"input_name"`
	OutputNames     []string `json:"output_names"`
	InputShape      []int64  `json:"input_shape"`
	DetectionsShape []int64  `json:"detections_shape"`
	ProtosShape     []int64  `json:"protos_shape"`
	Classes         []string `json:"classes"`
	ImageSize       int      `json:"image_size"`
}

// DefaultMetadata matches a single-class YOLOv8-seg export at 640x640.
func DefaultMetadata() Metadata {
	return Metadata{
		InputName:       "images",
		OutputNames:     []string{"output0", "output1"},
		InputShape:      []int64{1, 3, 640, 640},
		DetectionsShape: []int64{1, 37, 8400},
		ProtosShape:     []int64{1, 32, 160, 160},
		Classes:         []string{"Pothole"},
		ImageSize:       640,
	}
}

// LoadMetadata overlays the JSON file at path on the defaults. An empty path
// returns the defaults.
func LoadMetadata(path string) (Metadata, error) {
	md := DefaultMetadata()
	if path == "" {
		return md, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return md, errors.Wrap(err, "failed to read metadata")
	}
	if err := json.Unmarshal(raw, &md); err != nil {
		return md, errors.Wrap(err, "failed to parse metadata")
	}
	return md, md.validate()
}

func (m Metadata) validate() error {
	switch {
	case m.InputName == "":
		return errors.New("metadata: input_name is empty")
	case len(m.OutputNames) != 2:
		return errors.Errorf("metadata: expected 2 output names, got %d", len(m.OutputNames))
	case len(m.InputShape) != 4:
		return errors.Errorf("metadata: input_shape must have 4 dims, got %v", m.InputShape)
	case len(m.DetectionsShape) != 3:
		return errors.Errorf("metadata: detections_shape must have 3 dims, got %v", m.DetectionsShape)
	case len(m.ProtosShape) != 4:
		return errors.Errorf("metadata: protos_shape must have 4 dims, got %v", m.ProtosShape)
	case m.ImageSize <= 0:
		return errors.Errorf("metadata: image_size must be positive, got %d", m.ImageSize)
	case m.InputShape[2] != int64(m.ImageSize) || m.InputShape[3] != int64(m.ImageSize):
		return errors.Errorf("metadata: input_shape %v does not match image_size %d", m.InputShape, m.ImageSize)
	case len(m.Classes) == 0:
		return errors.New("metadata: classes is empty")
	}
	return nil
}
