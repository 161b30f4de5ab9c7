// Package segment decodes single-instance segmentation output of a YOLO-style
// network into a binary mask and an annotated image.
package segment

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Engine runs the network on a preprocessed tensor.
type Engine interface {
	Infer(ctx context.Context, input *Tensor) (*RawOutput, error)
}

type Options struct {
	Threshold    float32
	Policy       SelectionPolicy
	StrictShapes bool
	Class        Class
	// InputSize is the square resolution fed to the engine.
	InputSize int
	// CoeffColumn is the first mask coefficient column of a detection row.
	CoeffColumn int
}

func DefaultOptions() Options {
	return Options{
		Threshold:   DefaultThreshold,
		Policy:      SelectFirst,
		Class:       ClassPothole,
		InputSize:   InputSize,
		CoeffColumn: DefaultCoeffColumn,
	}
}

// Pipeline is safe for concurrent use as long as its Engine is.
type Pipeline struct {
	engine Engine
	opts   Options
	vis    *Visualizer
	logger *zap.SugaredLogger
}

func NewPipeline(engine Engine, logger *zap.SugaredLogger, opts Options) *Pipeline {
	if opts.InputSize <= 0 {
		opts.InputSize = InputSize
	}
	if opts.CoeffColumn <= 0 {
		opts.CoeffColumn = DefaultCoeffColumn
	}
	return &Pipeline{
		engine: engine,
		opts:   opts,
		vis:    NewVisualizer(logger, opts.Threshold),
		logger: logger,
	}
}

// Run segments img. The returned result always carries the resized original;
// errors are reserved for invalid input, engine failures and malformed engine
// output.
func (p *Pipeline) Run(ctx context.Context, img image.Image) (*Result, error) {
	original, err := Resize(img, p.opts.InputSize)
	if err != nil {
		return nil, err
	}
	input, err := Preprocess(original, p.opts.InputSize)
	if err != nil {
		return nil, err
	}

	out, err := p.engine.Infer(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "inference")
	}
	dets, err := NewDetections(out.Detections, out.DetectionsShape)
	if err != nil {
		return nil, err
	}
	protos, err := NewPrototypes(out.Protos, out.ProtosShape)
	if err != nil {
		return nil, err
	}
	if p.opts.CoeffColumn <= confColumn || p.opts.CoeffColumn >= dets.Cols {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"coefficient column %d outside the %d-column detection rows", p.opts.CoeffColumn, dets.Cols)
	}

	none := &Result{
		Outcome:  OutcomeNoDetection,
		Original: original,
		Image:    original,
		Class:    p.opts.Class,
	}

	det, ok := Select(dets, p.opts.Threshold, p.opts.Policy, p.opts.CoeffColumn)
	if !ok {
		p.logger.Debugw("no detection above threshold", "threshold", p.opts.Threshold, "candidates", dets.Rows)
		return none, nil
	}
	if len(det.Coefficients) != protos.C && !p.opts.StrictShapes {
		p.logger.Debugw("mask coefficient count differs from prototype count, truncating",
			"coefficients", len(det.Coefficients), "prototypes", protos.C)
	}

	b := original.Bounds()
	mask, err := Decode(protos, det.Coefficients, b.Dy(), b.Dx(), p.opts.Threshold, p.opts.StrictShapes)
	if err != nil {
		return nil, err
	}

	res := p.vis.Visualize(original, mask, p.opts.Class, det.Confidence)
	res.Original = original
	p.logger.Debugw("segmentation done",
		"outcome", res.Outcome, "row", det.Index, "confidence", det.Confidence, "box", res.Box)
	return res, nil
}
