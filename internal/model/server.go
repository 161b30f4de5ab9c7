package model

import (
	"context"
	"os"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Brownie44l1/pothole-api/internal/segment"
)

type Config struct {
	ModelPath         string
	MetadataPath      string
	SharedLibraryPath string
	PoolSize          int
	IntraOpThreads    int
}

// session is one ONNX Runtime session with its bound tensors. A session only
// ever runs one inference at a time.
type session struct {
	session    *ort.AdvancedSession
	input      *ort.Tensor[float32]
	detections *ort.Tensor[float32]
	protos     *ort.Tensor[float32]
}

func (s *session) destroy() error {
	var err error
	if s.session != nil {
		err = multierr.Append(err, s.session.Destroy())
	}
	for _, t := range []*ort.Tensor[float32]{s.input, s.detections, s.protos} {
		if t != nil {
			err = multierr.Append(err, t.Destroy())
		}
	}
	return err
}

// Server owns the loaded model. It is created once before serving and is safe
// for concurrent Infer calls: each call checks out one of the pooled sessions.
type Server struct {
	Metadata Metadata
	sessions chan *session
	all      []*session
	logger   *zap.SugaredLogger
}

func NewServer(cfg Config, logger *zap.SugaredLogger) (*Server, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model file %s", cfg.ModelPath)
	}
	metadata, err := LoadMetadata(cfg.MetadataPath)
	if err != nil {
		return nil, err
	}
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}

	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize ONNX environment")
	}

	s := &Server{
		Metadata: metadata,
		sessions: make(chan *session, cfg.PoolSize),
		logger:   logger,
	}
	for i := 0; i < cfg.PoolSize; i++ {
		sess, err := newSession(cfg, metadata)
		if err != nil {
			return nil, multierr.Append(errors.Wrapf(err, "session %d", i), s.Close())
		}
		s.all = append(s.all, sess)
		s.sessions <- sess
	}

	logger.Infow("model loaded",
		"path", cfg.ModelPath,
		"sessions", cfg.PoolSize,
		"input", metadata.InputShape,
		"detections", metadata.DetectionsShape,
		"protos", metadata.ProtosShape,
		"classes", metadata.Classes)
	return s, nil
}

func newSession(cfg Config, md Metadata) (*session, error) {
	s := &session{}
	var err error
	if s.input, err = ort.NewEmptyTensor[float32](ort.NewShape(md.InputShape...)); err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}
	if s.detections, err = ort.NewEmptyTensor[float32](ort.NewShape(md.DetectionsShape...)); err != nil {
		return nil, multierr.Append(errors.Wrap(err, "failed to create detections tensor"), s.destroy())
	}
	if s.protos, err = ort.NewEmptyTensor[float32](ort.NewShape(md.ProtosShape...)); err != nil {
		return nil, multierr.Append(errors.Wrap(err, "failed to create prototype tensor"), s.destroy())
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, multierr.Append(errors.Wrap(err, "failed to create session options"), s.destroy())
	}
	defer options.Destroy()
	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return nil, multierr.Append(errors.Wrap(err, "failed to set intra-op threads"), s.destroy())
		}
	}

	s.session, err = ort.NewAdvancedSession(cfg.ModelPath,
		[]string{md.InputName}, md.OutputNames,
		[]ort.ArbitraryTensor{s.input}, []ort.ArbitraryTensor{s.detections, s.protos},
		options)
	if err != nil {
		return nil, multierr.Append(errors.Wrap(err, "failed to create ONNX session"), s.destroy())
	}
	return s, nil
}

// Infer runs the network on input. It blocks until a session is free or ctx is
// done; a started inference always runs to completion.
func (s *Server) Infer(ctx context.Context, input *segment.Tensor) (*segment.RawOutput, error) {
	if err := checkShape(input.Shape[:], s.Metadata.InputShape); err != nil {
		return nil, err
	}
	if want := ort.NewShape(input.Shape[:]...).FlattenedSize(); int64(len(input.Data)) != want {
		return nil, errors.Wrapf(segment.ErrShapeMismatch, "input holds %d values, shape %v needs %d",
			len(input.Data), input.Shape, want)
	}

	var sess *session
	select {
	case sess = <-s.sessions:
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "waiting for inference session")
	}
	defer func() { s.sessions <- sess }()

	copy(sess.input.GetData(), input.Data)
	if err := sess.session.Run(); err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	return &segment.RawOutput{
		Detections:      append([]float32(nil), sess.detections.GetData()...),
		DetectionsShape: []int64(sess.detections.GetShape()),
		Protos:          append([]float32(nil), sess.protos.GetData()...),
		ProtosShape:     []int64(sess.protos.GetShape()),
	}, nil
}

func checkShape(got, want []int64) error {
	if len(got) != len(want) {
		return errors.Wrapf(segment.ErrShapeMismatch, "input shape %v, model expects %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			return errors.Wrapf(segment.ErrShapeMismatch, "input shape %v, model expects %v", got, want)
		}
	}
	return nil
}

// Close releases every session and the ONNX environment.
func (s *Server) Close() error {
	var err error
	for _, sess := range s.all {
		err = multierr.Append(err, sess.destroy())
	}
	s.all = nil
	if ort.IsInitialized() {
		err = multierr.Append(err, ort.DestroyEnvironment())
	}
	return err
}
