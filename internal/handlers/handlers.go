package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"slices"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Brownie44l1/pothole-api/internal/segment"
)

const (
	uploadField   = "file"
	formOverhead  = 1 << 20
	formMaxMemory = 32 << 20
	noDetections  = "No potholes detected"
)

// Segmenter runs the segmentation pipeline on a decoded image.
type Segmenter interface {
	Run(ctx context.Context, img image.Image) (*segment.Result, error)
}

type Limits struct {
	AllowedContentTypes []string
	MaxUploadSize       int64
}

type Handler struct {
	segmenter Segmenter
	limits    Limits
	logger    *zap.SugaredLogger
}

func NewHandler(segmenter Segmenter, limits Limits, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		segmenter: segmenter,
		limits:    limits,
		logger:    logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Predict accepts a multipart upload in the "file" field and answers with the
// resized original and the segmentation overlay as PNG data URIs.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxUploadSize+formOverhead)
	if err := r.ParseMultipartForm(formMaxMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.tooLarge(w)
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided. Use 'file' as the form field name")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	h.logger.Infow("received file", "name", header.Filename, "content_type", contentType, "size", header.Size)

	if !slices.Contains(h.limits.AllowedContentTypes, contentType) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Unsupported file type. Allowed: %v", h.limits.AllowedContentTypes))
		return
	}
	if header.Size > h.limits.MaxUploadSize {
		h.tooLarge(w)
		return
	}

	img, format, err := image.Decode(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid image file")
		return
	}
	h.logger.Debugw("decoded image", "format", format, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	res, err := h.segmenter.Run(r.Context(), img)
	if errors.Is(err, segment.ErrInvalidImage) {
		writeError(w, http.StatusBadRequest, "Invalid image file")
		return
	}
	if err != nil {
		h.logger.Errorw("prediction error", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing image: %v", err))
		return
	}

	resp, err := newPredictionResponse(res)
	if err != nil {
		h.logger.Errorw("response encoding error", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing image: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func newPredictionResponse(res *segment.Result) (*PredictionResponse, error) {
	original, err := encodeDataURI(res.Original)
	if err != nil {
		return nil, err
	}
	annotated, err := encodeDataURI(res.Image)
	if err != nil {
		return nil, err
	}

	resp := &PredictionResponse{
		OriginalImage:     original,
		SegmentationImage: annotated,
		PredictedLabels:   res.Class.String(),
		Confidence:        res.Confidence,
		Status:            res.Outcome.String(),
	}
	if res.Outcome == segment.OutcomeNoDetection {
		resp.PredictedLabels = ""
		resp.Detail = noDetections
	}
	return resp, nil
}

func (h *Handler) tooLarge(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, fmt.Sprintf("File too large. Max size: %d bytes", h.limits.MaxUploadSize))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
