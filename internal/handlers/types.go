package handlers

// PredictionResponse is the body of a successful /predict call. When nothing
// is detected Status is "no_detection", PredictedLabels is empty and
// SegmentationImage holds the unannotated original.
type PredictionResponse struct {
	OriginalImage     string  `json:"original_image"`
	SegmentationImage string  `json:"segmentation_image"`
	PredictedLabels   string  `json:"predicted_labels"`
	Confidence        float32 `json:"confidence,omitempty"`
	Status            string  `json:"status"`
	Detail            string  `json:"detail,omitempty"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
