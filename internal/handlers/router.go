package handlers

import (
	"net/http"

	"github.com/rs/cors"
	"go.uber.org/zap"
	"goji.io"
	"goji.io/pat"
)

// NewRouter wires the endpoints behind request logging and CORS.
func NewRouter(h *Handler, allowedOrigins []string, logger *zap.SugaredLogger) http.Handler {
	mux := goji.NewMux()
	mux.Use(requestLogger(logger))
	mux.HandleFunc(pat.Get("/health"), h.Health)
	mux.HandleFunc(pat.Post("/predict"), h.Predict)

	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(mux)
}
