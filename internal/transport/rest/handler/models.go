package handler

import (
	"feedbacklens/internal/service"
	"net/http"
)

// ModelHandler lists the configured models
type ModelHandler struct {
	pipeline *service.Pipeline
}

// NewModelHandler creates a new model handler
func NewModelHandler(pipeline *service.Pipeline) *ModelHandler {
	return &ModelHandler{pipeline: pipeline}
}

// List handles GET /api/v1/models
func (h *ModelHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.AvailableModels())
}

// Health handles GET /api/v1/health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
