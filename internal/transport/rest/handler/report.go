package handler

import (
	"errors"
	"feedbacklens/internal/model"
	"feedbacklens/internal/service"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ReportHandler handles report endpoints
type ReportHandler struct {
	reportSvc *service.ReportService
}

// NewReportHandler creates a new report handler. A nil service means no report store.
func NewReportHandler(reportSvc *service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// List handles GET /api/v1/reports
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.reportSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "report store not configured")
		return
	}

	var limit int64
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	reports, err := h.reportSvc.List(r.Context(), model.ReportKind(r.URL.Query().Get("kind")), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, reports)
}

// Get handles GET /api/v1/reports/{id}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.reportSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "report store not configured")
		return
	}

	report, err := h.reportSvc.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}
