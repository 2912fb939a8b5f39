package handler

import (
	"context"
	"feedbacklens/internal/service"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// AnalysisHandler serves the class, group, student and comparison analyses
type AnalysisHandler struct {
	pipeline         *service.Pipeline
	defaultFramework string
	logger           *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(pipeline *service.Pipeline, defaultFramework string, logger *zap.Logger) *AnalysisHandler {
	if defaultFramework == "" {
		defaultFramework = service.DefaultFramework
	}
	return &AnalysisHandler{
		pipeline:         pipeline,
		defaultFramework: defaultFramework,
		logger:           logger,
	}
}

// ClassAnalysis handles GET /api/v1/class-analysis
func (h *AnalysisHandler) ClassAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, modelKey, err := parseRequest(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.run(w, r, modelKey, func(ctx context.Context, a *service.AnalyzerService) (any, error) {
		return a.AnalyzeClass(ctx, req)
	})
}

// GroupAnalysis handles GET /api/v1/group-analysis
func (h *AnalysisHandler) GroupAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, modelKey, err := parseRequest(q)
	if err == nil {
		err = requireParams(q, "group_name")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	group := q.Get("group_name")

	h.run(w, r, modelKey, func(ctx context.Context, a *service.AnalyzerService) (any, error) {
		return a.AnalyzeGroup(ctx, req, group)
	})
}

// StudentAnalysis handles GET /api/v1/student-analysis
func (h *AnalysisHandler) StudentAnalysis(w http.ResponseWriter, r *http.Request) {
	req, modelKey, group, student, opts, err := h.parseStudent(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.run(w, r, modelKey, func(ctx context.Context, a *service.AnalyzerService) (any, error) {
		return a.AnalyzeStudent(ctx, req, group, student, opts)
	})
}

// CompareFeedback handles GET /api/v1/compare-feedback
func (h *AnalysisHandler) CompareFeedback(w http.ResponseWriter, r *http.Request) {
	req, modelKey, group, student, opts, err := h.parseStudent(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.run(w, r, modelKey, func(ctx context.Context, a *service.AnalyzerService) (any, error) {
		return a.Compare(ctx, req, group, student, opts)
	})
}

// run builds the per-request analyzer and maps core failures to 500
func (h *AnalysisHandler) run(w http.ResponseWriter, r *http.Request, modelKey string, fn func(context.Context, *service.AnalyzerService) (any, error)) {
	analyzer, err := h.pipeline.Analyzer(modelKey)
	if err != nil {
		h.logger.Error("analyzer setup failed", zap.String("model", modelKey), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := fn(r.Context(), analyzer)
	if err != nil {
		h.logger.Error("analysis failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AnalysisHandler) parseStudent(q url.Values) (service.Request, string, string, string, service.StudentOptions, error) {
	var opts service.StudentOptions
	req, modelKey, err := parseRequest(q)
	if err == nil {
		err = requireParams(q, "group_name", "student_name")
	}
	if err != nil {
		return req, "", "", "", opts, err
	}

	opts.Framework = q.Get("framework")
	if opts.Framework == "" {
		opts.Framework = h.defaultFramework
	}
	opts.Reference = q.Get("reference_text")
	if v := q.Get("explain"); v != "" {
		opts.Explain, err = strconv.ParseBool(v)
		if err != nil {
			return req, "", "", "", opts, fmt.Errorf("invalid explain value %q", v)
		}
	}
	return req, modelKey, q.Get("group_name"), q.Get("student_name"), opts, nil
}

// parseRequest reads the parameters shared by every analysis route. Only files
// is required; an empty model_key selects the default model and empty column
// names fall back to group, student and feedback.
func parseRequest(q url.Values) (service.Request, string, error) {
	if err := requireParams(q, "files"); err != nil {
		return service.Request{}, "", err
	}
	return service.Request{
		Files: q["files"],
		Columns: service.Columns{
			Group:    q.Get("group_col"),
			Student:  q.Get("student_col"),
			Feedback: q.Get("feedback_col"),
			Date:     q.Get("date_col"),
		},
		ProgressID: q.Get("progress_id"),
	}, q.Get("model_key"), nil
}

func requireParams(q url.Values, names ...string) error {
	var missing []string
	for _, name := range names {
		if strings.TrimSpace(q.Get(name)) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required query parameter(s): %s", strings.Join(missing, ", "))
	}
	return nil
}
