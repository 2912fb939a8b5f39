package handler

import (
	"errors"
	"feedbacklens/internal/model"
	"feedbacklens/internal/transport/rest/middleware"
	"feedbacklens/internal/watch"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultMaxUploadBytes caps a single uploaded file
const DefaultMaxUploadBytes = 32 << 20

// DatasetIndex is the view of the raw data directory shared with the watcher
type DatasetIndex interface {
	List() []model.Dataset
	Put(ds model.Dataset)
}

// UploadHandler stores feedback files in the raw data directory
type UploadHandler struct {
	rawDir   string
	maxBytes int64
	index    DatasetIndex
	logger   *zap.Logger
}

// NewUploadHandler creates a new upload handler. index may be nil.
func NewUploadHandler(rawDir string, index DatasetIndex, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		rawDir:   rawDir,
		maxBytes: DefaultMaxUploadBytes,
		index:    index,
		logger:   logger,
	}
}

// Upload handles POST /upload
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing multipart field \"file\"")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) || !strings.EqualFold(filepath.Ext(name), ".csv") {
		writeError(w, http.StatusBadRequest, "only .csv files can be uploaded")
		return
	}

	overwrite := false
	if v := r.FormValue("overwrite"); v != "" {
		if overwrite, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid overwrite value %q", v))
			return
		}
	}

	path := filepath.Join(h.rawDir, name)
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	dst, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, os.ErrExist) {
		writeError(w, http.StatusConflict, fmt.Sprintf("file %s already exists", name))
		return
	}
	if err != nil {
		h.logger.Error("failed to create upload", zap.String("file", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := dst.Close(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.index != nil {
		if ds, ok := watch.Stat(path); ok {
			h.index.Put(ds)
		}
	}
	h.logger.Info("dataset uploaded",
		zap.String("file", name),
		zap.Bool("overwrite", overwrite),
		zap.String("hostId", middleware.GetHostID(r.Context())),
	)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Datasets handles GET /api/v1/datasets
func (h *UploadHandler) Datasets(w http.ResponseWriter, r *http.Request) {
	if h.index == nil {
		writeJSON(w, http.StatusOK, []model.Dataset{})
		return
	}
	writeJSON(w, http.StatusOK, h.index.List())
}
