package service

import (
	"context"
	"encoding/json"
	"feedbacklens/internal/model"
	"feedbacklens/internal/repository"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultReportLimit caps report listings when the caller gives no limit
const DefaultReportLimit = 50

// ReportService persists finished analyses and reads them back
type ReportService struct {
	reportRepo repository.ReportRepo
	now        func() time.Time
}

// NewReportService creates a new report service
func NewReportService(reportRepo repository.ReportRepo) *ReportService {
	return &ReportService{
		reportRepo: reportRepo,
		now:        time.Now,
	}
}

// Save stores result under a fresh report id
func (s *ReportService) Save(ctx context.Context, kind model.ReportKind, modelKey string, files []string, params map[string]string, result any) (*model.Report, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	report := &model.Report{
		ID:         "rpt_" + uuid.New().String(),
		Kind:       kind,
		ModelKey:   modelKey,
		Files:      append([]string(nil), files...),
		Params:     params,
		Result:     data,
		CreatedAt:  s.now().UTC(),
		ResultJSON: string(data),
	}
	if err := s.reportRepo.Save(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Get returns a report by id, or ErrNotFound
func (s *ReportService) Get(ctx context.Context, id string) (*model.Report, error) {
	report, err := s.reportRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if report.Result == nil && report.ResultJSON != "" {
		report.Result = json.RawMessage(report.ResultJSON)
	}
	return report, nil
}

// List returns report summaries, newest first
func (s *ReportService) List(ctx context.Context, kind model.ReportKind, limit int64) ([]model.ReportSummary, error) {
	if limit <= 0 {
		limit = DefaultReportLimit
	}
	return s.reportRepo.List(ctx, kind, limit)
}
