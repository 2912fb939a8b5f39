// Package batch implements the offline summarize job: one LLM summary per
// student_id/feedback_text row.
package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"feedbacklens/internal/service"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
)

// FailedSummary is written for rows whose generation failed
const FailedSummary = "Error analyzing feedback"

// InputRow is one line of the summarize input file
type InputRow struct {
	StudentID    string `csv:"student_id"`
	FeedbackText string `csv:"feedback_text"`
}

// OutputRow is one line of the summarize output file
type OutputRow struct {
	StudentID       string `csv:"student_id"`
	FeedbackSummary string `csv:"feedback_summary"`
}

// Summarizer produces a free-text summary of one feedback text
type Summarizer interface {
	SummarizeFeedback(ctx context.Context, text string) (string, error)
}

var requiredColumns = []string{"student_id", "feedback_text"}

// ReadInput loads the input file. A missing column is a *service.SchemaError.
func ReadInput(path string) ([]InputRow, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", service.ErrFileNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", service.ErrParse, path, err)
	}
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, col := range requiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &service.SchemaError{Table: filepath.Base(path), Missing: missing}
	}

	var rows []InputRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", service.ErrParse, path, err)
	}
	return rows, nil
}

// Summarize runs every row through s in file order. A failed row gets
// FailedSummary and the run continues.
func Summarize(ctx context.Context, s Summarizer, rows []InputRow, logger *zap.Logger) ([]OutputRow, error) {
	out := make([]OutputRow, 0, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Info("summarizing feedback",
			zap.String("studentId", row.StudentID),
			zap.Int("row", i+1),
			zap.Int("total", len(rows)),
		)
		summary, err := s.SummarizeFeedback(ctx, row.FeedbackText)
		if err != nil {
			logger.Warn("summary failed", zap.String("studentId", row.StudentID), zap.Error(err))
			summary = FailedSummary
		}
		out = append(out, OutputRow{StudentID: row.StudentID, FeedbackSummary: summary})
	}
	return out, nil
}

// WriteOutput writes rows to path, creating its directory
func WriteOutput(path string, rows []OutputRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
