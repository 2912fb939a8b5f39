// Command seed writes a small demo dataset into the raw data directory.
package main

import (
	"errors"
	"feedbacklens/internal/batch"
	"feedbacklens/internal/config"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
)

type feedbackRow struct {
	Group    string `csv:"group"`
	Student  string `csv:"student"`
	Feedback string `csv:"feedback"`
	Date     string `csv:"date"`
}

var demo = []feedbackRow{
	{"A", "alice", "Clear structure and well organized slides, but the conclusion was rushed.", "2024-03-04"},
	{"A", "alice", "Strong research; cite sources more consistently.", "2024-03-18"},
	{"A", "ben", "Engaged in every meeting and helped teammates debug the prototype.", "2024-03-04"},
	{"A", "ben", "Report was late and missing the evaluation section.", "2024-03-18"},
	{"B", "chen", "Insightful analysis of the survey data. Charts were confusing.", "2024-03-04"},
	{"B", "dana", "Needs to participate more; contributions were vague.", "2024-03-04"},
	{"B", "dana", "Much improved: detailed, thorough write-up of the testing plan.", "2024-03-18"},
}

func main() {
	overwrite := flag.Bool("overwrite", false, "replace existing demo files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.EnsureDirs(); err != nil {
		logger.Fatal("failed to create data directories", zap.Error(err))
	}

	classFile := filepath.Join(cfg.RawDataDir, "demo_feedback.csv")
	if err := seedFile(logger, classFile, &demo, *overwrite); err != nil {
		logger.Fatal("failed to write demo dataset", zap.String("file", classFile), zap.Error(err))
	}

	// input for `batch summarize`
	summaryRows := make([]batch.InputRow, 0, len(demo))
	for _, r := range demo {
		summaryRows = append(summaryRows, batch.InputRow{StudentID: r.Student, FeedbackText: r.Feedback})
	}
	summaryFile := filepath.Join("raw_data", "feedback.csv")
	if err := os.MkdirAll(filepath.Dir(summaryFile), 0o755); err != nil {
		logger.Fatal("failed to create raw_data", zap.Error(err))
	}
	if err := seedFile(logger, summaryFile, &summaryRows, *overwrite); err != nil {
		logger.Fatal("failed to write summarize input", zap.String("file", summaryFile), zap.Error(err))
	}
}

// seedFile writes rows to path. An existing file is kept unless overwrite is set.
func seedFile(logger *zap.Logger, path string, rows any, overwrite bool) error {
	err := writeCSV(path, rows, overwrite)
	if errors.Is(err, os.ErrExist) {
		logger.Info("file exists, keeping it", zap.String("file", path))
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("file written", zap.String("file", path))
	return nil
}

func writeCSV(path string, rows any, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(rows, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
