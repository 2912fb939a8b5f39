package main

import (
	"feedbacklens/internal/batch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	summarizeInput  string
	summarizeOutput string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize each student's feedback into a CSV",
	Long: `Reads a CSV with student_id and feedback_text columns and writes
one summary per row (student_id, feedback_summary).`,
	Args: cobra.NoArgs,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeInput, "input", "raw_data/feedback.csv", "input CSV")
	summarizeCmd.Flags().StringVar(&summarizeOutput, "output", "output/feedback_analysis.csv", "output CSV")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	logger := current.logger

	rows, err := batch.ReadInput(summarizeInput)
	if err != nil {
		return err
	}

	svc, err := current.app.Pipeline.Model(modelKey)
	if err != nil {
		return err
	}
	logger.Info("processing feedback", zap.Int("students", len(rows)), zap.String("model", svc.Key()))

	out, err := batch.Summarize(cmd.Context(), svc, rows, logger)
	if err != nil {
		return err
	}
	if err := batch.WriteOutput(summarizeOutput, out); err != nil {
		return err
	}
	logger.Info("analysis complete", zap.String("output", summarizeOutput))
	return nil
}
