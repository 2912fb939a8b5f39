package main

import (
	"context"
	"encoding/json"
	"feedbacklens/internal/service"
	"os"

	"github.com/spf13/cobra"
)

// analysisFlags are shared by the analysis subcommands
type analysisFlags struct {
	files      []string
	groupCol   string
	studentCol string
	feedback   string
	dateCol    string
	group      string
	student    string
	framework  string
	reference  string
	explain    bool
}

var flags analysisFlags

var (
	classCmd = &cobra.Command{
		Use:   "class",
		Short: "Analyze the whole class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd.Context(), func(ctx context.Context, a *service.AnalyzerService) (any, error) {
				return a.AnalyzeClass(ctx, flags.request())
			})
		},
	}
	groupCmd = &cobra.Command{
		Use:   "group",
		Short: "Analyze one group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd.Context(), func(ctx context.Context, a *service.AnalyzerService) (any, error) {
				return a.AnalyzeGroup(ctx, flags.request(), flags.group)
			})
		},
	}
	studentCmd = &cobra.Command{
		Use:   "student",
		Short: "Analyze one student and evaluate their feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd.Context(), func(ctx context.Context, a *service.AnalyzerService) (any, error) {
				return a.AnalyzeStudent(ctx, flags.request(), flags.group, flags.student, flags.studentOptions())
			})
		},
	}
	compareCmd = &cobra.Command{
		Use:   "compare",
		Short: "Student analysis plus a comparison of its evaluation metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd.Context(), func(ctx context.Context, a *service.AnalyzerService) (any, error) {
				return a.Compare(ctx, flags.request(), flags.group, flags.student, flags.studentOptions())
			})
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{classCmd, groupCmd, studentCmd, compareCmd} {
		f := cmd.Flags()
		f.StringSliceVar(&flags.files, "files", nil, "input CSV files, relative to the raw data directory or absolute")
		f.StringVar(&flags.groupCol, "group-col", "group", "group column")
		f.StringVar(&flags.studentCol, "student-col", "student", "student column")
		f.StringVar(&flags.feedback, "feedback-col", "feedback", "feedback column")
		f.StringVar(&flags.dateCol, "date-col", "", "optional date column")
		cmd.MarkFlagRequired("files")
	}
	for _, cmd := range []*cobra.Command{groupCmd, studentCmd, compareCmd} {
		cmd.Flags().StringVar(&flags.group, "group", "", "group name")
		cmd.MarkFlagRequired("group")
	}
	for _, cmd := range []*cobra.Command{studentCmd, compareCmd} {
		f := cmd.Flags()
		f.StringVar(&flags.student, "student", "", "student name")
		f.StringVar(&flags.framework, "framework", "", "analysis framework (default: DEFAULT_FRAMEWORK)")
		f.StringVar(&flags.reference, "reference", "", "reference text for similarity")
		f.BoolVar(&flags.explain, "explain", false, "add word-level explanations")
		cmd.MarkFlagRequired("student")
	}
}

func (f analysisFlags) request() service.Request {
	return service.Request{
		Files: f.files,
		Columns: service.Columns{
			Group:    f.groupCol,
			Student:  f.studentCol,
			Feedback: f.feedback,
			Date:     f.dateCol,
		},
	}
}

func (f analysisFlags) studentOptions() service.StudentOptions {
	framework := f.framework
	if framework == "" {
		framework = current.cfg.DefaultFramework
	}
	return service.StudentOptions{Framework: framework, Reference: f.reference, Explain: f.explain}
}

func runAnalysis(ctx context.Context, fn func(context.Context, *service.AnalyzerService) (any, error)) error {
	analyzer, err := current.app.Pipeline.Analyzer(modelKey)
	if err != nil {
		return err
	}
	result, err := fn(ctx, analyzer)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
