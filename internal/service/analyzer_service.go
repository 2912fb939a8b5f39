package service

import (
	"context"
	"feedbacklens/internal/model"
	"fmt"

	"go.uber.org/zap"
)

// DefaultFramework is the rubric used when a student analysis names none
const DefaultFramework = "ICAP"

// Request selects the input files and columns of one analysis
type Request struct {
	Files   []string
	Columns Columns
	// ProgressID routes progress events to websocket subscribers; empty disables them
	ProgressID string
}

// StudentOptions tune student-level analysis
type StudentOptions struct {
	Framework string
	// Reference enables the similarity metric for every feedback item
	Reference string
	// Explain enables the lexicon classifier explanations, using the class's
	// feedback as the attribution background
	Explain bool
}

// AnalyzerService runs the load, summarize, analyze and evaluate pipeline
type AnalyzerService struct {
	loader      *Loader
	model       *ModelService
	evaluator   *EvaluatorService
	merge       MergeStrategy
	broadcaster Broadcaster
	reports     *ReportService
	logger      *zap.Logger
}

// NewAnalyzerService creates an analyzer over its three collaborators
func NewAnalyzerService(loader *Loader, modelSvc *ModelService, evaluator *EvaluatorService, logger *zap.Logger) *AnalyzerService {
	return &AnalyzerService{
		loader:    loader,
		model:     modelSvc,
		evaluator: evaluator,
		merge:     MergeDeep,
		logger:    logger,
	}
}

// SetBroadcaster enables progress events
func (s *AnalyzerService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetReportService enables persistence of finished analyses
func (s *AnalyzerService) SetReportService(r *ReportService) {
	s.reports = r
}

// SetMergeStrategy changes how aggregates from several files combine
func (s *AnalyzerService) SetMergeStrategy(m MergeStrategy) {
	s.merge = m
}

// AnalyzeClass summarizes and analyzes every group
func (s *AnalyzerService) AnalyzeClass(ctx context.Context, req Request) (*model.ClassAnalysis, error) {
	p := s.progress(req.ProgressID, 3)
	agg, err := s.load(ctx, req, p)
	if err != nil {
		return nil, p.fail(err)
	}

	p.step("statistics", "")
	stats := ClassSummary(agg)

	p.step("analyzing", s.model.Key())
	analysis, err := s.model.AnalyzeClass(ctx, agg)
	if err != nil {
		return nil, p.fail(err)
	}

	result := &model.ClassAnalysis{
		Statistics:  stats,
		LLMAnalysis: analysis,
		ModelUsed:   s.model.Name(),
	}
	s.persist(ctx, model.ReportClass, req, nil, result)
	p.done()
	return result, nil
}

// AnalyzeGroup summarizes and analyzes one group
func (s *AnalyzerService) AnalyzeGroup(ctx context.Context, req Request, groupName string) (*model.GroupAnalysis, error) {
	p := s.progress(req.ProgressID, 3)
	agg, err := s.load(ctx, req, p)
	if err != nil {
		return nil, p.fail(err)
	}

	p.step("statistics", groupName)
	stats, err := GroupSummary(agg, groupName)
	if err != nil {
		return nil, p.fail(err)
	}

	p.step("analyzing", s.model.Key())
	analysis, err := s.model.AnalyzeGroup(ctx, agg[groupName])
	if err != nil {
		return nil, p.fail(err)
	}

	result := &model.GroupAnalysis{
		Statistics:  stats,
		LLMAnalysis: analysis,
		ModelUsed:   s.model.Name(),
	}
	s.persist(ctx, model.ReportGroup, req, map[string]string{"group_name": groupName}, result)
	p.done()
	return result, nil
}

// AnalyzeStudent analyzes one student and evaluates each of their feedback items
func (s *AnalyzerService) AnalyzeStudent(ctx context.Context, req Request, groupName, studentName string, opts StudentOptions) (*model.StudentAnalysis, error) {
	p := s.progress(req.ProgressID, 4)
	result, err := s.analyzeStudent(ctx, req, groupName, studentName, opts, p)
	if err != nil {
		return nil, err
	}
	s.persist(ctx, model.ReportStudent, req, studentParams(groupName, studentName, opts), result)
	p.done()
	return result, nil
}

// Compare analyzes one student and lines up the evaluation of their feedback
func (s *AnalyzerService) Compare(ctx context.Context, req Request, groupName, studentName string, opts StudentOptions) (*model.Comparison, error) {
	p := s.progress(req.ProgressID, 5)
	analysis, err := s.analyzeStudent(ctx, req, groupName, studentName, opts, p)
	if err != nil {
		return nil, err
	}

	p.step("comparing", "")
	result := &model.Comparison{
		StudentAnalysis: analysis,
		Comparison:      s.evaluator.Compare(analysis.EvaluationResults),
		ModelUsed:       s.model.Name(),
	}
	s.persist(ctx, model.ReportCompare, req, studentParams(groupName, studentName, opts), result)
	p.done()
	return result, nil
}

func (s *AnalyzerService) analyzeStudent(ctx context.Context, req Request, groupName, studentName string, opts StudentOptions, p *progress) (*model.StudentAnalysis, error) {
	if opts.Framework == "" {
		opts.Framework = DefaultFramework
	}

	agg, err := s.load(ctx, req, p)
	if err != nil {
		return nil, p.fail(err)
	}

	p.step("statistics", studentName)
	data, err := StudentData(agg, groupName, studentName)
	if err != nil {
		return nil, p.fail(err)
	}

	p.step("analyzing", s.model.Key())
	analysis, err := s.model.AnalyzeStudent(ctx, data, opts.Framework)
	if err != nil {
		return nil, p.fail(err)
	}

	in := EvaluateInput{Reference: opts.Reference}
	if opts.Explain {
		in.Model = NewLexiconClassifier()
		in.Background = corpus(agg)
	}

	evaluations := make([]model.EvaluationBundle, 0, len(data.Feedback))
	p.step("evaluating", fmt.Sprintf("0/%d", len(data.Feedback)))
	for i, text := range data.Feedback {
		evaluations = append(evaluations, s.evaluator.Evaluate(ctx, text, in))
		if err := ctx.Err(); err != nil {
			return nil, p.fail(err)
		}
		p.update(fmt.Sprintf("%d/%d", i+1, len(data.Feedback)))
	}

	return &model.StudentAnalysis{
		StudentData:       data,
		LLMAnalysis:       analysis,
		EvaluationResults: evaluations,
		ModelUsed:         s.model.Name(),
	}, nil
}

func (s *AnalyzerService) load(ctx context.Context, req Request, p *progress) (model.Aggregate, error) {
	p.step("loading", fmt.Sprintf("%d files", len(req.Files)))
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: no input files", ErrFileNotFound)
	}
	return s.loader.LoadAggregate(ctx, req.Files, req.Columns, s.merge)
}

// persist stores the result when a report store is configured. Failures are logged only.
func (s *AnalyzerService) persist(ctx context.Context, kind model.ReportKind, req Request, params map[string]string, result any) {
	if s.reports == nil {
		return
	}
	report, err := s.reports.Save(ctx, kind, s.model.Key(), req.Files, params, result)
	if err != nil {
		s.logger.Error("failed to save report", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	s.logger.Info("report saved", zap.String("id", report.ID), zap.String("kind", string(kind)))
}

func studentParams(groupName, studentName string, opts StudentOptions) map[string]string {
	params := map[string]string{
		"group_name":   groupName,
		"student_name": studentName,
		"framework":    opts.Framework,
	}
	if params["framework"] == "" {
		params["framework"] = DefaultFramework
	}
	if opts.Explain {
		params["explain"] = "true"
	}
	return params
}

func corpus(agg model.Aggregate) []string {
	var out []string
	for _, group := range agg {
		for _, rec := range group {
			out = append(out, rec.Feedback...)
		}
	}
	return out
}

// progress numbers the stages of one run and forwards them to the broadcaster
type progress struct {
	b     Broadcaster
	id    string
	total int
	n     int
	stage string
}

func (s *AnalyzerService) progress(id string, total int) *progress {
	if s.broadcaster == nil || id == "" {
		return &progress{}
	}
	return &progress{b: s.broadcaster, id: id, total: total}
}

func (p *progress) step(stage, detail string) {
	if p.b == nil {
		return
	}
	p.n++
	p.stage = stage
	p.b.BroadcastProgress(model.ProgressEvent{
		ProgressID: p.id, Stage: stage, Detail: detail, Step: p.n, Total: p.total,
	})
}

// update resends the current stage with a new detail
func (p *progress) update(detail string) {
	if p.b == nil {
		return
	}
	p.b.BroadcastProgress(model.ProgressEvent{
		ProgressID: p.id, Stage: p.stage, Detail: detail, Step: p.n, Total: p.total,
	})
}

func (p *progress) done() {
	if p.b == nil {
		return
	}
	p.b.BroadcastProgress(model.ProgressEvent{ProgressID: p.id, Stage: "done", Step: p.total, Total: p.total})
}

func (p *progress) fail(err error) error {
	if p.b != nil {
		p.b.BroadcastProgress(model.ProgressEvent{ProgressID: p.id, Stage: "failed", Detail: err.Error(), Step: p.n, Total: p.total})
	}
	return err
}
