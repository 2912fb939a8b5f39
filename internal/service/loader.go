package service

import (
	"context"
	"encoding/csv"
	"errors"
	"feedbacklens/internal/model"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Columns names the input columns used for aggregation. Date is optional.
type Columns struct {
	Group    string
	Student  string
	Feedback string
	Date     string
}

// DefaultColumns are used for any column left empty
var DefaultColumns = Columns{Group: "group", Student: "student", Feedback: "feedback"}

func (c Columns) withDefaults() Columns {
	if c.Group == "" {
		c.Group = DefaultColumns.Group
	}
	if c.Student == "" {
		c.Student = DefaultColumns.Student
	}
	if c.Feedback == "" {
		c.Feedback = DefaultColumns.Feedback
	}
	return c
}

// MergeStrategy decides what happens when two aggregates share a group
type MergeStrategy int

const (
	// MergeDeep unions students and concatenates feedback in file order
	MergeDeep MergeStrategy = iota
	// MergeReplace lets the later group replace the earlier one wholesale
	MergeReplace
)

// Loader reads feedback files from the raw data directory
type Loader struct {
	rawDir   string
	enc      encoding.Encoding
	allowAbs bool
	logger   *zap.Logger
}

// NewLoader creates a loader for rawDir decoding files with the named encoding
func NewLoader(rawDir, encodingName string, logger *zap.Logger) (*Loader, error) {
	enc, err := htmlindex.Get(encodingName)
	if err != nil {
		return nil, fmt.Errorf("%w: csv encoding %q: %v", ErrConfiguration, encodingName, err)
	}
	abs, err := filepath.Abs(rawDir)
	if err != nil {
		return nil, fmt.Errorf("%w: raw data dir: %v", ErrConfiguration, err)
	}
	return &Loader{rawDir: abs, enc: enc, logger: logger}, nil
}

// SetAllowAbsolutePaths lets callers name files outside the raw data directory
func (l *Loader) SetAllowAbsolutePaths(allow bool) {
	l.allowAbs = allow
}

func (l *Loader) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty file name", ErrFileNotFound)
	}
	if filepath.IsAbs(name) {
		if !l.allowAbs {
			return "", fmt.Errorf("%w: %s: absolute paths are not allowed", ErrFileNotFound, name)
		}
		return filepath.Clean(name), nil
	}
	path := filepath.Join(l.rawDir, name)
	rel, err := filepath.Rel(l.rawDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the data directory", ErrFileNotFound, name)
	}
	return path, nil
}

// LoadCSV reads one CSV file into a table
func (l *Loader) LoadCSV(name string) (*model.Table, error) {
	path, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	table, err := readTable(name, transform.NewReader(f, unicode.BOMOverride(l.enc.NewDecoder())))
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loaded csv",
		zap.String("file", name),
		zap.Int("rows", len(table.Rows)),
	)
	return table, nil
}

func readTable(name string, r io.Reader) (*model.Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s: no header row", ErrParse, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := &model.Table{Name: name, Header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrParse, name, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// LoadMultiple loads each file concurrently. The first failure cancels the rest.
func (l *Loader) LoadMultiple(ctx context.Context, names []string) (map[string]*model.Table, error) {
	tables := make([]*model.Table, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := l.LoadCSV(name)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*model.Table, len(names))
	for i, name := range names {
		out[name] = tables[i]
	}
	return out, nil
}

// Aggregate groups rows by (group, student), keeping row order within each pair.
// Rows with an empty group or student are skipped.
func Aggregate(table *model.Table, cols Columns) (model.Aggregate, error) {
	cols = cols.withDefaults()

	required := []string{cols.Group, cols.Student, cols.Feedback}
	if cols.Date != "" {
		required = append(required, cols.Date)
	}
	var missing []string
	for _, col := range required {
		if !table.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Table: table.Name, Missing: missing}
	}

	agg := make(model.Aggregate)
	for _, row := range table.Rows {
		rec := model.FeedbackRecord{
			Group:    strings.TrimSpace(row[cols.Group]),
			Student:  strings.TrimSpace(row[cols.Student]),
			Feedback: row[cols.Feedback],
		}
		if rec.Group == "" || rec.Student == "" {
			continue
		}
		if cols.Date != "" {
			rec.Date = row[cols.Date]
		}
		agg.Add(rec, cols.Date != "")
	}
	return agg, nil
}

// Merge folds src into dst
func Merge(dst, src model.Aggregate, strategy MergeStrategy) {
	for groupName, group := range src {
		if strategy == MergeReplace {
			dst[groupName] = group
			continue
		}
		for studentName, rec := range group {
			target := dst.Student(groupName, studentName)
			target.Feedback = append(target.Feedback, rec.Feedback...)
			target.Dates = append(target.Dates, rec.Dates...)
		}
	}
}

// LoadAggregate loads every file and merges their aggregates in the given order
func (l *Loader) LoadAggregate(ctx context.Context, names []string, cols Columns, strategy MergeStrategy) (model.Aggregate, error) {
	tables, err := l.LoadMultiple(ctx, names)
	if err != nil {
		return nil, err
	}
	merged := make(model.Aggregate)
	for _, name := range names {
		agg, err := Aggregate(tables[name], cols)
		if err != nil {
			return nil, err
		}
		Merge(merged, agg, strategy)
	}
	return merged, nil
}

// ClassSummary totals the whole aggregate
func ClassSummary(agg model.Aggregate) model.ClassSummary {
	s := model.ClassSummary{TotalGroups: len(agg)}
	for _, group := range agg {
		s.TotalStudents += len(group)
		s.TotalFeedback += group.FeedbackCount()
	}
	s.AverageFeedbackPerStudent = average(s.TotalFeedback, s.TotalStudents)
	return s
}

// GroupSummary totals one group
func GroupSummary(agg model.Aggregate, groupName string) (model.GroupSummary, error) {
	group, ok := agg[groupName]
	if !ok {
		return model.GroupSummary{}, fmt.Errorf("group %s: %w", groupName, ErrNotFound)
	}
	s := model.GroupSummary{
		GroupName:     groupName,
		StudentCount:  len(group),
		FeedbackCount: group.FeedbackCount(),
	}
	s.AverageFeedbackPerStudent = average(s.FeedbackCount, s.StudentCount)
	return s, nil
}

// StudentData returns one student's feedback
func StudentData(agg model.Aggregate, groupName, studentName string) (model.StudentData, error) {
	group, ok := agg[groupName]
	if !ok {
		return model.StudentData{}, fmt.Errorf("group %s: %w", groupName, ErrNotFound)
	}
	rec, ok := group[studentName]
	if !ok {
		return model.StudentData{}, fmt.Errorf("student %s in group %s: %w", studentName, groupName, ErrNotFound)
	}
	feedback := make([]string, len(rec.Feedback))
	copy(feedback, rec.Feedback)
	var dates []string
	if len(rec.Dates) > 0 {
		dates = make([]string, len(rec.Dates))
		copy(dates, rec.Dates)
	}
	return model.StudentData{
		GroupName:     groupName,
		StudentName:   studentName,
		Feedback:      feedback,
		FeedbackCount: len(feedback),
		Dates:         dates,
	}, nil
}

func average(total, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}
