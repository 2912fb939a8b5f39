package model

import (
	"bytes"
	"encoding/json"
)

// FeedbackRecord is one input row
type FeedbackRecord struct {
	Group    string `json:"group"`
	Student  string `json:"student"`
	Feedback string `json:"feedback"`
	Date     string `json:"date,omitempty"`
}

// Table is a CSV file read into rows keyed by header
type Table struct {
	Name   string              `json:"name"`
	Header []string            `json:"header"`
	Rows   []map[string]string `json:"rows"`
}

// HasColumn reports whether the table header contains col
func (t *Table) HasColumn(col string) bool {
	for _, h := range t.Header {
		if h == col {
			return true
		}
	}
	return false
}

// Aggregate maps group -> student -> record
type Aggregate map[string]Group

// Group maps student -> record
type Group map[string]*StudentRecord

// StudentRecord holds one student's feedback in input order.
// Dates is either empty or aligned with Feedback.
type StudentRecord struct {
	Feedback []string
	Dates    []string
}

// Add appends one feedback item. date is ignored when the aggregate has no date column.
func (r *StudentRecord) Add(feedback string, date *string) {
	r.Feedback = append(r.Feedback, feedback)
	if date != nil {
		r.Dates = append(r.Dates, *date)
	}
}

// Count is the number of feedback items
func (r *StudentRecord) Count() int {
	return len(r.Feedback)
}

type studentRecordJSON struct {
	Feedback      []string `json:"feedback"`
	FeedbackCount int      `json:"feedback_count"`
	Dates         []string `json:"dates,omitempty"`
}

func (r *StudentRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(studentRecordJSON{
		Feedback:      nonNil(r.Feedback),
		FeedbackCount: r.Count(),
		Dates:         r.Dates,
	})
	return bytes.TrimRight(buf.Bytes(), "\n"), err
}

// UnmarshalJSON ignores feedback_count; it is always derived
func (r *StudentRecord) UnmarshalJSON(data []byte) error {
	var raw studentRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Feedback = raw.Feedback
	r.Dates = raw.Dates
	return nil
}

// Student returns (creating if needed) the record for group/student
func (a Aggregate) Student(group, student string) *StudentRecord {
	g, ok := a[group]
	if !ok {
		g = make(Group)
		a[group] = g
	}
	rec, ok := g[student]
	if !ok {
		rec = &StudentRecord{}
		g[student] = rec
	}
	return rec
}

// Add appends one input row. The date is kept only when withDate is set.
func (a Aggregate) Add(rec FeedbackRecord, withDate bool) {
	var date *string
	if withDate {
		date = &rec.Date
	}
	a.Student(rec.Group, rec.Student).Add(rec.Feedback, date)
}

// FeedbackCount sums feedback over every student in the group
func (g Group) FeedbackCount() int {
	total := 0
	for _, rec := range g {
		total += rec.Count()
	}
	return total
}

// ClassSummary holds class-wide totals
type ClassSummary struct {
	TotalGroups               int     `json:"total_groups"`
	TotalStudents             int     `json:"total_students"`
	TotalFeedback             int     `json:"total_feedback"`
	AverageFeedbackPerStudent float64 `json:"average_feedback_per_student"`
}

// GroupSummary holds totals for one group
type GroupSummary struct {
	GroupName                 string  `json:"group_name"`
	StudentCount              int     `json:"student_count"`
	FeedbackCount             int     `json:"feedback_count"`
	AverageFeedbackPerStudent float64 `json:"average_feedback_per_student"`
}

// StudentData is one student's feedback, as sent to the model
type StudentData struct {
	GroupName     string   `json:"group_name"`
	StudentName   string   `json:"student_name"`
	Feedback      []string `json:"feedback"`
	FeedbackCount int      `json:"feedback_count"`
	Dates         []string `json:"dates,omitempty"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
