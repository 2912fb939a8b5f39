package model

import (
	"encoding/json"
	"time"
)

// ReportKind names the analysis that produced a report
type ReportKind string

const (
	ReportClass   ReportKind = "class"
	ReportGroup   ReportKind = "group"
	ReportStudent ReportKind = "student"
	ReportCompare ReportKind = "compare"
)

// Report is a persisted analysis result
type Report struct {
	ID        string            `json:"id" bson:"_id"`
	Kind      ReportKind        `json:"kind" bson:"kind"`
	ModelKey  string            `json:"modelKey" bson:"modelKey"`
	Files     []string          `json:"files" bson:"files"`
	Params    map[string]string `json:"params,omitempty" bson:"params,omitempty"`
	Result    json.RawMessage   `json:"result" bson:"-"`
	CreatedAt time.Time         `json:"createdAt" bson:"createdAt"`

	// ResultJSON is the stored form of Result
	ResultJSON string `json:"-" bson:"result"`
}

// ReportSummary is a report without its result, for listings
type ReportSummary struct {
	ID        string     `json:"id" bson:"_id"`
	Kind      ReportKind `json:"kind" bson:"kind"`
	ModelKey  string     `json:"modelKey" bson:"modelKey"`
	Files     []string   `json:"files" bson:"files"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
}
