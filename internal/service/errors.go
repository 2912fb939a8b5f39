package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFileNotFound  = errors.New("file not found")
	ErrParse         = errors.New("malformed input file")
	ErrSchema        = errors.New("missing required columns")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
	ErrResponseParse = errors.New("model response is not valid JSON")
)

// SchemaError names the columns a table is missing
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: missing required columns: %s", e.Table, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// ResponseParseError keeps the model output that failed to parse
type ResponseParseError struct {
	Raw string
	Err error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrResponseParse.Error(), e.Err)
}

func (e *ResponseParseError) Unwrap() []error { return []error{ErrResponseParse, e.Err} }
