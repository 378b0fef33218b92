package importer

import (
	"fmt"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// RowError is one rejected line of an import.
type RowError struct {
	LineNumber int         `json:"lineNumber"`
	Error      string      `json:"error"`
	Kind       shared.Kind `json:"kind"`
	Field      string      `json:"field,omitempty"`
}

// Report summarises an import call. Preview is null for applied imports and a
// list, possibly empty, for dry runs.
type Report struct {
	RunID          string     `json:"runId"`
	Kind           string     `json:"kind"`
	DryRun         bool       `json:"dryRun"`
	Success        bool       `json:"success"`
	Message        string     `json:"message"`
	TotalLines     int        `json:"totalLines"`
	ProcessedLines int        `json:"processedLines"`
	SkippedLines   int        `json:"skippedLines"`
	Errors         []RowError `json:"errors"`
	Preview        []any      `json:"preview"`
}

func (r *Report) skip(line int, err error) {
	r.SkippedLines++
	r.Errors = append(r.Errors, RowError{
		LineNumber: line,
		Error:      shared.PublicMessage(err),
		Kind:       shared.KindOf(err),
		Field:      shared.FieldOf(err),
	})
}

func (r *Report) finish() {
	r.Success = r.SkippedLines == 0
	if r.Errors == nil {
		r.Errors = []RowError{}
	}
	verb := "imported"
	if r.DryRun {
		verb = "validated"
	}
	r.Message = fmt.Sprintf("%d of %d lines %s, %d skipped", r.ProcessedLines, r.TotalLines, verb, r.SkippedLines)
}
