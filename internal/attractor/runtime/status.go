// Package runtime holds the value types threaded through a pipeline run:
// stage status, outcomes, and the shared mutable context.
package runtime

import "strings"

// StageStatus is the result classification returned by every handler.
type StageStatus string

// The five canonical statuses named in spec §3.
const (
	StatusSuccess        StageStatus = "success"
	StatusFail           StageStatus = "fail"
	StatusPartialSuccess StageStatus = "partial_success"
	StatusRetry          StageStatus = "retry"
	StatusSkipped        StageStatus = "skipped"
)

// ParseStageStatus normalizes a status string to its canonical spelling,
// accepting a handful of common aliases (ok, failure, error, skip,
// partial-success/partialsuccess). Any other non-empty lowercase token is
// passed through verbatim so DSL authors can route on custom outcome
// values (e.g. "process", "done") in condition expressions.
func ParseStageStatus(s string) StageStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "ok":
		return StatusSuccess
	case "fail", "failure", "error":
		return StatusFail
	case "partial_success", "partialsuccess", "partial-success":
		return StatusPartialSuccess
	case "retry":
		return StatusRetry
	case "skipped", "skip":
		return StatusSkipped
	default:
		return StageStatus(strings.ToLower(strings.TrimSpace(s)))
	}
}

// IsCanonical reports whether s is one of the five values spec §3 defines,
// as opposed to a custom routing value.
func (s StageStatus) IsCanonical() bool {
	switch s {
	case StatusSuccess, StatusFail, StatusPartialSuccess, StatusRetry, StatusSkipped:
		return true
	default:
		return false
	}
}

func (s StageStatus) String() string {
	return string(s)
}
