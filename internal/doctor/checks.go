// Package doctor runs the diagnostics behind "gputweak doctor": config,
// SSH access to the target host, presence of nvidia-settings, GPU
// discovery and a sample attribute read.
package doctor

import (
	"context"
	"fmt"

	"github.com/gputweak/gputweak/internal/ui"
)

// Check categories, in report order.
const (
	CategoryConfig = "CONFIG"
	CategorySSH    = "SSH"
	CategoryTool   = "TOOL"
	CategoryGPU    = "GPU"
)

// CheckStatus represents the result status of a check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
	// StatusSkip marks a check that could not run because an earlier one failed.
	StatusSkip
)

// String returns a human-readable status string.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	case StatusSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult contains the outcome of running a check.
type CheckResult struct {
	Name       string      `json:"name"`
	Category   string      `json:"category"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Fixable    bool        `json:"fixable,omitempty"` // Whether --fix can address this
}

// Check defines the interface for diagnostic checks.
type Check interface {
	// Name returns the check's identifier.
	Name() string

	// Category returns the check's category (e.g., "CONFIG", "SSH", "GPU").
	Category() string

	// Run executes the check and returns the result.
	Run(ctx context.Context) CheckResult

	// Fix attempts to automatically fix the issue (if supported).
	// Returns nil if fix was successful or not applicable.
	Fix() error
}

// RunAll executes checks in order. Later checks may read what earlier ones
// found, so they never run concurrently. Category is filled in from the
// check when the result leaves it empty.
func RunAll(ctx context.Context, checks []Check) []CheckResult {
	results := make([]CheckResult, len(checks))
	for i, check := range checks {
		results[i] = runOne(ctx, check)
	}
	return results
}

func runOne(ctx context.Context, check Check) CheckResult {
	r := check.Run(ctx)
	if r.Name == "" {
		r.Name = check.Name()
	}
	if r.Category == "" {
		r.Category = check.Category()
	}
	return r
}

// FixAll calls Fix on every fixable failed or warned check and re-runs the
// ones that fixed cleanly.
func FixAll(ctx context.Context, checks []Check, results []CheckResult) []CheckResult {
	out := append([]CheckResult(nil), results...)
	for i, r := range out {
		if !r.Fixable || (r.Status != StatusFail && r.Status != StatusWarn) {
			continue
		}
		if err := checks[i].Fix(); err == nil {
			out[i] = runOne(ctx, checks[i])
		}
	}
	return out
}

// CountByStatus counts results by status.
func CountByStatus(results []CheckResult) map[CheckStatus]int {
	counts := make(map[CheckStatus]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// HasFailures returns true if any result has a fail status.
func HasFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// HasIssues returns true if any result has a fail or warn status.
func HasIssues(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusFail || r.Status == StatusWarn {
			return true
		}
	}
	return false
}

// FixableCount returns the number of issues that can be fixed automatically.
func FixableCount(results []CheckResult) int {
	count := 0
	for _, r := range results {
		if r.Fixable && (r.Status == StatusFail || r.Status == StatusWarn) {
			count++
		}
	}
	return count
}

// Summary returns a summary string of the check results.
func Summary(results []CheckResult) string {
	counts := CountByStatus(results)
	warn := counts[StatusWarn]
	fail := counts[StatusFail]

	if fail == 0 && warn == 0 {
		return "Everything looks good"
	}

	total := warn + fail
	return fmt.Sprintf("%d issue%s found", total, pluralize(total))
}

// Rows converts results for ui.RenderDoctorTable.
func Rows(results []CheckResult) []ui.DoctorCheckRow {
	rows := make([]ui.DoctorCheckRow, len(results))
	for i, r := range results {
		rows[i] = ui.DoctorCheckRow{
			Status:     r.Status.String(),
			Category:   r.Category,
			Message:    r.Message,
			Suggestion: r.Suggestion,
		}
	}
	return rows
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func skipped(c Check, message string) CheckResult {
	return CheckResult{Name: c.Name(), Status: StatusSkip, Message: message}
}
