// Package schedule drives per-fragment extraction under a hard budget. A
// Ledger tracks spend and fragment status; the Scheduler admits fragments in
// document order, reserving each estimate before the call is made.
package schedule

import (
	"github.com/coolbeans/hukum/pkg/statute"
)

// Status is the lifecycle state of a fragment:
// pending -> in_flight -> completed | failed, or pending -> skipped_budget.
type Status string

const (
	// StatusPending means the fragment has not been attempted.
	StatusPending Status = "pending"

	// StatusInFlight means the fragment was admitted and its call is running.
	StatusInFlight Status = "in_flight"

	// StatusCompleted means the call returned a result.
	StatusCompleted Status = "completed"

	// StatusFailed means the call was attempted and returned an error.
	StatusFailed Status = "failed"

	// StatusSkippedBudget means the fragment was never attempted because the
	// budget could not cover it.
	StatusSkippedBudget Status = "skipped_budget"
)

// Terminal reports whether no further transition happens within a run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkippedBudget
}

// FragmentKind says how a fragment was cut from the document.
type FragmentKind string

const (
	FragmentSection FragmentKind = "section"
	FragmentWindow  FragmentKind = "window"
)

// Fragment is one unit of scheduled work. Hint is the section kind for
// section fragments and "window" otherwise.
type Fragment struct {
	ID    string       `json:"id"`
	Index int          `json:"index"`
	Kind  FragmentKind `json:"kind"`
	Hint  string       `json:"hint"`
	Text  string       `json:"text"`
	Span  statute.Span `json:"span"`

	Status        Status  `json:"status"`
	EstimatedCost float64 `json:"estimated_cost"`
	ActualCost    float64 `json:"actual_cost"`
	ReportedCost  float64 `json:"reported_cost,omitempty"`
	Attempts      int     `json:"attempts"`
	Error         string  `json:"error,omitempty"`

	Result *statute.PartialStructure `json:"result,omitempty"`
}

// IDs returns the fragment IDs in order.
func IDs(fragments []*Fragment) []string {
	ids := make([]string, len(fragments))
	for i, f := range fragments {
		ids[i] = f.ID
	}
	return ids
}

// CostModel estimates the cost of extracting one fragment. Estimates must be
// deterministic.
type CostModel interface {
	Estimate(f *Fragment) float64
}

// LinearCost prices a call by prompt size plus expected output size:
// Fixed + (len(text) + ExpectedOutputChars) * PerChar.
type LinearCost struct {
	Fixed               float64 `yaml:"fixed" json:"fixed"`
	PerChar             float64 `yaml:"per_char" json:"per_char"`
	ExpectedOutputChars int     `yaml:"expected_output_chars" json:"expected_output_chars"`
}

// DefaultCost matches a hosted model billed at 0.000005 per character with a
// 2000 character reply budget.
var DefaultCost = LinearCost{PerChar: 0.000005, ExpectedOutputChars: 2000}

// Estimate implements CostModel.
func (c LinearCost) Estimate(f *Fragment) float64 {
	return c.Fixed + float64(len(f.Text)+c.ExpectedOutputChars)*c.PerChar
}

// FlatCost prices every fragment the same.
type FlatCost float64

// Estimate implements CostModel.
func (c FlatCost) Estimate(*Fragment) float64 {
	return float64(c)
}
