package schedule

import (
	"time"
)

// Snapshot is the serializable state of a document run, sufficient to
// resume it.
type Snapshot struct {
	// RunID identifies the run; it is kept across resumes.
	RunID string `json:"run_id"`

	// DocumentID identifies the document being processed.
	DocumentID string `json:"document_id"`

	// Source is the input path the text was loaded from.
	Source string `json:"source,omitempty"`

	// Strategy is the fragment planning strategy used.
	Strategy string `json:"strategy"`

	Limit float64 `json:"limit"`
	Spent float64 `json:"spent"`

	// Fragments holds every fragment with its status and, when completed,
	// its result.
	Fragments []*Fragment `json:"fragments"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSnapshot captures the ledger totals and fragment states.
func NewSnapshot(documentID, source, strategy string, ledger *Ledger, fragments []*Fragment, startedAt time.Time) *Snapshot {
	return &Snapshot{
		RunID:      ledger.RunID(),
		DocumentID: documentID,
		Source:     source,
		Strategy:   strategy,
		Limit:      ledger.Limit(),
		Spent:      ledger.Spent(),
		Fragments:  fragments,
		StartedAt:  startedAt,
		UpdatedAt:  time.Now(),
	}
}

// Counts returns the number of fragments per status.
func (s *Snapshot) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, f := range s.Fragments {
		counts[f.Status]++
	}
	return counts
}

// Restore rebuilds a ledger from the snapshot for a resumed run. Spent
// carries over; a positive limit replaces the recorded one. Completed
// fragments keep their results and are skipped by Run; every other fragment
// goes back to pending so it is admitted again.
func (s *Snapshot) Restore(limit float64) (*Ledger, []*Fragment) {
	if limit <= 0 {
		limit = s.Limit
	}
	ledger := NewLedger(s.RunID, limit)
	ledger.spent = s.Spent
	for _, f := range s.Fragments {
		if f.Status != StatusCompleted {
			f.Status = StatusPending
			f.Error = ""
			f.Result = nil
		} else if f.ReportedCost > 0 {
			ledger.overruns[f.ID] = f.ReportedCost
		}
		ledger.Register(f.ID, f.Status)
	}
	return ledger, s.Fragments
}
