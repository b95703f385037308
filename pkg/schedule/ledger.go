package schedule

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coolbeans/hukum/pkg/statute"
)

// ErrBudgetExhausted is returned by Admit when a fragment's estimate does not
// fit in the remaining budget.
var ErrBudgetExhausted = errors.New("budget exhausted")

// budgetTolerance absorbs float rounding when estimates sum to exactly the
// limit, so 3 x 0.1 fits in 0.3.
const budgetTolerance = 1e-9

// Event reports one fragment status transition together with the ledger
// totals right after it.
type Event struct {
	RunID      string  `json:"run_id"`
	FragmentID string  `json:"fragment_id"`
	Status     Status  `json:"status"`
	Cost       float64 `json:"cost"`
	Reported   float64 `json:"reported,omitempty"`
	Spent      float64 `json:"spent"`
	Reserved   float64 `json:"reserved"`
	Limit      float64 `json:"limit"`
	Error      string  `json:"error,omitempty"`
}

// Observer receives ledger events. Events are delivered in the order the
// transitions happened, while the ledger lock is held, so Observe must not
// call back into the ledger and should return quickly.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans an event out to several observers in order.
type Observers []Observer

// Observe implements Observer.
func (o Observers) Observe(e Event) {
	for _, observer := range o {
		if observer != nil {
			observer.Observe(e)
		}
	}
}

// Ledger is the processing ledger of one document run. Spent never
// decreases and, because every admitted estimate is reserved before the call
// is made and charges never exceed the reservation, never exceeds Limit by
// more than budgetTolerance.
type Ledger struct {
	mu       sync.Mutex
	runID    string
	spent    float64
	limit    float64
	reserved float64
	statuses map[string]Status
	order    []string
	errors   map[string]string
	overruns map[string]float64
	observer Observer
}

// NewLedger creates an empty ledger.
func NewLedger(runID string, limit float64) *Ledger {
	return &Ledger{
		runID:    runID,
		limit:    limit,
		statuses: make(map[string]Status),
		errors:   make(map[string]string),
		overruns: make(map[string]float64),
	}
}

// SetObserver installs the observer that receives every transition.
func (l *Ledger) SetObserver(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observer = o
}

// Register records fragment id with the given status. Fragments are reported
// in the order they were first registered.
func (l *Ledger) Register(id string, status Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.statuses[id]; !ok {
		l.order = append(l.order, id)
	}
	l.statuses[id] = status
}

// Admit reserves estimate for fragment id if spent + reserved + estimate
// fits in the limit, and marks the fragment in flight. Otherwise it returns
// an error wrapping ErrBudgetExhausted and changes nothing.
func (l *Ledger) Admit(id string, estimate float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.spent+l.reserved+estimate > l.limit+budgetTolerance {
		return fmt.Errorf("%w: spent %.4f + reserved %.4f + estimate %.4f > limit %.4f",
			ErrBudgetExhausted, l.spent, l.reserved, estimate, l.limit)
	}
	l.reserved += estimate
	l.setStatus(id, StatusInFlight)
	l.emit(id, StatusInFlight, estimate, "")
	return nil
}

// Complete releases the reservation and charges the fragment. The charge is
// actual when reported (actual > 0) and never more than the reservation. An
// actual above the reservation is capped, and the uncapped figure is kept in
// the event's Reported field and in Overruns. It returns the amount charged.
func (l *Ledger) Complete(id string, reserved, actual float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	charge := reserved
	if actual > 0 && actual < reserved {
		charge = actual
	}
	var reported float64
	if actual > reserved {
		reported = actual
		l.overruns[id] = actual
	}
	l.release(reserved)
	l.spent += charge
	delete(l.errors, id)
	l.setStatus(id, StatusCompleted)
	l.emitEvent(Event{FragmentID: id, Status: StatusCompleted, Cost: charge, Reported: reported})
	return charge
}

// Fail releases the reservation, charges it in full because the external
// call was made, and records the error.
func (l *Ledger) Fail(id string, reserved float64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.release(reserved)
	l.spent += reserved
	msg := err.Error()
	l.errors[id] = msg
	l.setStatus(id, StatusFailed)
	l.emit(id, StatusFailed, reserved, msg)
}

// Skip marks a never-attempted fragment as skipped for budget.
func (l *Ledger) Skip(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setStatus(id, StatusSkippedBudget)
	l.emit(id, StatusSkippedBudget, 0, ErrBudgetExhausted.Error())
}

func (l *Ledger) release(amount float64) {
	l.reserved -= amount
	if l.reserved < 1e-12 {
		l.reserved = 0
	}
}

func (l *Ledger) setStatus(id string, status Status) {
	if _, ok := l.statuses[id]; !ok {
		l.order = append(l.order, id)
	}
	l.statuses[id] = status
}

func (l *Ledger) emit(id string, status Status, cost float64, msg string) {
	l.emitEvent(Event{FragmentID: id, Status: status, Cost: cost, Error: msg})
}

// emitEvent fills in the run and the ledger totals and delivers e.
func (l *Ledger) emitEvent(e Event) {
	if l.observer == nil {
		return
	}
	e.RunID = l.runID
	e.Spent = l.spent
	e.Reserved = l.reserved
	e.Limit = l.limit
	l.observer.Observe(e)
}

// RunID returns the run identifier.
func (l *Ledger) RunID() string {
	return l.runID
}

// Spent returns the total charged so far.
func (l *Ledger) Spent() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spent
}

// Limit returns the budget ceiling.
func (l *Ledger) Limit() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

// Reserved returns the sum of estimates of in-flight fragments.
func (l *Ledger) Reserved() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reserved
}

// Remaining returns the budget not yet spent or reserved.
func (l *Ledger) Remaining() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit - l.spent - l.reserved
}

// Overruns returns the reported cost of every completed fragment whose
// report exceeded its reservation. The ledger charged the reservation.
func (l *Ledger) Overruns() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]float64, len(l.overruns))
	for id, cost := range l.overruns {
		out[id] = cost
	}
	return out
}

// Status returns the status of fragment id.
func (l *Ledger) Status(id string) Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statuses[id]
}

// Summary returns the ledger as recorded on a finished document.
func (l *Ledger) Summary() *statute.LedgerSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	summary := &statute.LedgerSummary{
		RunID:    l.runID,
		Spent:    l.spent,
		Limit:    l.limit,
		Statuses: make(map[string]string, len(l.statuses)),
	}
	for _, id := range l.order {
		status := l.statuses[id]
		summary.Statuses[id] = string(status)
		if status == StatusCompleted {
			summary.Completed = append(summary.Completed, id)
		}
	}
	if len(l.errors) > 0 {
		summary.Errors = make(map[string]string, len(l.errors))
		for id, msg := range l.errors {
			summary.Errors[id] = msg
		}
	}
	if len(l.overruns) > 0 {
		summary.Overruns = make(map[string]float64, len(l.overruns))
		for id, cost := range l.overruns {
			summary.Overruns[id] = cost
		}
	}
	return summary
}
