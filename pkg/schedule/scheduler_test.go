package schedule

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/coolbeans/hukum/pkg/statute"
)

func makeFragments(n int) []*Fragment {
	fragments := make([]*Fragment, n)
	for i := range fragments {
		fragments[i] = &Fragment{
			ID:     fmt.Sprintf("f%d", i+1),
			Index:  i,
			Kind:   FragmentWindow,
			Hint:   string(FragmentWindow),
			Text:   fmt.Sprintf("fragment %d", i+1),
			Status: StatusPending,
		}
	}
	return fragments
}

func succeed(ctx context.Context, f *Fragment) (*statute.PartialStructure, float64, error) {
	return &statute.PartialStructure{Body: []statute.Section{{Kind: statute.KindGeneric, ID: f.ID}}}, 0, nil
}

// recorder collects ledger events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func statuses(fragments []*Fragment) []Status {
	out := make([]Status, len(fragments))
	for i, f := range fragments {
		out[i] = f.Status
	}
	return out
}

func TestRun_BudgetExhaustion(t *testing.T) {
	fragments := makeFragments(5)
	ledger := NewLedger("run", 10)
	var calls atomic.Int32
	ex := ExtractorFunc(func(ctx context.Context, f *Fragment) (*statute.PartialStructure, float64, error) {
		calls.Add(1)
		return succeed(ctx, f)
	})

	s := New(WithCost(FlatCost(3)))
	if err := s.Run(context.Background(), ledger, fragments, ex); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []Status{StatusCompleted, StatusCompleted, StatusCompleted, StatusSkippedBudget, StatusSkippedBudget}
	if diff := cmp.Diff(want, statuses(fragments)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if got := ledger.Spent(); got != 9 {
		t.Errorf("spent = %v, want 9", got)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("extract called %d times, want 3", got)
	}
	summary := ledger.Summary()
	if diff := cmp.Diff([]string{"f1", "f2", "f3"}, summary.Completed); diff != "" {
		t.Errorf("completed mismatch (-want +got):\n%s", diff)
	}
	if summary.Statuses["f5"] != string(StatusSkippedBudget) {
		t.Errorf("f5 ledger status = %q", summary.Statuses["f5"])
	}
}

func TestRun_BudgetExactFit(t *testing.T) {
	fragments := makeFragments(3)
	ledger := NewLedger("run", 0.3)

	if err := New(WithCost(FlatCost(0.1))).Run(context.Background(), ledger, fragments, ExtractorFunc(succeed)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []Status{StatusCompleted, StatusCompleted, StatusCompleted}
	if diff := cmp.Diff(want, statuses(fragments)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if got := ledger.Spent(); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("spent = %v, want 0.3", got)
	}
}

func TestRun_FailureIsIsolated(t *testing.T) {
	fragments := makeFragments(3)
	ledger := NewLedger("run", 100)
	ex := ExtractorFunc(func(ctx context.Context, f *Fragment) (*statute.PartialStructure, float64, error) {
		if f.ID == "f2" {
			return nil, 0, errors.New("model unavailable")
		}
		return succeed(ctx, f)
	})

	if err := New(WithCost(FlatCost(2))).Run(context.Background(), ledger, fragments, ex); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []Status{StatusCompleted, StatusFailed, StatusCompleted}
	if diff := cmp.Diff(want, statuses(fragments)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if fragments[1].Error != "model unavailable" {
		t.Errorf("error = %q", fragments[1].Error)
	}
	// The failed call was attempted, so its estimate is charged.
	if got := ledger.Spent(); got != 6 {
		t.Errorf("spent = %v, want 6", got)
	}
	if ledger.Summary().Errors["f2"] == "" {
		t.Error("ledger did not record the failure")
	}
}

func TestRun_ChargesReportedCost(t *testing.T) {
	fragments := makeFragments(2)
	ledger := NewLedger("run", 10)
	ex := ExtractorFunc(func(ctx context.Context, f *Fragment) (*statute.PartialStructure, float64, error) {
		result, _, _ := succeed(ctx, f)
		if f.ID == "f1" {
			return result, 1.5, nil
		}
		// Over the estimate: capped at the reservation.
		return result, 7, nil
	})

	if err := New(WithCost(FlatCost(4))).Run(context.Background(), ledger, fragments, ex); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := ledger.Spent(); got != 5.5 {
		t.Errorf("spent = %v, want 5.5", got)
	}
	if fragments[0].ActualCost != 1.5 || fragments[1].ActualCost != 4 {
		t.Errorf("actual costs = %v, %v", fragments[0].ActualCost, fragments[1].ActualCost)
	}
}

func TestRun_RecordsCostAboveEstimate(t *testing.T) {
	fragments := makeFragments(2)
	ledger := NewLedger("run", 10)
	rec := &recorder{}
	ex := ExtractorFunc(func(ctx context.Context, f *Fragment) (*statute.PartialStructure, float64, error) {
		result, _, _ := succeed(ctx, f)
		if f.ID == "f2" {
			return result, 7, nil
		}
		return result, 1, nil
	})

	if err := New(WithCost(FlatCost(4)), WithObserver(rec)).Run(context.Background(), ledger, fragments, ex); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := ledger.Spent(); got != 5 {
		t.Errorf("spent = %v, want 5", got)
	}
	if fragments[0].ReportedCost != 0 {
		t.Errorf("f1 reported cost = %v, want 0", fragments[0].ReportedCost)
	}
	if fragments[1].ActualCost != 4 || fragments[1].ReportedCost != 7 {
		t.Errorf("f2 actual = %v, reported = %v, want 4 and 7", fragments[1].ActualCost, fragments[1].ReportedCost)
	}
	if diff := cmp.Diff(map[string]float64{"f2": 7}, ledger.Overruns()); diff != "" {
		t.Errorf("overruns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]float64{"f2": 7}, ledger.Summary().Overruns); diff != "" {
		t.Errorf("summary overruns mismatch (-want +got):\n%s", diff)
	}

	var found bool
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, e := range rec.events {
		if e.FragmentID != "f2" || e.Status != StatusCompleted {
			continue
		}
		found = true
		if e.Cost != 4 || e.Reported != 7 {
			t.Errorf("f2 completion event cost = %v, reported = %v, want 4 and 7", e.Cost, e.Reported)
		}
	}
	if !found {
		t.Error("no completion event for f2")
	}
}

func TestRun_SpentIsMonotonic(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			rng := rand.New(rand.NewSource(7))
			fragments := makeFragments(40)
			costs := make(map[string]float64, len(fragments))
			for _, f := range fragments {
				costs[f.ID] = 0.5 + rng.Float64()*2
			}
			cost := costFunc(func(f *Fragment) float64 { return costs[f.ID] })
			ex := ExtractorFunc(func(ctx context.Context, f *Fragment) (*statute.PartialStructure, float64, error) {
				time.Sleep(time.Millisecond)
				if f.Index%7 == 3 {
					return nil, 0, errors.New("transient")
				}
				result, _, _ := succeed(ctx, f)
				return result, costs[f.ID] / 2, nil
			})

			rec := &recorder{}
			ledger := NewLedger("run", 25)
			s := New(WithCost(cost), WithConcurrency(concurrency), WithObserver(rec))
			if err := s.Run(context.Background(), ledger, fragments, ex); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			previous := 0.0
			for _, e := range rec.events {
				if e.Spent < previous {
					t.Fatalf("spent decreased from %v to %v at %s", previous, e.Spent, e.FragmentID)
				}
				if e.Spent > e.Limit {
					t.Fatalf("spent %v exceeds limit %v at %s", e.Spent, e.Limit, e.FragmentID)
				}
				if e.Spent+e.Reserved > e.Limit+1e-9 {
					t.Fatalf("spent+reserved %v exceeds limit at %s", e.Spent+e.Reserved, e.FragmentID)
				}
				previous = e.Spent
			}
			for _, f := range fragments {
				if !f.Status.Terminal() {
					t.Errorf("fragment %s left in %s", f.ID, f.Status)
				}
			}
		})
	}
}

type costFunc func(*Fragment) float64

func (c costFunc) Estimate(f *Fragment) float64 { return c(f) }

func TestRun_CancellationStopsAdmission(t *testing.T) {
	fragments := makeFragments(5)
	ledger := NewLedger("run", 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ex := ExtractorFunc(func(callCtx context.Context, f *Fragment) (*statute.PartialStructure, float64, error) {
		if f.ID == "f2" {
			cancel()
		}
		return succeed(callCtx, f)
	})

	err := New(WithCost(FlatCost(1))).Run(ctx, ledger, fragments, ex)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}

	want := []Status{StatusCompleted, StatusCompleted, StatusPending, StatusPending, StatusPending}
	if diff := cmp.Diff(want, statuses(fragments)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if got := ledger.Spent(); got != 2 {
		t.Errorf("spent = %v, want 2", got)
	}
}

func TestRun_InFlightPolicy(t *testing.T) {
	tests := []struct {
		policy InFlightPolicy
		want   Status
	}{
		{PolicyFinish, StatusCompleted},
		{PolicyAbandon, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			fragments := makeFragments(1)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			ex := ExtractorFunc(func(callCtx context.Context, f *Fragment) (*statute.PartialStructure, float64, error) {
				cancel()
				if err := callCtx.Err(); err != nil {
					return nil, 0, err
				}
				return succeed(callCtx, f)
			})

			_ = New(WithCost(FlatCost(1)), WithPolicy(tt.policy)).Run(ctx, NewLedger("run", 10), fragments, ex)
			if fragments[0].Status != tt.want {
				t.Errorf("status = %s, want %s", fragments[0].Status, tt.want)
			}
		})
	}
}

func TestRun_RateLimited(t *testing.T) {
	fragments := makeFragments(3)
	start := time.Now()
	s := New(WithCost(FlatCost(0)), WithRateLimit(50, 1))
	if err := s.Run(context.Background(), NewLedger("run", 1), fragments, ExtractorFunc(succeed)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Three calls at 50/s with burst 1 need at least two intervals.
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("three paced calls took %v", elapsed)
	}
}

func TestSnapshot_Resume(t *testing.T) {
	fragments := makeFragments(5)
	ledger := NewLedger("run-1", 10)
	s := New(WithCost(FlatCost(3)))
	if err := s.Run(context.Background(), ledger, fragments, ExtractorFunc(succeed)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	snapshot := NewSnapshot("doc", "doc.txt", StrategySections, ledger, fragments, time.Now())

	resumed, resumedFragments := snapshot.Restore(20)
	if resumed.Spent() != 9 || resumed.Limit() != 20 {
		t.Fatalf("restored ledger spent=%v limit=%v", resumed.Spent(), resumed.Limit())
	}

	var called []string
	ex := ExtractorFunc(func(ctx context.Context, f *Fragment) (*statute.PartialStructure, float64, error) {
		called = append(called, f.ID)
		return succeed(ctx, f)
	})
	if err := s.Run(context.Background(), resumed, resumedFragments, ex); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if diff := cmp.Diff([]string{"f4", "f5"}, called); diff != "" {
		t.Errorf("resumed calls mismatch (-want +got):\n%s", diff)
	}
	if got := resumed.Spent(); got != 15 {
		t.Errorf("spent = %v, want 15", got)
	}
	if got := snapshot.Counts()[StatusCompleted]; got != 5 {
		t.Errorf("completed = %d, want 5", got)
	}
}

func TestLedger_AdmitRejectsOverspend(t *testing.T) {
	ledger := NewLedger("run", 5)
	if err := ledger.Admit("a", 3); err != nil {
		t.Fatalf("Admit(a) error = %v", err)
	}
	// a is still reserved, so b cannot pass against a stale spent value.
	err := ledger.Admit("b", 3)
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("Admit(b) error = %v, want ErrBudgetExhausted", err)
	}
	ledger.Complete("a", 3, 1)
	if err := ledger.Admit("b", 3); err != nil {
		t.Errorf("Admit(b) after completion error = %v", err)
	}
}

func TestLedger_AdmitExactFit(t *testing.T) {
	ledger := NewLedger("run", 0.3)
	for _, id := range []string{"a", "b", "c"} {
		if err := ledger.Admit(id, 0.1); err != nil {
			t.Fatalf("Admit(%s) error = %v", id, err)
		}
	}
	if err := ledger.Admit("d", 0.0001); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("Admit(d) error = %v, want ErrBudgetExhausted", err)
	}
}
