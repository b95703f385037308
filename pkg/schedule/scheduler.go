package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/coolbeans/hukum/pkg/statute"
)

// Extractor turns one fragment into a partial structure. cost is what the
// call reported it cost, or 0 when unknown.
type Extractor interface {
	Extract(ctx context.Context, f *Fragment) (result *statute.PartialStructure, cost float64, err error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, f *Fragment) (*statute.PartialStructure, float64, error)

// Extract implements Extractor.
func (fn ExtractorFunc) Extract(ctx context.Context, f *Fragment) (*statute.PartialStructure, float64, error) {
	return fn(ctx, f)
}

// InFlightPolicy decides what cancellation does to calls already running.
type InFlightPolicy string

const (
	// PolicyFinish lets in-flight calls run to completion after cancellation.
	PolicyFinish InFlightPolicy = "finish"

	// PolicyAbandon passes cancellation through to in-flight calls.
	PolicyAbandon InFlightPolicy = "abandon"
)

// ParseInFlightPolicy converts a config value to a policy.
func ParseInFlightPolicy(s string) (InFlightPolicy, error) {
	switch InFlightPolicy(s) {
	case "", PolicyFinish:
		return PolicyFinish, nil
	case PolicyAbandon:
		return PolicyAbandon, nil
	}
	return "", fmt.Errorf("unknown in-flight policy %q", s)
}

// Scheduler admits fragments in document order against a ledger and runs
// the admitted ones on at most Concurrency workers.
type Scheduler struct {
	cost        CostModel
	concurrency int
	limiter     *rate.Limiter
	policy      InFlightPolicy
	observer    Observer
	logger      *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCost sets the cost model. The default is DefaultCost.
func WithCost(c CostModel) Option {
	return func(s *Scheduler) { s.cost = c }
}

// WithConcurrency sets the number of concurrent extract calls.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRateLimit paces extract calls to perSecond with the given burst. A
// non-positive rate disables pacing.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Scheduler) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithPolicy sets what cancellation does to in-flight calls.
func WithPolicy(p InFlightPolicy) Option {
	return func(s *Scheduler) { s.policy = p }
}

// WithObserver receives every fragment status transition.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		cost:        DefaultCost,
		concurrency: 1,
		policy:      PolicyFinish,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives every non-completed fragment through the ledger. Fragments are
// admitted one at a time in order; the first fragment whose estimate does not
// fit marks itself and every later unattempted fragment skipped_budget.
// Extraction errors mark single fragments failed and never stop the run.
//
// Cancelling ctx stops admission: fragments not yet admitted stay pending.
// Run waits for in-flight calls before returning ctx.Err().
func (s *Scheduler) Run(ctx context.Context, ledger *Ledger, fragments []*Fragment, ex Extractor) error {
	ledger.SetObserver(Observers{s.observer, s.logObserver()})
	for _, f := range fragments {
		if f.Status == "" {
			f.Status = StatusPending
		}
		ledger.Register(f.ID, f.Status)
	}

	callCtx := ctx
	if s.policy == PolicyFinish {
		callCtx = context.WithoutCancel(ctx)
	}

	slots := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	exhausted := false

admission:
	for _, f := range fragments {
		if f.Status == StatusCompleted {
			continue
		}
		if exhausted {
			s.skip(ledger, f)
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				break
			}
		}
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			break admission
		}
		if ctx.Err() != nil {
			<-slots
			break
		}

		f.EstimatedCost = s.cost.Estimate(f)
		if err := ledger.Admit(f.ID, f.EstimatedCost); err != nil {
			<-slots
			s.logger.Info("budget exhausted", "run_id", ledger.RunID(), "fragment", f.ID, "estimate", f.EstimatedCost,
				"spent", ledger.Spent(), "limit", ledger.Limit())
			exhausted = true
			s.skip(ledger, f)
			continue
		}
		f.Status = StatusInFlight
		f.Attempts++

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-slots }()
			s.process(callCtx, ledger, f, ex)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) skip(ledger *Ledger, f *Fragment) {
	f.Status = StatusSkippedBudget
	f.Error = ErrBudgetExhausted.Error()
	ledger.Skip(f.ID)
}

func (s *Scheduler) process(ctx context.Context, ledger *Ledger, f *Fragment, ex Extractor) {
	result, cost, err := ex.Extract(ctx, f)
	f.ReportedCost = 0
	if err == nil && result == nil {
		err = errors.New("extractor returned no result")
	}
	if err != nil {
		f.Status = StatusFailed
		f.Error = err.Error()
		f.ActualCost = f.EstimatedCost
		f.Result = nil
		ledger.Fail(f.ID, f.EstimatedCost, err)
		return
	}
	if cost > f.EstimatedCost {
		f.ReportedCost = cost
		s.logger.Warn("fragment cost exceeded estimate", "run_id", ledger.RunID(), "fragment", f.ID,
			"estimate", f.EstimatedCost, "reported", cost)
	}
	f.ActualCost = ledger.Complete(f.ID, f.EstimatedCost, cost)
	f.Status = StatusCompleted
	f.Error = ""
	f.Result = result
}

func (s *Scheduler) logObserver() Observer {
	return ObserverFunc(func(e Event) {
		level := slog.LevelDebug
		if e.Status == StatusFailed {
			level = slog.LevelWarn
		}
		s.logger.Log(context.Background(), level, "fragment "+string(e.Status),
			"run_id", e.RunID,
			"fragment", e.FragmentID,
			"status", e.Status,
			"cost", e.Cost,
			"reported", e.Reported,
			"spent", e.Spent,
			"limit", e.Limit,
			"error", e.Error,
		)
	})
}
