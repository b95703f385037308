// Package pipeline runs a statute through fragment planning, budgeted
// extraction, merge, reference resolution and validation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coolbeans/hukum/pkg/extract"
	"github.com/coolbeans/hukum/pkg/llm"
	"github.com/coolbeans/hukum/pkg/merge"
	"github.com/coolbeans/hukum/pkg/schedule"
	"github.com/coolbeans/hukum/pkg/statute"
	"github.com/coolbeans/hukum/pkg/store"
	"github.com/coolbeans/hukum/pkg/validate"
)

// Options configures a run. Zero values fall back to the scheduler and
// validator defaults; Extractor defaults to llm.Local.
type Options struct {
	DocumentID string
	Source     string
	Strategy   string
	Limit      float64

	Cost        schedule.CostModel
	Concurrency int
	RateLimit   float64
	Burst       int
	Policy      schedule.InFlightPolicy

	Extractor llm.Extractor
	Store     store.Store
	Observer  schedule.Observer
	Profile   *validate.ValidationProfile
	Logger    *slog.Logger
}

// Result is the outcome of a run.
type Result struct {
	Document *statute.Document
	Report   *validate.Report
	Snapshot *schedule.Snapshot
}

// Run processes text as a new run with a fresh run ID.
//
// When ctx is cancelled the result still holds the document merged from the
// fragments that completed, and the snapshot (saved when a Store is set)
// leaves the rest pending for Resume. The returned error then wraps
// ctx.Err().
func Run(ctx context.Context, text string, opts Options) (*Result, error) {
	fragments, err := schedule.Plan(text, opts.Strategy)
	if err != nil {
		return nil, err
	}
	if opts.DocumentID == "" {
		opts.DocumentID = "document"
	}
	if err := checkID(opts); err != nil {
		return nil, err
	}
	if opts.Strategy == "" {
		opts.Strategy = schedule.StrategySections
	}
	ledger := schedule.NewLedger(uuid.NewString(), opts.Limit)
	return execute(ctx, ledger, fragments, time.Now(), opts)
}

// Resume continues a run from its snapshot. Completed fragments keep their
// results; failed, skipped and pending ones are admitted again under limit,
// or under the recorded limit when limit is not positive. Spent carries
// over, so the run ID and the total charged stay those of the original run.
func Resume(ctx context.Context, snapshot *schedule.Snapshot, limit float64, opts Options) (*Result, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("no snapshot to resume")
	}
	opts.DocumentID = snapshot.DocumentID
	opts.Source = snapshot.Source
	opts.Strategy = snapshot.Strategy
	if err := checkID(opts); err != nil {
		return nil, err
	}
	ledger, fragments := snapshot.Restore(limit)
	return execute(ctx, ledger, fragments, snapshot.StartedAt, opts)
}

// checkID rejects a document ID the store could not save under, before any
// fragment is charged.
func checkID(opts Options) error {
	if opts.Store == nil {
		return nil
	}
	return store.ValidateID(opts.DocumentID)
}

func execute(ctx context.Context, ledger *schedule.Ledger, fragments []*schedule.Fragment, startedAt time.Time, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	extractor := opts.Extractor
	if extractor == nil {
		extractor = &llm.Local{Concurrency: opts.Concurrency, Source: opts.Source}
	}

	schedOpts := []schedule.Option{
		schedule.WithConcurrency(opts.Concurrency),
		schedule.WithRateLimit(opts.RateLimit, opts.Burst),
		schedule.WithObserver(opts.Observer),
		schedule.WithLogger(logger),
	}
	if opts.Cost != nil {
		schedOpts = append(schedOpts, schedule.WithCost(opts.Cost))
	}
	if opts.Policy != "" {
		schedOpts = append(schedOpts, schedule.WithPolicy(opts.Policy))
	}

	logger.Info("run started", "run_id", ledger.RunID(), "document", opts.DocumentID,
		"fragments", len(fragments), "strategy", opts.Strategy, "limit", ledger.Limit())

	runErr := schedule.New(schedOpts...).Run(ctx, ledger, fragments, Adapt(extractor))

	doc := Assemble(opts.DocumentID, fragments, ledger)
	if doc.Metadata.Source == "" {
		doc.Metadata.Source = opts.Source
	}
	report := validate.NewValidator(opts.Profile).Validate(doc)
	doc.Diagnostics = append(doc.Diagnostics, report.Diagnostics()...)

	snapshot := schedule.NewSnapshot(opts.DocumentID, opts.Source, opts.Strategy, ledger, fragments, startedAt)
	if opts.Store != nil {
		// A run that was cancelled still saves what it finished.
		if err := opts.Store.Save(context.WithoutCancel(ctx), snapshot); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("failed to save snapshot: %w", err))
		}
	}

	logger.Info("run finished", "run_id", ledger.RunID(), "document", opts.DocumentID,
		"spent", ledger.Spent(), "limit", ledger.Limit(), "status", report.Status,
		"pasal", report.Statistics.Pasal, "diagnostics", len(doc.Diagnostics))

	result := &Result{Document: doc, Report: report, Snapshot: snapshot}
	if runErr != nil {
		return result, fmt.Errorf("run %s interrupted: %w", ledger.RunID(), runErr)
	}
	return result, nil
}

// Assemble merges fragment results into a document: reconcile in fragment
// order, reapply Bab and Bagian context across fragment boundaries, record
// the ledger and rebuild the reference index over the merged tree.
func Assemble(documentID string, fragments []*schedule.Fragment, ledger *schedule.Ledger) *statute.Document {
	doc := merge.Reconcile(documentID, fragments)
	extract.Regroup(doc)
	if ledger != nil {
		doc.Ledger = ledger.Summary()
	}
	extract.Resolve(doc)
	return doc
}

// Adapt wraps an llm.Extractor as a schedule.Extractor. The fragment span
// start becomes the request offset so results carry document coordinates.
func Adapt(ex llm.Extractor) schedule.Extractor {
	return schedule.ExtractorFunc(func(ctx context.Context, f *schedule.Fragment) (*statute.PartialStructure, float64, error) {
		res, err := ex.Extract(ctx, llm.Request{
			FragmentID: f.ID,
			Hint:       f.Hint,
			Text:       f.Text,
			Offset:     f.Span.Start,
		})
		if err != nil {
			return nil, 0, err
		}
		return res.Structure, res.Cost, nil
	})
}
