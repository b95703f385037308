package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/coolbeans/hukum/pkg/config"
	"github.com/coolbeans/hukum/pkg/llm"
	"github.com/coolbeans/hukum/pkg/notify"
	"github.com/coolbeans/hukum/pkg/pipeline"
	"github.com/coolbeans/hukum/pkg/schedule"
	"github.com/coolbeans/hukum/pkg/store"
	"github.com/coolbeans/hukum/pkg/validate"
)

// app is the wiring shared by the commands that run the pipeline.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store    store.Store
	notifier *notify.PubSub
	closers  []func() error
}

// loadConfig reads --config and applies the global and run flags that were
// set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Lookup("budget") != nil && flags.Changed("budget") {
		cfg.Budget.Limit, _ = flags.GetFloat64("budget")
	}
	if flags.Lookup("strategy") != nil && flags.Changed("strategy") {
		cfg.Scheduler.Strategy, _ = flags.GetString("strategy")
	}
	if flags.Lookup("concurrency") != nil && flags.Changed("concurrency") {
		cfg.Scheduler.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Lookup("extractor") != nil && flags.Changed("extractor") {
		cfg.Extractor.Kind, _ = flags.GetString("extractor")
	}
	if flags.Lookup("state-dir") != nil && flags.Changed("state-dir") {
		cfg.Store.Dir, _ = flags.GetString("state-dir")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newApp loads configuration and connects the configured store and
// notifier.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: newLogger(cfg, os.Stderr)}

	switch cfg.Store.Kind {
	case config.StoreFirestore:
		fs, err := store.NewFirestoreStore(ctx, cfg.Store.Project, cfg.Store.Collection, cfg.Store.CredentialsFile)
		if err != nil {
			return nil, err
		}
		a.store = fs
		a.closers = append(a.closers, fs.Close)
	default:
		a.store = store.NewFileStore(cfg.Store.Dir)
	}

	if cfg.Notify.Topic != "" {
		ps, err := notify.NewPubSub(ctx, cfg.Notify.Project, cfg.Notify.Topic, cfg.Notify.CredentialsFile, a.logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.notifier = ps
		a.closers = append(a.closers, func() error { return ps.Close(context.Background()) })
	}
	return a, nil
}

// Close releases clients in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

func (a *app) extractor(ctx context.Context, source string) (llm.Extractor, error) {
	if a.cfg.Extractor.Kind == config.ExtractorGemini {
		g, err := llm.NewGemini(ctx, a.cfg.Extractor.APIKey, a.cfg.Extractor.Model, llm.Pricing{
			InputPerToken:  a.cfg.Extractor.InputPerToken,
			OutputPerToken: a.cfg.Extractor.OutputPerToken,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set %s)", err, a.cfg.Extractor.APIKeyEnv)
		}
		g.SetMaxOutputTokens(a.cfg.Extractor.MaxOutputTokens)
		return g, nil
	}
	return &llm.Local{Concurrency: a.cfg.Scheduler.Concurrency, Source: source}, nil
}

// options builds pipeline options from the configuration.
func (a *app) options(ctx context.Context, documentID, source string) (pipeline.Options, error) {
	ex, err := a.extractor(ctx, source)
	if err != nil {
		return pipeline.Options{}, err
	}
	policy, err := schedule.ParseInFlightPolicy(a.cfg.Scheduler.InFlight)
	if err != nil {
		return pipeline.Options{}, err
	}
	profile, err := loadProfile(a.cfg.Validation.Profile)
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.Options{
		DocumentID:  documentID,
		Source:      source,
		Strategy:    a.cfg.Scheduler.Strategy,
		Limit:       a.cfg.Budget.Limit,
		Cost:        a.cfg.Budget.Cost,
		Concurrency: a.cfg.Scheduler.Concurrency,
		RateLimit:   a.cfg.Scheduler.RateLimit,
		Burst:       a.cfg.Scheduler.Burst,
		Policy:      policy,
		Extractor:   ex,
		Store:       a.store,
		Profile:     profile,
		Logger:      a.logger,
	}
	if a.notifier != nil {
		opts.Observer = a.notifier
	}
	return opts, nil
}

func loadProfile(path string) (*validate.ValidationProfile, error) {
	if path == "" {
		return nil, nil
	}
	return validate.LoadProfileFromFile(path)
}
