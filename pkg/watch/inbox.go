// Package watch processes statute files dropped into an inbox directory.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/fsnotify.v1"

	"github.com/coolbeans/hukum/pkg/source"
)

// DefaultSettle is how long a file must stay unchanged before it is handled.
const DefaultSettle = 500 * time.Millisecond

// Handler processes one inbox file. Handlers run one at a time.
type Handler func(ctx context.Context, path string) error

// Inbox watches a directory and hands every supported source file to a
// Handler once writes to it have settled. Files already present when Run
// starts are handled first. A file is handled again only when its
// modification time changes.
type Inbox struct {
	dir     string
	handler Handler
	settle  time.Duration
	logger  *slog.Logger

	mu        sync.Mutex
	timers    map[string]*time.Timer
	processed map[string]time.Time
	pending   sync.WaitGroup // armed or running settle timers
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithSettle sets the quiet period before a changed file is handled.
func WithSettle(d time.Duration) Option {
	return func(in *Inbox) { in.settle = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(in *Inbox) { in.logger = l }
}

// NewInbox creates an Inbox for dir.
func NewInbox(dir string, handler Handler, opts ...Option) *Inbox {
	in := &Inbox{
		dir:       dir,
		handler:   handler,
		settle:    DefaultSettle,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		timers:    make(map[string]*time.Timer),
		processed: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Run watches until ctx is cancelled. It returns nil on cancellation and an
// error only when the watch cannot be set up.
func (in *Inbox) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(in.dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", in.dir, err)
	}

	ready := make(chan string, 16)
	done := make(chan struct{})
	defer in.pending.Wait()
	defer close(done)
	defer in.stopTimers()

	existing, err := in.existing()
	if err != nil {
		return err
	}
	for _, path := range existing {
		in.handle(ctx, path)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !source.Supported(event.Name) {
				continue
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create, event.Op&fsnotify.Write == fsnotify.Write:
				in.schedule(ctx, event.Name, ready, done)
			case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
				in.forget(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			in.logger.Warn("watch error", "dir", in.dir, "error", err)

		case path := <-ready:
			in.handle(ctx, path)
		}
	}
}

// schedule (re)starts the settle timer for path. A fired timer gives up
// delivering once done is closed, so nothing outlives Run.
func (in *Inbox) schedule(ctx context.Context, path string, ready chan<- string, done <-chan struct{}) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.timers[path]; ok {
		in.stop(t)
	}
	in.pending.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(in.settle, func() {
		defer in.pending.Done()
		in.mu.Lock()
		if in.timers[path] == timer {
			delete(in.timers, path)
		}
		in.mu.Unlock()
		select {
		case ready <- path:
		case <-ctx.Done():
		case <-done:
		}
	})
	in.timers[path] = timer
}

// stop cancels t. The caller holds in.mu.
func (in *Inbox) stop(t *time.Timer) {
	if t.Stop() {
		in.pending.Done()
	}
}

func (in *Inbox) forget(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.timers[path]; ok {
		in.stop(t)
		delete(in.timers, path)
	}
	delete(in.processed, path)
}

func (in *Inbox) stopTimers() {
	in.mu.Lock()
	defer in.mu.Unlock()
	for path, t := range in.timers {
		in.stop(t)
		delete(in.timers, path)
	}
}

func (in *Inbox) handle(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	in.mu.Lock()
	seen, ok := in.processed[path]
	in.mu.Unlock()
	if ok && seen.Equal(info.ModTime()) {
		return
	}

	in.logger.Info("processing inbox file", "path", path)
	if err := in.handler(ctx, path); err != nil {
		in.logger.Error("inbox file failed", "path", path, "error", err)
	}

	in.mu.Lock()
	in.processed[path] = info.ModTime()
	in.mu.Unlock()
}

func (in *Inbox) existing() ([]string, error) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", in.dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && source.Supported(entry.Name()) {
			paths = append(paths, filepath.Join(in.dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
