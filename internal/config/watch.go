package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce is how long after the last write a reload waits. Editors often
// write a file in several bursts; reloading mid-burst would compile a
// half-written ruleset.
const debounce = 500 * time.Millisecond

// Reloader watches the ruleset file for changes and triggers hot-reload.
type Reloader struct {
	watcher *fsnotify.Watcher
	reload  func() error
	logger  *zap.Logger
	paths   []string
}

// NewReloader creates a file watcher over the given paths. Paths that do
// not exist yet are skipped; reload is called after each debounced change.
func NewReloader(paths []string, reload func() error, logger *zap.Logger) (*Reloader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	var watched []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := watcher.Add(p); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %q: %w", p, err)
		}
		watched = append(watched, p)
	}

	return &Reloader{
		watcher: watcher,
		reload:  reload,
		logger:  logger,
		paths:   watched,
	}, nil
}

// Paths returns the files actually under watch.
func (r *Reloader) Paths() []string { return r.paths }

// Run watches for file changes and reloads. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					if err := r.reload(); err != nil {
						// A broken ruleset keeps the last good one in
						// force; the failure is logged, not fatal.
						r.logger.Warn("hot-reload failed", zap.Error(err))
					} else {
						r.logger.Info("hot-reload: ruleset reloaded",
							zap.String("file", event.Name))
					}
				})
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}
