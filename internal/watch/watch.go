// Package watch tails an inbox directory and feeds every new message
// file through the parse pipeline.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"goac/internal/logging"
	"goac/internal/message"
	"goac/internal/store"
)

// Event reports one processed file.
type Event struct {
	Path   string
	Result *message.Result
	Err    error
}

// Watcher watches a directory for new mail files.
type Watcher struct {
	store  *store.Store
	dir    string
	events chan Event
}

// New creates a watcher for dir backed by the given store.
func New(s *store.Store, dir string) *Watcher {
	return &Watcher{
		store:  s,
		dir:    dir,
		events: make(chan Event, 16),
	}
}

// Events returns the result stream. The channel closes when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run processes existing files once, then blocks watching for new ones
// until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", w.dir, err)
	}
	logging.Watch("watching %s", w.dir)

	// Drain whatever is already there.
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("watch: read dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.process(ctx, filepath.Join(w.dir, e.Name()))
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					return nil
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				if strings.HasPrefix(filepath.Base(ev.Name), ".") {
					continue // editor/maildir temp files
				}
				w.process(ctx, ev.Name)
			case err, ok := <-fw.Errors:
				if !ok {
					return nil
				}
				logging.Watch("watcher error: %v", err)
			}
		}
	})
	return g.Wait()
}

func (w *Watcher) process(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		w.send(ctx, Event{Path: path, Err: err})
		return
	}
	res, err := message.ParseAny(w.store, raw, "")
	if err != nil {
		logging.Watch("parse %s: %v", path, err)
		w.send(ctx, Event{Path: path, Err: err})
		return
	}
	logging.Watch("parsed %s (kind=%d from=%s)", path, res.Kind, res.From)
	w.send(ctx, Event{Path: path, Result: res})
}

func (w *Watcher) send(ctx context.Context, ev Event) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}
