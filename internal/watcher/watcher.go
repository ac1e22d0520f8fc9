// Package watcher emits image files dropped into a directory once they
// have settled. Writers rarely produce a file in a single operation, so
// events are debounced and a path is only emitted after it stops changing.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shutterworks/printready/internal/processor"
)

const (
	defaultDebounce = 500 * time.Millisecond
	pollInterval    = 100 * time.Millisecond
)

type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time
}

// New watches a single directory, non-recursive. A non-positive debounce
// falls back to half a second.
func New(dir string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		pending:  make(map[string]time.Time),
	}, nil
}

// Watch returns a channel of settled image paths. The channel closes when
// ctx is done.
func (w *Watcher) Watch(ctx context.Context) <-chan string {
	files := make(chan string, 16)
	go w.processEvents(ctx)
	go w.flushPending(ctx, files)
	return files
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}
			if !processor.SupportedExtension(event.Name) {
				continue
			}
			// A later write for the same path restarts its debounce window.
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("watch error", "err", err)
		}
	}
}

func (w *Watcher) flushPending(ctx context.Context, files chan<- string) {
	defer close(files)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, path := range w.takeSettled() {
				select {
				case files <- path:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// takeSettled removes and returns pending paths whose debounce window has
// elapsed.
func (w *Watcher) takeSettled() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var settled []string
	for path, seenAt := range w.pending {
		if now.Sub(seenAt) < w.debounce {
			continue
		}
		delete(w.pending, path)
		settled = append(settled, path)
	}
	sort.Strings(settled)
	return settled
}
