package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Janitor sweeps files older than the retention period out of both store
// directories. Sessions are anonymous and short-lived; anything past
// retention is abandoned.
type Janitor struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
}

func NewJanitor(store *Store, retention, interval time.Duration) *Janitor {
	return &Janitor{store: store, retention: retention, interval: interval}
}

// Start sweeps on a timer until ctx is done. A zero retention disables
// sweeping entirely.
func (j *Janitor) Start(ctx context.Context) {
	if j.retention <= 0 || j.interval <= 0 {
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				slog.Info("swept expired session files", "removed", n)
			}
		}
	}
}

// Sweep removes files whose modification time is older than the retention
// period and reports how many were removed.
func (j *Janitor) Sweep() int {
	cutoff := time.Now().Add(-j.retention)
	removed := 0
	for _, dir := range []string{j.store.uploadDir, j.store.processedDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				slog.Warn("could not remove expired file", "file", entry.Name(), "err", err)
				continue
			}
			removed++
		}
	}
	return removed
}
