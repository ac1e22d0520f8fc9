// Package storage keeps uploaded originals and rendered artifacts in two
// flat directories. Session state lives entirely in filenames, so nothing
// is lost across restarts.
package storage

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shutterworks/printready/internal/artifact"
)

// ErrSessionNotFound means no uploaded original exists for a session.
var ErrSessionNotFound = errors.New("session not found")

type Store struct {
	uploadDir    string
	processedDir string
}

// New returns a Store backed by the two directories, creating them if
// needed.
func New(uploadDir, processedDir string) (*Store, error) {
	for _, dir := range []string{uploadDir, processedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{uploadDir: uploadDir, processedDir: processedDir}, nil
}

func (s *Store) UploadDir() string    { return s.uploadDir }
func (s *Store) ProcessedDir() string { return s.processedDir }

// SaveUpload writes an uploaded original under a session-scoped name and
// returns its full path.
func (s *Store) SaveUpload(sessionID, originalName string, data []byte) (string, error) {
	name := artifact.UploadName(sessionID, time.Now(), originalName)
	path := filepath.Join(s.uploadDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// OriginalPath locates the uploaded original for a session.
func (s *Store) OriginalPath(sessionID string) (string, error) {
	names, err := fileNames(s.uploadDir)
	if err != nil {
		return "", err
	}
	name, ok := artifact.FindOriginalIn(names, sessionID)
	if !ok {
		return "", ErrSessionNotFound
	}
	return filepath.Join(s.uploadDir, name), nil
}

// RemoveSession deletes every file belonging to a session from both
// directories and reports how many were removed. An empty session ID
// matches nothing.
func (s *Store) RemoveSession(sessionID string) int {
	if sessionID == "" {
		return 0
	}
	prefix := sessionID + "_"
	removed := 0
	for _, dir := range []string{s.uploadDir, s.processedDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				slog.Warn("could not remove session file", "file", entry.Name(), "err", err)
				continue
			}
			removed++
		}
	}
	return removed
}

// FileCounts reports how many files each directory currently holds.
func (s *Store) FileCounts() (uploads, processed int) {
	u, _ := fileNames(s.uploadDir)
	p, _ := fileNames(s.processedDir)
	return len(u), len(p)
}

// ListUploads returns up to limit upload names, for diagnostics.
func (s *Store) ListUploads(limit int) []string {
	return limited(s.uploadDir, limit)
}

// ListProcessed returns up to limit processed names, for diagnostics.
func (s *Store) ListProcessed(limit int) []string {
	return limited(s.processedDir, limit)
}

func limited(dir string, limit int) []string {
	names, _ := fileNames(dir)
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names
}

func fileNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
