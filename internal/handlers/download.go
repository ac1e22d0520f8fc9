package handlers

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/shutterworks/printready/internal/artifact"
	"github.com/shutterworks/printready/internal/processor"
	"github.com/shutterworks/printready/internal/storage"
)

func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		SessionID   string                          `json:"session_id"`
		Adjustments map[string]processor.Adjustment `json:"adjustments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.SessionID == "" {
		h.writeError(w, "Session ID required", http.StatusBadRequest)
		return
	}

	slog.Info("Download request", "session_id", request.SessionID)

	originalPath, err := h.store.OriginalPath(request.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			h.writeError(w, "Original file not found. Please upload again.", http.StatusNotFound)
		} else {
			h.writeError(w, "Failed to locate session files: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	originalName := artifact.OriginalFilename(filepath.Base(originalPath))

	proc := h.processorFor(originalPath, request.SessionID)
	outputs, err := proc.ProcessAll(request.Adjustments)
	var batchErr *processor.BatchError
	switch {
	case errors.As(err, &batchErr):
		// Ship what rendered; the client already has previews for the rest.
		slog.Warn("Some ratios failed to render", "failed", batchErr.Error())
	case err != nil:
		h.writeError(w, "Failed to process images", http.StatusInternalServerError)
		return
	}

	entries := make([]zipEntry, 0, len(outputs)+1)
	for _, out := range outputs {
		entries = append(entries, zipEntry{
			name: artifact.ArchiveEntryName(originalName, out.Ratio),
			path: out.Path,
		})
	}
	if _, err := os.Stat(h.cfg.GuidePath); err == nil {
		entries = append(entries, zipEntry{name: filepath.Base(h.cfg.GuidePath), path: h.cfg.GuidePath})
	} else {
		slog.Warn("Printing guide not found, archive will not include it", "path", h.cfg.GuidePath)
	}

	zipPath := filepath.Join(h.store.ProcessedDir(), artifact.ZipName(request.SessionID))
	if err := writeArchive(zipPath, entries); err != nil {
		h.writeError(w, "ZIP creation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if info, err := os.Stat(zipPath); err == nil {
		slog.Info("Archive created",
			"file", filepath.Base(zipPath),
			"size_mb", fmt.Sprintf("%.2f", float64(info.Size())/(1<<20)),
			"entries", len(entries))
	}

	downloadName := artifact.ZipDownloadName(originalName, request.SessionID)
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	http.ServeFile(w, r, zipPath)
}

type zipEntry struct {
	name string
	path string
}

// writeArchive builds the ZIP under a temporary name and renames it into
// place so a concurrent request never serves a partial archive.
func writeArchive(path string, entries []zipEntry) error {
	tmp := path + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(f)
	for _, entry := range entries {
		if err := addArchiveEntry(zw, entry); err != nil {
			zw.Close()
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("add %s: %w", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func addArchiveEntry(zw *zip.Writer, entry zipEntry) error {
	src, err := os.Open(entry.path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.Create(entry.name)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
