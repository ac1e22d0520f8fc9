package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/preview/")

	if filename == "" || strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		h.writeError(w, "Invalid filename", http.StatusBadRequest)
		return
	}

	previewPath := filepath.Join(h.store.ProcessedDir(), filename)
	if _, err := os.Stat(previewPath); err != nil {
		slog.Warn("Preview not found",
			"file", filename,
			"available", h.store.ListProcessed(10))
		h.writeError(w, "Preview not found: "+filename, http.StatusNotFound)
		return
	}

	w.Header().Set("Cache-Control", "max-age=300")
	http.ServeFile(w, r, previewPath)
}
