// Package handlers implements the HTTP surface of the print preparation
// service: upload, crop adjustment, preview serving, batch download and
// the maintenance endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shutterworks/printready/internal/config"
	"github.com/shutterworks/printready/internal/processor"
	"github.com/shutterworks/printready/internal/ratio"
	"github.com/shutterworks/printready/internal/storage"
)

type Handler struct {
	cfg    config.Config
	store  *storage.Store
	ratios ratio.Set
}

func New(cfg config.Config, store *storage.Store, ratios ratio.Set) *Handler {
	return &Handler{
		cfg:    cfg,
		store:  store,
		ratios: ratios,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		slog.Error("Unable to encode JSON error response", "err", err)
	}
}

// Session helpers
func (h *Handler) originalOrError(w http.ResponseWriter, sessionID string) (string, bool) {
	path, err := h.store.OriginalPath(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			h.writeError(w, "File not found. Please upload again.", http.StatusNotFound)
		} else {
			h.writeError(w, "Failed to locate session files: "+err.Error(), http.StatusInternalServerError)
		}
		return "", false
	}
	return path, true
}

func (h *Handler) processorFor(originalPath, sessionID string) *processor.Processor {
	return processor.New(originalPath, sessionID, h.store.ProcessedDir(), h.ratios)
}
