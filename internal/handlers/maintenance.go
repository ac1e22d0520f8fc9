package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"
)

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	uploads, processed := h.store.FileCounts()

	h.writeJSON(w, map[string]any{
		"status":           "healthy",
		"timestamp":        time.Now().Format(time.RFC3339),
		"upload_dir":       dirExists(h.store.UploadDir()),
		"processed_dir":    dirExists(h.store.ProcessedDir()),
		"upload_files":     uploads,
		"processed_files":  processed,
		"max_file_size_mb": h.cfg.MaxUploadMB(),
	})
}

func (h *Handler) HandleDebug(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{
		"upload_folder":    h.store.UploadDir(),
		"processed_folder": h.store.ProcessedDir(),
		"upload_files":     h.store.ListUploads(20),
		"processed_files":  h.store.ListProcessed(20),
	})
}

func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.SessionID == "" {
		h.writeError(w, "Session ID required", http.StatusBadRequest)
		return
	}

	removed := h.store.RemoveSession(request.SessionID)
	slog.Info("Cleanup completed", "session_id", request.SessionID, "files_removed", removed)

	h.writeJSON(w, map[string]any{
		"success":       true,
		"files_removed": removed,
	})
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
