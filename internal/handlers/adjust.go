package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/shutterworks/printready/internal/ratio"
)

func (h *Handler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		SessionID string  `json:"session_id"`
		Ratio     string  `json:"ratio"`
		XOffset   float64 `json:"x_offset"`
		YOffset   float64 `json:"y_offset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.SessionID == "" || request.Ratio == "" {
		h.writeError(w, "Missing parameters", http.StatusBadRequest)
		return
	}

	slog.Info("Adjust request",
		"session_id", request.SessionID,
		"ratio", request.Ratio,
		"x", request.XOffset,
		"y", request.YOffset)

	originalPath, ok := h.originalOrError(w, request.SessionID)
	if !ok {
		return
	}

	proc := h.processorFor(originalPath, request.SessionID)
	previewName, err := proc.AdjustCrop(request.Ratio, request.XOffset, request.YOffset)
	if err != nil {
		switch {
		case errors.Is(err, ratio.ErrUnknownRatio):
			h.writeError(w, "Unknown ratio: "+request.Ratio, http.StatusBadRequest)
		case errors.Is(err, fs.ErrNotExist):
			h.writeError(w, "File not found. Please upload again.", http.StatusNotFound)
		default:
			h.writeError(w, "Adjustment failed: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, map[string]any{
		"success":          true,
		"preview_url":      "/preview/" + previewName,
		"preview_filename": previewName,
	})
}
