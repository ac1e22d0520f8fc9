package handlers

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shutterworks/printready/internal/artifact"
	"github.com/shutterworks/printready/internal/imagemeta"
	"github.com/shutterworks/printready/internal/processor"
	_ "golang.org/x/image/tiff"
)

const largeFileThreshold = 10 << 20

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.writeError(w, "No file selected", http.StatusBadRequest)
		return
	}

	if !processor.SupportedExtension(header.Filename) {
		h.writeError(w, "File type not allowed. Use JPG, PNG, or TIFF.", http.StatusBadRequest)
		return
	}

	fileData, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if int64(len(fileData)) > h.cfg.MaxUploadBytes {
		msg := fmt.Sprintf("File exceeds maximum size of %dMB", h.cfg.MaxUploadMB())
		h.writeError(w, msg, http.StatusBadRequest)
		return
	}

	// Decode the header before accepting the bytes; an extension says
	// nothing about the content.
	imgCfg, _, err := image.DecodeConfig(bytes.NewReader(fileData))
	if err != nil {
		h.writeError(w, "Unsupported or corrupted image file", http.StatusBadRequest)
		return
	}

	sessionID := uuid.NewString()

	originalPath, err := h.store.SaveUpload(sessionID, header.Filename, fileData)
	if err != nil {
		h.writeError(w, "Failed to save upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("File saved",
		"file", filepath.Base(originalPath),
		"bytes", len(fileData),
		"width", imgCfg.Width,
		"height", imgCfg.Height)

	dpiWarning := imagemeta.PrintResolutionWarning(originalPath)
	if dpiWarning != "" {
		slog.Warn("Low print density detected", "file", header.Filename)
	}

	previews := h.processorFor(originalPath, sessionID).CreatePreviews()
	if len(previews) == 0 {
		h.writeError(w, "Failed to create previews", http.StatusInternalServerError)
		return
	}

	// dpi_warning is always present in the response, null when the
	// source prints fine.
	response := map[string]any{
		"success":           true,
		"session_id":        sessionID,
		"original_filename": artifact.CleanFilename(header.Filename),
		"dpi_warning":       nil,
		"previews":          previews,
	}
	if dpiWarning != "" {
		response["dpi_warning"] = dpiWarning
	}
	if len(fileData) > largeFileThreshold {
		response["size_warning"] = "Large file detected. Processing may take longer."
	}

	h.writeJSON(w, response)
}
