package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
)

// HandleStatic serves the single-page frontend and its assets. It backs
// the catch-all route, so anything outside "/" and "/static/" is a 404.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		http.ServeFile(w, r, filepath.Join("static", "index.html"))
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/static/")
	if name == r.URL.Path || name == "" {
		h.writeError(w, "Resource not found", http.StatusNotFound)
		return
	}

	// Prevent directory traversal attacks
	if strings.Contains(name, "..") {
		h.writeError(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	// Set appropriate content type based on file extension
	switch {
	case strings.HasSuffix(name, ".css"):
		w.Header().Set("Content-Type", "text/css")
	case strings.HasSuffix(name, ".js"):
		w.Header().Set("Content-Type", "application/javascript")
	case strings.HasSuffix(name, ".html"):
		w.Header().Set("Content-Type", "text/html")
	}

	http.ServeFile(w, r, filepath.Join("static", name))
}
