package http

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// SPAHandler serves the agency site bundle from SITE_DIR. Asset paths are
// served as files; any other GET falls back to index.html so client-side
// routes under /agency/<sub>/ load the application shell.
type SPAHandler struct {
	StaticFS fs.FS
}

// NewSPAHandler returns nil when dir is empty.
func NewSPAHandler(dir string) *SPAHandler {
	if dir == "" {
		return nil
	}
	return &SPAHandler{StaticFS: os.DirFS(dir)}
}

func (h SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		h.serveIndex(w)
		return
	}

	f, err := h.StaticFS.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !isAssetPath(r.URL.Path) {
			h.serveIndex(w)
			return
		}
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err == nil && stat.IsDir() {
		h.serveIndex(w)
		return
	}

	if isAssetPath(r.URL.Path) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	}
	http.FileServer(http.FS(h.StaticFS)).ServeHTTP(w, r)
}

// isAssetPath reports paths that must never fall back to the app shell.
func isAssetPath(p string) bool {
	return strings.HasPrefix(p, "/assets/") || strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/_next/")
}

func (h SPAHandler) serveIndex(w http.ResponseWriter) {
	content, err := fs.ReadFile(h.StaticFS, "index.html")
	if err != nil {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}
