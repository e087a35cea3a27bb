package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// SPAMiddleware serves the dashboard single-page app for non-API routes.
// Requests under /api/ plus /metrics and /healthz fall through to the
// wrapped handler; everything else is served from staticDir, with indexFile
// as the fallback so client-side routing works on deep links.
func SPAMiddleware(next http.Handler, staticDir, indexFile string) http.Handler {
	fileServer := http.FileServer(http.Dir(staticDir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if strings.HasPrefix(path, "/api/") ||
			path == "/metrics" ||
			path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		// Serve existing static assets directly.
		full := filepath.Join(staticDir, filepath.Clean(path))
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		// Fall back to the SPA entry point for client-routed paths.
		if _, err := os.Stat(indexFile); err == nil {
			http.ServeFile(w, r, indexFile)
			return
		}

		next.ServeHTTP(w, r)
	})
}
