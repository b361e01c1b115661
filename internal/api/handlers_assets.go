package api

import (
	"context"
	"io"
	"net/http"
)

const styleCacheControl = "public, max-age=3600"

// handleCodeCSS serves the highlighter stylesheet once it has loaded.
func (s *Server) handleCodeCSS(w http.ResponseWriter, r *http.Request) {
	l := s.deps.Code.Loader()
	l.Ensure()
	assets, ok := l.Value()
	if !ok {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RenderWait)
		defer cancel()
		var err error
		if assets, err = l.Wait(ctx); err != nil {
			w.Header().Set("Retry-After", "1")
			jsonError(w, "code styles not loaded", http.StatusServiceUnavailable)
			return
		}
	}
	writeCSS(w, assets.CSS())
}

// handleMathCSS serves the typesetting stylesheet once it has loaded.
func (s *Server) handleMathCSS(w http.ResponseWriter, r *http.Request) {
	l := s.deps.Math.Loader()
	l.Ensure()
	assets, ok := l.Value()
	if !ok {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RenderWait)
		defer cancel()
		var err error
		if assets, err = l.Wait(ctx); err != nil {
			w.Header().Set("Retry-After", "1")
			jsonError(w, "math styles not loaded", http.StatusServiceUnavailable)
			return
		}
	}
	writeCSS(w, string(assets.CSS))
}

func writeCSS(w http.ResponseWriter, css string) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", styleCacheControl)
	io.WriteString(w, css)
}
