package api

import (
	"context"
	"net/http"
)

// handleStartBuild rebuilds the static tree from the source directory in the
// background. With ?wait=true the response is held until the build ends.
func (s *Server) handleStartBuild(w http.ResponseWriter, r *http.Request) {
	done, ok := s.deps.Builds.Start(context.WithoutCancel(r.Context()))
	if !ok {
		jsonError(w, "a build is already running", http.StatusConflict)
		return
	}
	s.log.Info("build started", "source", s.cfg.SourceDir, "output", s.cfg.StaticDir)

	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, s.deps.Builds.Status())
		return
	}
	select {
	case <-done:
	case <-r.Context().Done():
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Builds.Status())
}

func (s *Server) handleBuildStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Builds.Status())
}
