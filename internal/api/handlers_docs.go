package api

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docview/internal/catalogue"
	"github.com/dgallion1/docview/internal/docstore"
	"github.com/dgallion1/docview/internal/lazy"
	"github.com/dgallion1/docview/internal/view"
)

// handleIndex redirects to the first listed document.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	rows := s.deps.Store.List(r.Context())
	if len(rows) == 0 {
		jsonError(w, "no documents", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, view.DocHref(rows[0].PK), http.StatusFound)
}

// handleRead renders the reader page for one document. Leaves that are still
// loading get up to RenderWait to finish; after that the page ships with
// placeholders and the live channel repaints them.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pk := chi.URLParam(r, "pk")
	theme := lazy.ParseTheme(r.URL.Query().Get("theme"), s.theme)

	doc := s.deps.Store.Document(ctx, pk)
	renderer := s.renderer.WithTheme(theme)
	out := renderer.RenderDocument(doc, pk)
	if out.Pending && s.waitForLeaves(ctx) {
		out = renderer.RenderDocument(doc, pk)
	}
	s.deps.Metrics.Unhandled(out.Unhandled)

	entries := catalogue.Build(doc.Root())
	data := view.PageData{
		Title:       doc.Title,
		PK:          pk,
		Theme:       theme,
		Docs:        s.deps.Store.List(ctx),
		Article:     template.HTML(out.HTML),
		Catalogue:   entries,
		Active:      activeFor(entries, r.URL.Query().Get("anchor")),
		Pending:     out.Pending,
		MathScripts: s.cfg.KatexScripts,
	}

	var buf bytes.Buffer
	if err := s.pages.Render(&buf, data); err != nil {
		s.log.Error("page render failed", "pk", pk, "error", err)
		jsonError(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// activeFor picks the heading named by anchor, or the first heading.
func activeFor(entries []catalogue.Entry, anchor string) string {
	anchor = strings.TrimPrefix(anchor, "#")
	for _, e := range entries {
		if anchor != "" && e.ID == anchor {
			return e.ID
		}
	}
	if len(entries) > 0 {
		return entries[0].ID
	}
	return ""
}

// leafDone returns the completion channels of both lazy leaf loaders.
func (s *Server) leafDone() []<-chan struct{} {
	return []<-chan struct{}{s.deps.Code.Loader().Done(), s.deps.Math.Loader().Done()}
}

// waitForLeaves blocks until every loading leaf settles, RenderWait passes
// or ctx ends. It reports whether anything was waited for.
func (s *Server) waitForLeaves(ctx context.Context) bool {
	if s.cfg.RenderWait <= 0 {
		return false
	}
	var loading []<-chan struct{}
	if s.deps.Code.Loader().State() == lazy.StateLoading {
		loading = append(loading, s.deps.Code.Loader().Done())
	}
	if s.deps.Math.Loader().State() == lazy.StateLoading {
		loading = append(loading, s.deps.Math.Loader().Done())
	}
	if len(loading) == 0 {
		return true
	}

	timer := time.NewTimer(s.cfg.RenderWait)
	defer timer.Stop()
	for _, done := range loading {
		select {
		case <-done:
		case <-timer.C:
			return true
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (s *Server) handleListDocs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Store.List(r.Context()))
}

func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Store.Document(r.Context(), chi.URLParam(r, "pk")))
}

func (s *Server) handleCatalogue(w http.ResponseWriter, r *http.Request) {
	pk := chi.URLParam(r, "pk")
	doc := s.deps.Store.Document(r.Context(), pk)
	entries := catalogue.Build(doc.Root())
	if entries == nil {
		entries = []catalogue.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pk":      pk,
		"entries": entries,
		"active":  activeFor(entries, r.URL.Query().Get("anchor")),
	})
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Cards.Cards(r.Context()))
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == docstore.CardSelfIntro {
		writeJSON(w, http.StatusOK, s.deps.Cards.SelfIntro(r.Context()))
		return
	}
	card, ok := s.deps.Cards.Cards(r.Context())[key]
	if !ok {
		jsonError(w, "unknown card: "+key, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, card)
}
