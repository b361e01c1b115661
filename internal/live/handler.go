// Package live is the websocket channel between a reader page and the
// server-side view state: document selection, active heading tracking,
// layout and lazy-leaf repaints.
package live

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dgallion1/docview/internal/ast"
	"github.com/dgallion1/docview/internal/lazy"
	"github.com/dgallion1/docview/internal/metrics"
	"github.com/dgallion1/docview/internal/render"
)

const (
	writeWait    = 10 * time.Second
	maxMessage   = 64 << 10
	outboxLength = 32
)

// Documents resolves a primary key to a document. It never fails; an
// unknown key resolves to a fallback document.
type Documents interface {
	Document(ctx context.Context, pk string) *ast.DocInfo
}

// Handler upgrades /live requests and runs one connection per reader.
type Handler struct {
	docs     Documents
	renderer *render.Renderer
	leaves   []<-chan struct{}
	theme    lazy.Theme
	metrics  *metrics.Collector
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates the live handler. leaves are the Done channels of the
// lazy leaf loaders; a document rendered with placeholders is repainted once
// each of them closes.
func NewHandler(docs Documents, renderer *render.Renderer, leaves []<-chan struct{}, theme lazy.Theme, m *metrics.Collector, log *slog.Logger) *Handler {
	return &Handler{
		docs:     docs,
		renderer: renderer,
		leaves:   leaves,
		theme:    theme,
		metrics:  m,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	theme := lazy.ParseTheme(r.URL.Query().Get("theme"), h.theme)

	h.metrics.SessionOpened()
	defer h.metrics.SessionClosed()

	c := newConn(h, ws, theme)
	c.run()
}
