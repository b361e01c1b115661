package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dgallion1/docview/internal/ast"
	"github.com/dgallion1/docview/internal/catalogue"
	"github.com/dgallion1/docview/internal/lazy"
	"github.com/dgallion1/docview/internal/render"
	"github.com/dgallion1/docview/internal/view"
)

// conn is one reader. All writes to ws go through the writer goroutine.
type conn struct {
	h        *Handler
	ws       *websocket.Conn
	renderer *render.Renderer
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	out    chan ServerMessage

	session *view.Session
	signal  *catalogue.ViewportSignal
	tracker *catalogue.Tracker

	// mu serializes document pushes so a repaint never interleaves with a
	// newer document.
	mu       sync.Mutex
	lastHTML string

	vpMu     sync.Mutex
	viewport catalogue.Viewport
	layout   view.Layout
}

func newConn(h *Handler, ws *websocket.Conn, theme lazy.Theme) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{
		h:        h,
		ws:       ws,
		renderer: h.renderer.WithTheme(theme),
		log:      h.log.With("remote", ws.RemoteAddr().String()),
		ctx:      ctx,
		cancel:   cancel,
		out:      make(chan ServerMessage, outboxLength),
		session:  view.NewSession(),
		signal:   catalogue.NewViewportSignal(),
	}
	c.tracker = catalogue.NewTracker(c, c.signal, c.log)
	c.tracker.OnChange(func(active string) {
		c.send(ServerMessage{Type: msgActive, ID: active})
	})
	return c
}

func (c *conn) run() {
	defer c.close()
	go c.writeLoop()

	c.ws.SetReadLimit(maxMessage)
	c.log.Debug("live session opened")
	for {
		var msg ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("websocket read error", "error", err)
			}
			return
		}
		c.handle(msg)
	}
}

func (c *conn) close() {
	c.cancel()
	c.tracker.Close()
	c.ws.Close()
	c.log.Debug("live session closed")
}

func (c *conn) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.log.Warn("websocket write error", "error", err)
				c.cancel()
				c.ws.Close()
				return
			}
		}
	}
}

// send queues msg for the writer. It gives up once the connection is gone.
func (c *conn) send(msg ServerMessage) {
	select {
	case c.out <- msg:
	case <-c.ctx.Done():
	}
}

func (c *conn) handle(msg ClientMessage) {
	switch msg.Type {
	case msgSelect:
		c.selectDocument(msg.PK, msg.Fragment)
	case msgAttach:
		c.attachDocument(msg.PK, msg.ID, msg.Fragment)
	case msgVisible:
		c.visible(msg)
	case msgClick:
		if !c.tracker.Click(msg.ID) {
			c.log.Debug("click on unknown heading", "id", msg.ID)
		}
	case msgNavigate:
		c.tracker.NavigateFragment(msg.Fragment)
	case msgViewport:
		c.resize(msg.Width, msg.Height)
	default:
		c.log.Warn("unknown message type", "type", msg.Type)
	}
}

// selectDocument fetches pk in the background. The result is shown only if
// no newer selection arrived while the fetch was in flight.
func (c *conn) selectDocument(pk, fragment string) {
	ticket := c.session.Select(pk)
	go func() {
		doc := c.h.docs.Document(c.ctx, pk)
		if !c.session.Apply(ticket, doc) {
			c.log.Debug("stale document dropped", "pk", pk)
			return
		}
		c.show(ticket, doc, fragment)
	}()
}

// attachDocument starts tracking the document the page was served with.
// Nothing is re-sent; active carries the entry the page already highlights.
func (c *conn) attachDocument(pk, active, fragment string) {
	ticket := c.session.Select(pk)
	go func() {
		doc := c.h.docs.Document(c.ctx, pk)
		if !c.session.Apply(ticket, doc) {
			c.log.Debug("stale document dropped", "pk", pk)
			return
		}
		c.mount(ticket, doc, active, fragment)
	}()
}

func (c *conn) mount(t view.Ticket, doc *ast.DocInfo, active, fragment string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Valid(t) {
		return
	}

	out := c.renderer.RenderDocument(doc, t.PK)
	c.signal.Reset()
	c.lastHTML = out.HTML
	c.tracker.Mount(doc.Root())
	switch {
	case fragment != "" && c.tracker.NavigateFragment(fragment):
	case active != "":
		c.tracker.Activate(active)
	}
	if out.Pending {
		c.watchLeaves(t)
	}
}

func (c *conn) show(t view.Ticket, doc *ast.DocInfo, fragment string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Valid(t) {
		return
	}

	out := c.renderer.RenderDocument(doc, t.PK)
	c.h.metrics.Unhandled(out.Unhandled)

	root := doc.Root()
	entries := catalogue.Build(root)
	var active string
	if len(entries) > 0 {
		active = entries[0].ID
	}

	c.signal.Reset()
	c.lastHTML = out.HTML
	c.send(ServerMessage{
		Type:      msgDocument,
		PK:        t.PK,
		Title:     doc.Title,
		HTML:      out.HTML,
		Catalogue: entries,
		Active:    active,
		Pending:   out.Pending,
	})
	c.tracker.Mount(root)
	if fragment != "" {
		c.tracker.NavigateFragment(fragment)
	}
	if out.Pending {
		c.watchLeaves(t)
	}
}

// watchLeaves repaints the document once for every lazy leaf still loading.
// Each leaf kind resolves on its own.
func (c *conn) watchLeaves(t view.Ticket) {
	for _, done := range c.h.leaves {
		select {
		case <-done:
			continue
		default:
		}
		go func() {
			select {
			case <-done:
			case <-c.ctx.Done():
				return
			}
			c.repaint(t)
		}()
	}
}

// repaint re-renders the current document in place, keeping the catalogue
// and its active heading.
func (c *conn) repaint(t view.Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Valid(t) {
		return
	}
	_, doc := c.session.Current()
	if doc == nil {
		return
	}
	out := c.renderer.RenderDocument(doc, t.PK)
	if out.HTML == c.lastHTML {
		return
	}
	c.lastHTML = out.HTML
	c.send(ServerMessage{
		Type:      msgDocument,
		PK:        t.PK,
		Title:     doc.Title,
		HTML:      out.HTML,
		Catalogue: c.tracker.Entries(),
		Active:    c.tracker.Active(),
		Pending:   out.Pending,
		Repaint:   true,
	})
}

func (c *conn) visible(msg ClientMessage) {
	c.vpMu.Lock()
	vp := c.viewport
	c.vpMu.Unlock()

	if len(msg.Rects) > 0 && vp.Height > 0 {
		c.signal.Report(vp, msg.Rects)
		return
	}
	c.signal.Emit(msg.IDs)
}

func (c *conn) resize(width, height float64) {
	layout := view.LayoutFor(width, height)

	c.vpMu.Lock()
	c.viewport = catalogue.Viewport{Width: width, Height: height}
	changed := layout != c.layout
	c.layout = layout
	c.vpMu.Unlock()

	if changed {
		c.send(ServerMessage{Type: msgLayout, View: string(layout)})
	}
}

// ScrollIntoView asks the page to scroll a heading into view.
func (c *conn) ScrollIntoView(id string, smooth bool) {
	c.send(ServerMessage{Type: msgScroll, ID: id, Smooth: smooth})
}

// ReplaceFragment asks the page to rewrite its location fragment.
func (c *conn) ReplaceFragment(fragment string) {
	c.send(ServerMessage{Type: msgFragment, Fragment: fragment})
}
