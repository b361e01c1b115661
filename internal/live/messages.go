package live

import "github.com/dgallion1/docview/internal/catalogue"

// Client message types.
const (
	msgSelect   = "select"
	msgAttach   = "attach"
	msgVisible  = "visible"
	msgClick    = "click"
	msgNavigate = "navigate"
	msgViewport = "viewport"
)

// Server message types.
const (
	msgDocument = "document"
	msgActive   = "active"
	msgLayout   = "layout"
	msgScroll   = "scroll"
	msgFragment = "fragment"
)

// ClientMessage is what the reader page sends. A page served fully rendered
// sends attach with its pk and highlighted entry in ID; the server then
// tracks that document without sending it again.
type ClientMessage struct {
	Type string `json:"type"`

	PK       string `json:"pk,omitempty"`
	ID       string `json:"id,omitempty"`
	Fragment string `json:"fragment,omitempty"`

	// IDs are headings the page's intersection observer found in view.
	IDs []string `json:"ids,omitempty"`
	// Rects are raw heading boxes; the band is computed server side.
	Rects []catalogue.Rect `json:"rects,omitempty"`

	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// ServerMessage is what the channel pushes to the page.
type ServerMessage struct {
	Type string `json:"type"`

	PK        string            `json:"pk,omitempty"`
	Title     string            `json:"title,omitempty"`
	HTML      string            `json:"html,omitempty"`
	Catalogue []catalogue.Entry `json:"catalogue,omitempty"`
	Pending   bool              `json:"pending,omitempty"`
	Repaint   bool              `json:"repaint,omitempty"`

	ID       string `json:"id,omitempty"`
	Active   string `json:"active,omitempty"`
	Smooth   bool   `json:"smooth,omitempty"`
	Fragment string `json:"fragment,omitempty"`
	View     string `json:"view,omitempty"`
}
