package catalogue

import (
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/dgallion1/docview/internal/ast"
)

// Navigator performs scrolling and location updates on the reader's side.
type Navigator interface {
	ScrollIntoView(id string, smooth bool)
	// ReplaceFragment rewrites the location fragment without navigating.
	ReplaceFragment(fragment string)
}

// Tracker owns the catalogue of the currently shown document and its active
// heading. Mount tears down whatever was tracked before; no state carries
// across documents.
type Tracker struct {
	nav    Navigator
	signal Signal
	log    *slog.Logger

	mu       sync.Mutex
	entries  []Entry
	state    State
	unsub    func()
	onChange func(active string)
	closed   bool
}

func NewTracker(nav Navigator, signal Signal, log *slog.Logger) *Tracker {
	return &Tracker{nav: nav, signal: signal, log: log}
}

// OnChange registers fn to be called with the new active id whenever it
// changes.
func (t *Tracker) OnChange(fn func(active string)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Mount builds the catalogue for doc, activates its first heading and starts
// listening for visibility events.
func (t *Tracker) Mount(doc *ast.Node) []Entry {
	entries := Build(doc)

	t.mu.Lock()
	if t.unsub != nil {
		t.unsub()
		t.unsub = nil
	}
	before := t.state.Active()
	t.entries = entries
	t.state = Next(entries, State{}, Mounted{})
	after := t.state.Active()
	if t.signal != nil && !t.closed {
		t.unsub = t.signal.Subscribe(t.observe)
	}
	fn := t.onChange
	t.mu.Unlock()

	t.log.Debug("catalogue mounted", "entries", len(entries), "active", after)
	if fn != nil && after != before {
		fn(after)
	}
	return entries
}

func (t *Tracker) observe(ev Visible) {
	t.apply(ev)
}

// Click scrolls smoothly to id, rewrites the fragment and marks the entry
// active until the next visibility event. Unknown ids are ignored.
func (t *Tracker) Click(id string) bool {
	if !t.known(id) {
		return false
	}
	if t.nav != nil {
		t.nav.ScrollIntoView(id, true)
		t.nav.ReplaceFragment("#" + id)
	}
	t.apply(Clicked{ID: id})
	return true
}

// NavigateFragment handles arriving at a "#id" location: the heading is
// scrolled into view and marked active.
func (t *Tracker) NavigateFragment(fragment string) bool {
	id := strings.TrimPrefix(fragment, "#")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	if !t.known(id) {
		return false
	}
	if t.nav != nil {
		t.nav.ScrollIntoView(id, false)
	}
	t.apply(Clicked{ID: id})
	return true
}

// Activate marks id active without scrolling, for a page that arrives with
// an entry already highlighted. Unknown ids are ignored.
func (t *Tracker) Activate(id string) bool {
	if !t.known(id) {
		return false
	}
	t.apply(Clicked{ID: id})
	return true
}

func (t *Tracker) apply(ev Event) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	before := t.state.Active()
	t.state = Next(t.entries, t.state, ev)
	after := t.state.Active()
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil && after != before {
		fn(after)
	}
}

func (t *Tracker) known(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return indexOf(t.entries, id) >= 0
}

// Active returns the active heading id.
func (t *Tracker) Active() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Active()
}

// State returns a snapshot of the tracker state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Entries returns the current catalogue.
func (t *Tracker) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// Close stops listening for visibility events. Later events are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unsub != nil {
		t.unsub()
		t.unsub = nil
	}
	t.closed = true
}
