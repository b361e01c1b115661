package catalogue

import "sync"

// Visibility band parameters. A heading counts as in view while at least
// Threshold of its height lies between TopMargin pixels below the top edge
// and BottomMarginRatio of the viewport height above the bottom edge.
const (
	Threshold         = 0.3
	TopMargin         = 100.0
	BottomMarginRatio = 0.66
)

// Viewport is the visible area in CSS pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Band returns the top and bottom edges of the tracking band.
func (v Viewport) Band() (top, bottom float64) {
	return TopMargin, v.Height - v.Height*BottomMarginRatio
}

// Rect is a heading's box relative to the viewport's top edge.
type Rect struct {
	ID     string  `json:"id"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Ratio is the fraction of r's height inside the band.
func (v Viewport) Ratio(r Rect) float64 {
	top, bottom := v.Band()
	if bottom <= top {
		return 0
	}
	if r.Height <= 0 {
		if r.Top >= top && r.Top <= bottom {
			return 1
		}
		return 0
	}
	lo := max(r.Top, top)
	hi := min(r.Top+r.Height, bottom)
	if hi <= lo {
		return 0
	}
	return (hi - lo) / r.Height
}

// Intersecting reports whether r meets the visibility threshold.
func (v Viewport) Intersecting(r Rect) bool {
	return v.Ratio(r) >= Threshold
}

// Signal delivers visibility events to subscribers.
type Signal interface {
	Subscribe(fn func(Visible)) (unsubscribe func())
}

// ViewportSignal turns heading geometry or browser-computed id lists into
// Visible events. Like a browser intersection observer it only reports
// headings that were not intersecting at the previous report.
type ViewportSignal struct {
	mu     sync.Mutex
	subs   map[int]func(Visible)
	nextID int
	inside map[string]bool
}

func NewViewportSignal() *ViewportSignal {
	return &ViewportSignal{
		subs:   make(map[int]func(Visible)),
		inside: make(map[string]bool),
	}
}

func (s *ViewportSignal) Subscribe(fn func(Visible)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Report computes intersections for rects and emits the headings that newly
// entered the band, in rect order.
func (s *ViewportSignal) Report(vp Viewport, rects []Rect) {
	s.mu.Lock()
	var entered []string
	now := make(map[string]bool, len(rects))
	for _, r := range rects {
		if !vp.Intersecting(r) {
			continue
		}
		now[r.ID] = true
		if !s.inside[r.ID] {
			entered = append(entered, r.ID)
		}
	}
	s.inside = now
	s.mu.Unlock()

	s.Emit(entered)
}

// Emit delivers ids as one Visible event. An empty list is not delivered.
func (s *ViewportSignal) Emit(ids []string) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	subs := make([]func(Visible), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	ev := Visible{Candidates: append([]string(nil), ids...)}
	for _, fn := range subs {
		fn(ev)
	}
}

// Reset forgets which headings were inside the band.
func (s *ViewportSignal) Reset() {
	s.mu.Lock()
	s.inside = make(map[string]bool)
	s.mu.Unlock()
}
