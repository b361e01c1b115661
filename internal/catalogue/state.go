package catalogue

// Mark records an id together with the sequence number of the event that
// set it.
type Mark struct {
	ID  string `json:"id"`
	Seq uint64 `json:"seq"`
}

// State is the active-heading state. Intent is the last clicked entry and
// Observed the last heading reported visible; whichever was set later is
// active. Initial is the mount default used until either fires.
type State struct {
	Initial  string `json:"initial"`
	Intent   Mark   `json:"intent"`
	Observed Mark   `json:"observed"`
	seq      uint64
}

// Active returns the id of the active entry, or "" before mount.
func (s State) Active() string {
	switch {
	case s.Intent.Seq == 0 && s.Observed.Seq == 0:
		return s.Initial
	case s.Intent.Seq > s.Observed.Seq:
		return s.Intent.ID
	default:
		return s.Observed.ID
	}
}

// Event is an input to Next.
type Event interface{ event() }

// Mounted is delivered once when a catalogue is built for a document.
type Mounted struct{}

// Visible reports headings that entered the viewport band, in the order the
// signal source delivered them.
type Visible struct {
	Candidates []string
}

// Clicked is a reader selecting an entry.
type Clicked struct {
	ID string
}

func (Mounted) event() {}
func (Visible) event() {}
func (Clicked) event() {}

// Next is the transition function for the active heading. It never mutates
// its inputs. Ids not in entries are ignored.
func Next(entries []Entry, s State, ev Event) State {
	switch ev := ev.(type) {
	case Mounted:
		var next State
		if len(entries) > 0 {
			next.Initial = entries[0].ID
		}
		return next

	case Visible:
		for _, id := range ev.Candidates {
			if indexOf(entries, id) < 0 {
				continue
			}
			s.seq++
			s.Observed = Mark{ID: id, Seq: s.seq}
			return s
		}
		return s

	case Clicked:
		if indexOf(entries, ev.ID) < 0 {
			return s
		}
		s.seq++
		s.Intent = Mark{ID: ev.ID, Seq: s.seq}
		return s
	}
	return s
}
