package view

import (
	"sync"

	"github.com/dgallion1/docview/internal/ast"
)

// Ticket identifies one document selection.
type Ticket struct {
	PK  string
	gen uint64
}

// Session tracks the document a reader is looking at. Fetches are not
// cancelled when the reader moves on, so every fetch carries the Ticket of
// the selection that started it and its result is dropped unless that
// selection is still the latest.
type Session struct {
	mu  sync.Mutex
	gen uint64
	pk  string
	doc *ast.DocInfo
}

func NewSession() *Session {
	return &Session{}
}

// Select records a new selection and returns its ticket.
func (s *Session) Select(pk string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.pk = pk
	s.doc = nil
	return Ticket{PK: pk, gen: s.gen}
}

// Valid reports whether t is still the latest selection.
func (s *Session) Valid(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.gen == s.gen
}

// Apply installs doc as the current document if t is still the latest
// selection. It reports whether doc was installed.
func (s *Session) Apply(t Ticket, doc *ast.DocInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.gen != s.gen {
		return false
	}
	s.doc = doc
	return true
}

// Current returns the selected pk and its document, which is nil until the
// fetch for the latest selection has been applied.
func (s *Session) Current() (string, *ast.DocInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pk, s.doc
}
