// Package catalogue derives a document's table of contents and tracks which
// heading is active as the reader scrolls or clicks.
package catalogue

import (
	"github.com/dgallion1/docview/internal/ast"
)

// Entry is one catalogue line. ID is the heading's anchor.
type Entry struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
	Label string `json:"label"`
}

// Href is the fragment link for the entry.
func (e Entry) Href() string { return "#" + e.ID }

// Build lists the headings that are direct children of doc, in document
// order. Headings without an id cannot be scrolled to and are skipped; a
// repeated id keeps its first occurrence.
func Build(doc *ast.Node) []Entry {
	if doc == nil {
		return nil
	}
	var entries []Entry
	seen := make(map[string]bool)
	for _, c := range doc.Children {
		if c == nil || c.Type != ast.KindHeading {
			continue
		}
		id := c.Attributes.String("id")
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		entries = append(entries, Entry{
			ID:    id,
			Level: c.Attributes.Int("level", 1),
			Label: ast.TextContent(c),
		})
	}
	return entries
}

func indexOf(entries []Entry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
