package parser

import (
	gast "github.com/yuin/goldmark/ast"
	gparser "github.com/yuin/goldmark/parser"
)

// anchors assigns heading ids unique within one document. It uses the same
// generator goldmark applies to Markdown headings, so a heading gets the
// same anchor whatever format it came from.
type anchors struct {
	ids gparser.IDs
}

func newAnchors() *anchors { return &anchors{ids: gparser.NewContext().IDs()} }

func (a *anchors) generate(text string) string {
	return string(a.ids.Generate([]byte(text), gast.KindHeading))
}

// reserve marks an explicit id as taken.
func (a *anchors) reserve(id string) {
	a.ids.Put([]byte(id))
}
