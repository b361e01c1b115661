package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/dgallion1/docview/internal/ast"
	"github.com/dgallion1/docview/internal/catalogue"
	"github.com/dgallion1/docview/internal/lazy"
)

//go:embed assets
var assets embed.FS

// PageData is everything the reader page template needs.
type PageData struct {
	Title string
	PK    string
	Theme lazy.Theme

	Docs      []ast.DocRow
	Article   template.HTML
	Catalogue []catalogue.Entry
	Active    string
	// Pending is set when some leaves still show their loading placeholder;
	// the page script then asks the live channel for a repaint.
	Pending bool

	MathScripts []string
}

// Pages renders reader pages.
type Pages struct {
	tmpl *template.Template
}

// NewPages parses the embedded page template.
func NewPages() (*Pages, error) {
	tmpl, err := template.New("page.html.tmpl").Funcs(template.FuncMap{
		"docHref": DocHref,
		"levelClass": func(level int) string {
			return fmt.Sprintf("level-%d", min(max(level, 1), 4))
		},
	}).ParseFS(assets, "assets/page.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Pages{tmpl: tmpl}, nil
}

// Render writes the page for data to w.
func (p *Pages) Render(w io.Writer, data PageData) error {
	if data.Theme == "" {
		data.Theme = lazy.ThemeLight
	}
	if err := p.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// DocHref is the reader URL of the document pk.
func DocHref(pk string) string {
	return "/read/" + url.PathEscape(pk)
}

// Assets serves the embedded client script and stylesheet.
func Assets() http.Handler {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		panic(err)
	}
	return http.FileServerFS(sub)
}
