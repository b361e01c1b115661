// Package render maps a document AST to HTML.
//
// Dispatch is a switch over ast.Kind. A node of an unknown kind renders as a
// visible inline marker and a logged warning; its siblings keep rendering.
//
// Children of every node, the document root included, are rendered
// individually unless any descendant is raw markup (html or inlineHtml). In that case the
// text, html and inlineHtml contents of the whole subtree are concatenated
// depth-first and emitted as one literal markup span. Parsers split inline
// tags across adjacent text runs, so the pieces have to be rejoined to form
// valid markup. Any emphasis, links or code among those children lose their
// own styling; that loss is accepted.
package render

import (
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/dgallion1/docview/internal/ast"
	"github.com/dgallion1/docview/internal/lazy"
	"golang.org/x/net/html"
)

// CodeLeaf renders fenced code blocks.
type CodeLeaf interface {
	Render(code, language string, theme lazy.Theme) lazy.Fragment
}

// MathLeaf renders inline and display math.
type MathLeaf interface {
	Render(tex string, display bool, theme lazy.Theme) lazy.Fragment
}

// Output is the result of one render pass.
type Output struct {
	HTML string
	// Pending is set when at least one lazy leaf showed its placeholder.
	Pending bool
	// Unhandled lists node kinds that rendered as error markers, in order.
	Unhandled []string
}

// Renderer renders AST nodes. It holds no per-document state; the same
// input always yields the same output once the lazy leaves are loaded.
type Renderer struct {
	code  CodeLeaf
	math  MathLeaf
	theme lazy.Theme
	log   *slog.Logger
}

// New creates a Renderer.
func New(code CodeLeaf, math MathLeaf, theme lazy.Theme, log *slog.Logger) *Renderer {
	return &Renderer{code: code, math: math, theme: theme, log: log}
}

// WithTheme returns a copy rendering with theme.
func (r *Renderer) WithTheme(theme lazy.Theme) *Renderer {
	cp := *r
	cp.theme = theme
	return &cp
}

// Render renders node in the namespace of the document pk.
func (r *Renderer) Render(node *ast.Node, pk string) Output {
	p := &pass{r: r, pk: pk}
	p.node(node)
	return Output{HTML: p.sb.String(), Pending: p.pending, Unhandled: p.unhandled}
}

// RenderDocument renders a fetched document including its title block.
func (r *Renderer) RenderDocument(doc *ast.DocInfo, pk string) Output {
	return r.Render(doc.Root(), pk)
}

type pass struct {
	r         *Renderer
	pk        string
	sb        strings.Builder
	pending   bool
	unhandled []string
}

func (p *pass) w(s string) { p.sb.WriteString(s) }

func (p *pass) text(s string) { p.sb.WriteString(html.EscapeString(s)) }

func (p *pass) fragment(f lazy.Fragment) {
	if f.Pending {
		p.pending = true
	}
	p.w(f.HTML)
}

// wrap writes <tag class="..."> followed by the rendered children and </tag>.
func (p *pass) wrap(tag, class string, n *ast.Node) {
	p.w("<" + tag)
	if class != "" {
		p.w(` class="` + class + `"`)
	}
	p.w(">")
	p.children(n)
	p.w("</" + tag + ">")
}

func (p *pass) node(n *ast.Node) {
	if n == nil {
		return
	}
	a := n.Attributes

	switch n.Type {
	case ast.KindDocument:
		p.document(n)

	case ast.KindHeading:
		p.heading(n)

	case ast.KindParagraph:
		p.wrap("p", "paragraph", n)

	case ast.KindText:
		p.text(n.Content)

	case ast.KindStrong:
		p.wrap("strong", "strong", n)

	case ast.KindEmphasis:
		p.wrap("em", "emphasis", n)

	case ast.KindDelete:
		p.wrap("del", "delete", n)

	case ast.KindLink:
		p.w(`<a href="` + attr(a.String("href")) + `"`)
		if title := a.String("title"); title != "" {
			p.w(` title="` + attr(title) + `"`)
		}
		p.w(` class="link" target="_blank" rel="noopener noreferrer">`)
		p.children(n)
		p.w("</a>")

	case ast.KindImage:
		p.w(`<img src="` + attr(ImageSource(p.pk, a.String("src"))) + `" alt="` + attr(a.String("alt")) + `" class="image">`)

	case ast.KindBlockQuote:
		p.wrap("blockquote", "blockquote", n)

	case ast.KindList:
		if a.Bool("ordered") {
			p.wrap("ol", "list list-decimal", n)
		} else {
			p.wrap("ul", "list list-disc", n)
		}

	case ast.KindListItem:
		p.wrap("li", "", n)

	case ast.KindTable:
		p.w(`<div class="table-wrap">`)
		p.wrap("table", "table", n)
		p.w(`</div>`)

	case ast.KindTableHead:
		p.wrap("thead", "table-head", n)

	case ast.KindTableBody:
		p.wrap("tbody", "table-body", n)

	case ast.KindTableRow:
		p.wrap("tr", "table-row", n)

	case ast.KindTableCell:
		p.cell(n)

	case ast.KindCodeBlock:
		p.fragment(p.r.code.Render(n.Content, a.String("language"), p.r.theme))

	case ast.KindInlineCode:
		p.w(`<code class="inline-code">`)
		p.text(n.Content)
		p.w(`</code>`)

	case ast.KindInlineMath:
		p.fragment(p.r.math.Render(n.Content, false, p.r.theme))

	case ast.KindMathBlock:
		p.fragment(p.r.math.Render(n.Content, true, p.r.theme))

	case ast.KindThematicBreak:
		p.w(`<hr class="rule">`)

	case ast.KindHTML, ast.KindInlineHTML:
		p.w(`<span class="raw-html">` + n.Content + `</span>`)

	default:
		p.r.log.Warn("unhandled node type", "type", string(n.Type), "pk", p.pk)
		p.unhandled = append(p.unhandled, string(n.Type))
		p.w(`<div class="unhandled">[Unhandled node type: `)
		p.text(string(n.Type))
		p.w(`]</div>`)
	}
}

// children renders n's children, merging them into one raw markup span when
// the subtree contains raw HTML.
func (p *pass) children(n *ast.Node) {
	if len(n.Children) == 0 {
		return
	}
	if HasHTMLDescendant(n) {
		p.w(`<span class="raw-html">` + MergedMarkup(n) + `</span>`)
		return
	}
	for _, c := range n.Children {
		p.node(c)
	}
}

func (p *pass) document(n *ast.Node) {
	a := n.Attributes
	p.w(`<header class="doc-title-block"><h1 class="doc-title">`)
	p.text(a.String("title"))
	p.w(`</h1><p class="doc-date">`)
	p.text(a.String("date"))
	p.w(`</p><div class="doc-tags">`)
	for _, tag := range a.Strings("tags") {
		p.w(`<span class="badge">`)
		p.text(tag)
		p.w(`</span>`)
	}
	p.w(`</div></header>`)
	p.children(n)
}

func (p *pass) cell(n *ast.Node) {
	a := n.Attributes
	tag, class := "td", "table-cell"
	if a.Bool("header") {
		tag, class = "th", "table-header-cell"
	}
	p.wrap(tag, class+" align-"+CellAlign(a.String("align")), n)
}

// HasHTMLDescendant reports whether any node below n is raw markup.
func HasHTMLDescendant(n *ast.Node) bool {
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		if c.Type.IsHTML() || HasHTMLDescendant(c) {
			return true
		}
	}
	return false
}

// MergedMarkup concatenates, depth-first, the content of every text, html
// and inlineHtml node below n. Other nodes contribute only their descendants.
func MergedMarkup(n *ast.Node) string {
	var sb strings.Builder
	var visit func(*ast.Node)
	visit = func(c *ast.Node) {
		if c == nil {
			return
		}
		switch {
		case c.Type == ast.KindText || c.Type.IsHTML():
			sb.WriteString(c.Content)
		default:
			for _, gc := range c.Children {
				visit(gc)
			}
		}
	}
	for _, c := range n.Children {
		visit(c)
	}
	return sb.String()
}

// ImageSource resolves a document-relative image path to docs/<pk>/<src>.
// Absolute URLs and rooted paths are returned unchanged.
func ImageSource(pk, src string) string {
	if src == "" {
		return ""
	}
	if u, err := url.Parse(src); err == nil && (u.Scheme != "" || strings.HasPrefix(src, "//")) {
		return src
	}
	if strings.HasPrefix(src, "/") {
		return src
	}
	return path.Join("docs", pk, src)
}

// CellAlign normalizes a table cell alignment to left, center or right.
func CellAlign(align string) string {
	switch align {
	case "center", "right":
		return align
	}
	return "left"
}

func attr(s string) string { return html.EscapeString(s) }
