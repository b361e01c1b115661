package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docview/internal/ast"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. Structural elements map onto AST nodes;
// unknown wrappers (div, section, span) are transparent.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*ast.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := baseTitle(filename)
	if t := findTitle(doc); t != "" {
		title = t
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}
	c := &htmlConverter{anchors: newAnchors()}
	children := c.blockChildren(root)

	return newDocument(title, findMeta(doc, "date"), tagList(findMeta(doc, "keywords")), children), nil
}

type htmlConverter struct {
	anchors *anchors
}

func isBlockTag(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6", "p", "pre", "ul", "ol", "blockquote",
		"table", "hr", "div", "section", "article", "main", "figure":
		return true
	}
	return false
}

// blockChildren converts children in block context. Runs of inline content
// between block elements are gathered into paragraphs.
func (c *htmlConverter) blockChildren(n *html.Node) []*ast.Node {
	var out, run []*ast.Node
	flush := func() {
		if len(run) > 0 && strings.TrimSpace(ast.TextContent(ast.New(ast.KindParagraph, nil, run...))) != "" {
			out = append(out, ast.New(ast.KindParagraph, nil, run...))
		}
		run = nil
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.ElementNode && skipTag(ch.Data) {
			continue
		}
		if ch.Type == html.ElementNode && isBlockTag(ch.Data) {
			flush()
			out = append(out, c.block(ch)...)
			continue
		}
		run = append(run, c.inline(ch)...)
	}
	flush()
	return out
}

func skipTag(tag string) bool {
	switch tag {
	case "script", "style", "nav", "footer", "header", "head", "template", "noscript":
		return true
	}
	return false
}

func (c *htmlConverter) block(n *html.Node) []*ast.Node {
	if level := headingLevel(n.Data); level > 0 {
		id := attrOf(n, "id")
		label := textContent(n)
		if id == "" {
			id = c.anchors.generate(label)
		} else {
			c.anchors.reserve(id)
		}
		return one(ast.New(ast.KindHeading, ast.Attributes{"level": level, "id": id}, c.inlineChildren(n)...))
	}

	switch n.Data {
	case "p":
		return one(ast.New(ast.KindParagraph, nil, c.inlineChildren(n)...))
	case "pre":
		code := n
		if fc := firstElement(n, "code"); fc != nil {
			code = fc
		}
		attrs := ast.Attributes{}
		if lang := languageOf(code); lang != "" {
			attrs["language"] = lang
		}
		return one(&ast.Node{Type: ast.KindCodeBlock, Content: rawText(code), Attributes: attrs})
	case "ul", "ol":
		var items []*ast.Node
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type == html.ElementNode && ch.Data == "li" {
				items = append(items, ast.New(ast.KindListItem, nil, c.mixedChildren(ch)...))
			}
		}
		return one(ast.New(ast.KindList, ast.Attributes{"ordered": n.Data == "ol"}, items...))
	case "blockquote":
		return one(ast.New(ast.KindBlockQuote, nil, c.blockChildren(n)...))
	case "table":
		return one(c.table(n))
	case "hr":
		return one(&ast.Node{Type: ast.KindThematicBreak})
	}
	return c.blockChildren(n)
}

// mixedChildren keeps a list item's inline content inline unless it holds
// block elements.
func (c *htmlConverter) mixedChildren(n *html.Node) []*ast.Node {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.ElementNode && isBlockTag(ch.Data) {
			return c.blockChildren(n)
		}
	}
	return c.inlineChildren(n)
}

func (c *htmlConverter) inlineChildren(n *html.Node) []*ast.Node {
	var out []*ast.Node
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		out = append(out, c.inline(ch)...)
	}
	return out
}

func (c *htmlConverter) inline(n *html.Node) []*ast.Node {
	switch n.Type {
	case html.TextNode:
		s := collapseSpace(n.Data)
		if s == "" {
			return nil
		}
		return one(ast.Text(s))
	case html.ElementNode:
	default:
		return nil
	}

	switch n.Data {
	case "a":
		attrs := ast.Attributes{"href": attrOf(n, "href")}
		if t := attrOf(n, "title"); t != "" {
			attrs["title"] = t
		}
		return one(ast.New(ast.KindLink, attrs, c.inlineChildren(n)...))
	case "img":
		return one(&ast.Node{Type: ast.KindImage, Attributes: ast.Attributes{
			"src": attrOf(n, "src"),
			"alt": attrOf(n, "alt"),
		}})
	case "em", "i":
		return one(ast.New(ast.KindEmphasis, nil, c.inlineChildren(n)...))
	case "strong", "b":
		return one(ast.New(ast.KindStrong, nil, c.inlineChildren(n)...))
	case "del", "s", "strike":
		return one(ast.New(ast.KindDelete, nil, c.inlineChildren(n)...))
	case "code", "kbd", "samp":
		return one(&ast.Node{Type: ast.KindInlineCode, Content: rawText(n)})
	case "br":
		return one(ast.Text("\n"))
	case "sup", "sub", "mark", "u":
		var sb strings.Builder
		if err := html.Render(&sb, n); err != nil {
			return c.inlineChildren(n)
		}
		return one(&ast.Node{Type: ast.KindInlineHTML, Content: sb.String()})
	}
	if skipTag(n.Data) {
		return nil
	}
	return c.inlineChildren(n)
}

func (c *htmlConverter) table(n *html.Node) *ast.Node {
	head := ast.New(ast.KindTableHead, nil)
	body := ast.New(ast.KindTableBody, nil)

	var visit func(*html.Node, bool)
	visit = func(n *html.Node, inHead bool) {
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type != html.ElementNode {
				continue
			}
			switch ch.Data {
			case "thead":
				visit(ch, true)
			case "tbody", "tfoot":
				visit(ch, false)
			case "tr":
				row := c.row(ch)
				allHeader := len(row.Children) > 0
				for _, cell := range row.Children {
					allHeader = allHeader && cell.Attributes.Bool("header")
				}
				if inHead || (allHeader && len(head.Children) == 0 && len(body.Children) == 0) {
					head.Children = append(head.Children, row)
				} else {
					body.Children = append(body.Children, row)
				}
			}
		}
	}
	visit(n, false)
	return ast.New(ast.KindTable, nil, head, body)
}

func (c *htmlConverter) row(tr *html.Node) *ast.Node {
	row := ast.New(ast.KindTableRow, nil)
	for ch := tr.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type != html.ElementNode || (ch.Data != "td" && ch.Data != "th") {
			continue
		}
		attrs := ast.Attributes{"header": ch.Data == "th"}
		align := attrOf(ch, "align")
		if align == "" {
			align = styleAlign(attrOf(ch, "style"))
		}
		if align != "" {
			attrs["align"] = align
		}
		row.Children = append(row.Children, ast.New(ast.KindTableCell, attrs, c.inlineChildren(ch)...))
	}
	return row
}

func styleAlign(style string) string {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(strings.ToLower(k)) == "text-align" {
			return strings.TrimSpace(strings.ToLower(v))
		}
	}
	return ""
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func attrOf(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func languageOf(n *html.Node) string {
	for _, class := range strings.Fields(attrOf(n, "class")) {
		if lang, ok := strings.CutPrefix(class, "language-"); ok {
			return lang
		}
		if lang, ok := strings.CutPrefix(class, "lang-"); ok {
			return lang
		}
	}
	return ""
}

func firstElement(n *html.Node, tag string) *html.Node {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.ElementNode && ch.Data == tag {
			return ch
		}
	}
	return nil
}

// rawText returns the text below n without whitespace collapsing.
func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func textContent(n *html.Node) string {
	return strings.TrimSpace(collapseSpace(rawText(n)))
}

// collapseSpace folds whitespace runs to one space, keeping a single leading
// or trailing space so adjacent inline runs stay separated.
func collapseSpace(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	fields := strings.Fields(s)
	out := strings.Join(fields, " ")
	if first := s[0]; first == ' ' || first == '\n' || first == '\t' || first == '\r' {
		out = " " + out
	}
	if last := s[len(s)-1]; last == ' ' || last == '\n' || last == '\t' || last == '\r' {
		out += " "
	}
	return out
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findMeta(n *html.Node, name string) string {
	if n.Type == html.ElementNode && n.Data == "meta" && strings.EqualFold(attrOf(n, "name"), name) {
		return attrOf(n, "content")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v := findMeta(c, name); v != "" {
			return v
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
