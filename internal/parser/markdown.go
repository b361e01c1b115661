package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docview/internal/ast"
	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	gparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// MarkdownParser handles Markdown files using goldmark with GitHub
// extensions. A leading YAML front matter block supplies title, date and tags.
type MarkdownParser struct{}

type frontMatter struct {
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
	Tags  any    `yaml:"tags"`
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*ast.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	meta, body, err := splitFrontMatter(src)
	if err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(gparser.WithAutoHeadingID()),
	)
	doc := md.Parser().Parse(text.NewReader(body))

	c := &mdConverter{src: body}
	children := c.blocks(doc)

	title := meta.Title
	if title == "" {
		title = baseTitle(filename)
	}
	return newDocument(title, meta.Date, tagList(meta.Tags), children), nil
}

// splitFrontMatter separates a "---" delimited YAML header from the body.
func splitFrontMatter(src []byte) (frontMatter, []byte, error) {
	var meta frontMatter
	normalized := bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return meta, src, nil
	}
	rest := normalized[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return meta, src, nil
	}
	header := rest[:end]
	after := rest[end+len("\n---"):]
	if nl := bytes.IndexByte(after, '\n'); nl >= 0 {
		if strings.TrimSpace(string(after[:nl])) != "" {
			return meta, src, nil
		}
		after = after[nl+1:]
	} else if strings.TrimSpace(string(after)) != "" {
		return meta, src, nil
	} else {
		after = nil
	}

	if err := yaml.Unmarshal(header, &meta); err != nil {
		return meta, nil, err
	}
	return meta, after, nil
}

func tagList(v any) []string {
	switch t := v.(type) {
	case string:
		var tags []string
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	case []any:
		tags := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	}
	return nil
}

type mdConverter struct {
	src []byte
}

func (c *mdConverter) blocks(parent gast.Node) []*ast.Node {
	var out []*ast.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, c.node(n)...)
	}
	return out
}

func (c *mdConverter) lines(n gast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(c.src))
	}
	return buf.String()
}

// node converts one goldmark node. Kinds without a counterpart contribute
// their children.
func (c *mdConverter) node(n gast.Node) []*ast.Node {
	switch node := n.(type) {
	case *gast.Heading:
		attrs := ast.Attributes{"level": node.Level}
		if id, ok := node.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				attrs["id"] = string(b)
			}
		}
		return one(ast.New(ast.KindHeading, attrs, c.blocks(node)...))

	case *gast.Paragraph:
		return one(ast.New(ast.KindParagraph, nil, c.blocks(node)...))

	case *gast.TextBlock:
		return c.blocks(node)

	case *gast.Text:
		s := html.UnescapeString(string(node.Segment.Value(c.src)))
		if node.SoftLineBreak() || node.HardLineBreak() {
			s += "\n"
		}
		return one(ast.Text(s))

	case *gast.String:
		return one(ast.Text(string(node.Value)))

	case *gast.Emphasis:
		kind := ast.KindEmphasis
		if node.Level >= 2 {
			kind = ast.KindStrong
		}
		return one(ast.New(kind, nil, c.blocks(node)...))

	case *extast.Strikethrough:
		return one(ast.New(ast.KindDelete, nil, c.blocks(node)...))

	case *gast.Link:
		attrs := ast.Attributes{"href": string(node.Destination)}
		if len(node.Title) > 0 {
			attrs["title"] = string(node.Title)
		}
		return one(ast.New(ast.KindLink, attrs, c.blocks(node)...))

	case *gast.AutoLink:
		href := string(node.URL(c.src))
		if node.AutoLinkType == gast.AutoLinkEmail && !strings.HasPrefix(href, "mailto:") {
			href = "mailto:" + href
		}
		return one(ast.New(ast.KindLink, ast.Attributes{"href": href}, ast.Text(string(node.Label(c.src)))))

	case *gast.Image:
		attrs := ast.Attributes{
			"src": string(node.Destination),
			"alt": ast.TextContent(ast.New(ast.KindParagraph, nil, c.blocks(node)...)),
		}
		if len(node.Title) > 0 {
			attrs["title"] = string(node.Title)
		}
		return one(&ast.Node{Type: ast.KindImage, Attributes: attrs})

	case *gast.CodeSpan:
		var buf strings.Builder
		for ch := node.FirstChild(); ch != nil; ch = ch.NextSibling() {
			switch t := ch.(type) {
			case *gast.Text:
				buf.Write(t.Segment.Value(c.src))
			case *gast.String:
				buf.Write(t.Value)
			}
		}
		code := buf.String()
		if len(code) > 2 && strings.HasPrefix(code, "$") && strings.HasSuffix(code, "$") {
			return one(&ast.Node{Type: ast.KindInlineMath, Content: code[1 : len(code)-1]})
		}
		return one(&ast.Node{Type: ast.KindInlineCode, Content: code})

	case *gast.FencedCodeBlock:
		lang := strings.TrimSpace(string(node.Language(c.src)))
		if strings.EqualFold(lang, "math") || strings.EqualFold(lang, "latex") {
			return one(&ast.Node{Type: ast.KindMathBlock, Content: c.lines(node)})
		}
		attrs := ast.Attributes{}
		if lang != "" {
			attrs["language"] = lang
		}
		return one(&ast.Node{Type: ast.KindCodeBlock, Content: c.lines(node), Attributes: attrs})

	case *gast.CodeBlock:
		return one(&ast.Node{Type: ast.KindCodeBlock, Content: c.lines(node)})

	case *gast.Blockquote:
		return one(ast.New(ast.KindBlockQuote, nil, c.blocks(node)...))

	case *gast.List:
		attrs := ast.Attributes{"ordered": node.IsOrdered()}
		if node.IsOrdered() && node.Start != 1 {
			attrs["start"] = node.Start
		}
		return one(ast.New(ast.KindList, attrs, c.blocks(node)...))

	case *gast.ListItem:
		return one(ast.New(ast.KindListItem, nil, c.blocks(node)...))

	case *extast.TaskCheckBox:
		if node.IsChecked {
			return one(ast.Text("[x] "))
		}
		return one(ast.Text("[ ] "))

	case *gast.ThematicBreak:
		return one(&ast.Node{Type: ast.KindThematicBreak})

	case *gast.HTMLBlock:
		content := c.lines(node)
		if node.HasClosure() {
			content += string(node.ClosureLine.Value(c.src))
		}
		return one(&ast.Node{Type: ast.KindHTML, Content: content})

	case *gast.RawHTML:
		var buf strings.Builder
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			buf.Write(seg.Value(c.src))
		}
		return one(&ast.Node{Type: ast.KindInlineHTML, Content: buf.String()})

	case *extast.Table:
		return one(c.table(node))
	}

	return c.blocks(n)
}

// table reshapes goldmark's header/rows into tableHead and tableBody.
func (c *mdConverter) table(t *extast.Table) *ast.Node {
	head := ast.New(ast.KindTableHead, nil)
	body := ast.New(ast.KindTableBody, nil)
	for n := t.FirstChild(); n != nil; n = n.NextSibling() {
		switch row := n.(type) {
		case *extast.TableHeader:
			head.Children = append(head.Children, ast.New(ast.KindTableRow, nil, c.cells(row, true)...))
		case *extast.TableRow:
			body.Children = append(body.Children, ast.New(ast.KindTableRow, nil, c.cells(row, false)...))
		}
	}
	return ast.New(ast.KindTable, nil, head, body)
}

func (c *mdConverter) cells(row gast.Node, header bool) []*ast.Node {
	var cells []*ast.Node
	for n := row.FirstChild(); n != nil; n = n.NextSibling() {
		cell, ok := n.(*extast.TableCell)
		if !ok {
			continue
		}
		attrs := ast.Attributes{"header": header}
		if cell.Alignment != extast.AlignNone {
			attrs["align"] = cell.Alignment.String()
		}
		cells = append(cells, ast.New(ast.KindTableCell, attrs, c.blocks(cell)...))
	}
	return cells
}

func one(n *ast.Node) []*ast.Node { return []*ast.Node{n} }
