package render

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dgallion1/docview/internal/ast"
	"github.com/dgallion1/docview/internal/lazy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCode struct {
	pending bool
	calls   []string
}

func (s *stubCode) Render(code, language string, theme lazy.Theme) lazy.Fragment {
	s.calls = append(s.calls, language)
	return lazy.Fragment{HTML: "<code-leaf lang=" + language + " theme=" + string(theme) + ">" + code + "</code-leaf>", Pending: s.pending}
}

type stubMath struct{ pending bool }

func (s *stubMath) Render(tex string, display bool, theme lazy.Theme) lazy.Fragment {
	if display {
		return lazy.Fragment{HTML: "<math-block>" + tex + "</math-block>", Pending: s.pending}
	}
	return lazy.Fragment{HTML: "<math-inline>" + tex + "</math-inline>", Pending: s.pending}
}

func newTestRenderer() (*Renderer, *stubCode, *stubMath) {
	code, math := &stubCode{}, &stubMath{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(code, math, lazy.ThemeLight, log), code, math
}

func text(s string) *ast.Node { return ast.Text(s) }

func TestRender_UnknownNodeDoesNotAbort(t *testing.T) {
	r, _, _ := newTestRenderer()
	doc := ast.New(ast.KindParagraph, nil,
		text("before"),
		&ast.Node{Type: "footnoteReference"},
		text("after"),
	)

	out := r.Render(doc, "a")
	assert.Equal(t,
		`<p class="paragraph">before<div class="unhandled">[Unhandled node type: footnoteReference]</div>after</p>`,
		out.HTML)
	assert.Equal(t, []string{"footnoteReference"}, out.Unhandled)
}

func TestRender_NeverPanicsOnMalformedTrees(t *testing.T) {
	r, _, _ := newTestRenderer()
	cases := []*ast.Node{
		nil,
		{},
		{Type: ast.KindHeading, Attributes: ast.Attributes{"level": "seven", "id": []any{1, 2}}},
		{Type: ast.KindLink, Attributes: ast.Attributes{"href": map[string]any{"x": 1}}},
		{Type: ast.KindImage},
		{Type: ast.KindTable, Children: []*ast.Node{nil, {Type: ast.KindTableRow}}},
		{Type: ast.KindList, Attributes: ast.Attributes{"ordered": "yes"}, Children: []*ast.Node{nil}},
		{Type: ast.KindCodeBlock},
		{Type: ast.KindDocument, Attributes: ast.Attributes{"tags": 5}},
		{Type: "<script>", Children: []*ast.Node{text("x")}},
	}
	for i, n := range cases {
		assert.NotPanics(t, func() { r.Render(n, "pk") }, "case %d", i)
	}

	out := r.Render(&ast.Node{Type: "<script>"}, "pk")
	assert.Contains(t, out.HTML, "[Unhandled node type: &lt;script&gt;]")
}

func TestRender_Idempotent(t *testing.T) {
	r, _, _ := newTestRenderer()
	doc := sampleDoc()
	first := r.Render(doc, "a")
	second := r.Render(doc, "a")
	assert.Equal(t, first, second)
}

func TestRender_MergesInlineHTML(t *testing.T) {
	r, _, _ := newTestRenderer()
	p := ast.New(ast.KindParagraph, nil,
		text("a"),
		&ast.Node{Type: ast.KindInlineHTML, Content: "<b>"},
		text("b"),
		&ast.Node{Type: ast.KindInlineHTML, Content: "</b>"},
	)

	out := r.Render(p, "a")
	assert.Equal(t, `<p class="paragraph"><span class="raw-html">a<b>b</b></span></p>`, out.HTML)
}

func TestRender_MergeReachesNestedHTMLAndDropsDecoration(t *testing.T) {
	r, _, _ := newTestRenderer()
	p := ast.New(ast.KindParagraph, nil,
		ast.New(ast.KindStrong, nil, text("bold ")),
		ast.New(ast.KindEmphasis, nil,
			&ast.Node{Type: ast.KindInlineHTML, Content: "<sup>"},
			text("2"),
			&ast.Node{Type: ast.KindInlineHTML, Content: "</sup>"},
		),
		&ast.Node{Type: ast.KindInlineCode, Content: "ignored"},
	)

	out := r.Render(p, "a")
	assert.Equal(t, `<p class="paragraph"><span class="raw-html">bold <sup>2</sup></span></p>`, out.HTML)
	assert.True(t, HasHTMLDescendant(p))
	assert.False(t, HasHTMLDescendant(ast.New(ast.KindParagraph, nil, text("plain"))))
}

func TestRender_DocumentRootMergesRawMarkup(t *testing.T) {
	r, _, _ := newTestRenderer()
	doc := ast.New(ast.KindDocument, ast.Attributes{"title": "T"},
		text("a"),
		&ast.Node{Type: ast.KindInlineHTML, Content: "<b>"},
		text("b"),
		&ast.Node{Type: ast.KindInlineHTML, Content: "</b>"},
	)
	out := r.Render(doc, "a")
	assert.True(t, strings.HasSuffix(out.HTML, `</header><span class="raw-html">a<b>b</b></span>`), out.HTML)
	assert.Equal(t, 1, strings.Count(out.HTML, "raw-html"))
}

func TestRender_DocumentRootWithoutMarkupRendersPerChild(t *testing.T) {
	r, _, _ := newTestRenderer()
	doc := ast.New(ast.KindDocument, ast.Attributes{"title": "T"},
		ast.New(ast.KindHeading, ast.Attributes{"level": 2, "id": "h"}, text("Head")),
		ast.New(ast.KindParagraph, nil, text("body")),
	)
	out := r.Render(doc, "a")
	assert.Contains(t, out.HTML, `<h2 class="heading heading-2" id="h">Head</h2>`)
	assert.NotContains(t, out.HTML, "raw-html")
}

func TestRender_HeadingLevels(t *testing.T) {
	r, _, _ := newTestRenderer()
	heading := func(level any) string {
		attrs := ast.Attributes{"id": "x"}
		if level != nil {
			attrs["level"] = level
		}
		return r.Render(ast.New(ast.KindHeading, attrs, text("T")), "a").HTML
	}

	level1 := heading(1)
	assert.Equal(t, `<h1 class="heading heading-1" id="x">T</h1>`, level1)
	assert.Equal(t, `<h3 class="heading heading-3" id="x">T</h3>`, heading(float64(3)))
	assert.Equal(t, `<h4 class="heading heading-4" id="x">T</h4>`, heading(4))

	assert.Equal(t, level1, heading(7), "level 7 clamps to level 1")
	assert.Equal(t, `<h5 class="heading heading-1" id="x">T</h5>`, heading(5), "level 5 keeps its tag with level 1 styling")
	assert.Equal(t, `<h6 class="heading heading-1" id="x">T</h6>`, heading(6))
	assert.Equal(t, level1, heading(nil), "missing level defaults to 1")
	assert.Equal(t, level1, heading("bogus"))
	assert.Equal(t, level1, heading(0))
}

func TestRender_Link(t *testing.T) {
	r, _, _ := newTestRenderer()
	out := r.Render(ast.New(ast.KindLink, ast.Attributes{"href": "https://go.dev/?a=1&b=2", "title": "Go"}, text("go")), "a")
	assert.Equal(t,
		`<a href="https://go.dev/?a=1&amp;b=2" title="Go" class="link" target="_blank" rel="noopener noreferrer">go</a>`,
		out.HTML)

	out = r.Render(ast.New(ast.KindLink, nil, text("nowhere")), "a")
	assert.Contains(t, out.HTML, `href=""`)
	assert.Contains(t, out.HTML, `rel="noopener noreferrer"`)
}

func TestRender_Image(t *testing.T) {
	r, _, _ := newTestRenderer()
	out := r.Render(&ast.Node{Type: ast.KindImage, Attributes: ast.Attributes{"src": "img/cat.png", "alt": "a cat"}}, "intro")
	assert.Equal(t, `<img src="docs/intro/img/cat.png" alt="a cat" class="image">`, out.HTML)
}

func TestImageSource(t *testing.T) {
	assert.Equal(t, "docs/a/x.png", ImageSource("a", "x.png"))
	assert.Equal(t, "docs/a/x.png", ImageSource("a", "./x.png"))
	assert.Equal(t, "https://cdn.example/x.png", ImageSource("a", "https://cdn.example/x.png"))
	assert.Equal(t, "/static/x.png", ImageSource("a", "/static/x.png"))
	assert.Equal(t, "", ImageSource("a", ""))
}

func TestRender_Table(t *testing.T) {
	r, _, _ := newTestRenderer()
	table := ast.New(ast.KindTable, nil,
		ast.New(ast.KindTableHead, nil,
			ast.New(ast.KindTableRow, nil,
				ast.New(ast.KindTableCell, ast.Attributes{"header": true, "align": "center"}, text("H")),
			),
		),
		ast.New(ast.KindTableBody, nil,
			ast.New(ast.KindTableRow, nil,
				ast.New(ast.KindTableCell, ast.Attributes{"align": "right"}, text("1")),
				ast.New(ast.KindTableCell, ast.Attributes{"align": "diagonal"}, text("2")),
				ast.New(ast.KindTableCell, ast.Attributes{"header": "no"}, text("3")),
			),
		),
	)

	out := r.Render(table, "a").HTML
	assert.True(t, strings.HasPrefix(out, `<div class="table-wrap"><table class="table"><thead class="table-head">`))
	assert.Contains(t, out, `<th class="table-header-cell align-center">H</th>`)
	assert.Contains(t, out, `<td class="table-cell align-right">1</td>`)
	assert.Contains(t, out, `<td class="table-cell align-left">2</td>`)
	assert.Contains(t, out, `<td class="table-cell align-left">3</td>`)
	assert.True(t, strings.HasSuffix(out, `</tbody></table></div>`))
}

func TestRender_Lists(t *testing.T) {
	r, _, _ := newTestRenderer()
	item := ast.New(ast.KindListItem, nil, text("one"))

	ordered := r.Render(ast.New(ast.KindList, ast.Attributes{"ordered": true}, item), "a").HTML
	assert.Equal(t, `<ol class="list list-decimal"><li>one</li></ol>`, ordered)

	unordered := r.Render(ast.New(ast.KindList, nil, item), "a").HTML
	assert.Equal(t, `<ul class="list list-disc"><li>one</li></ul>`, unordered)
}

func TestRender_InlineMarks(t *testing.T) {
	r, _, _ := newTestRenderer()
	p := ast.New(ast.KindParagraph, nil,
		ast.New(ast.KindStrong, nil, text("s")),
		ast.New(ast.KindEmphasis, nil, text("e")),
		ast.New(ast.KindDelete, nil, text("d")),
		&ast.Node{Type: ast.KindInlineCode, Content: "a<b"},
		text(" & done"),
		&ast.Node{Type: ast.KindThematicBreak},
	)
	assert.Equal(t,
		`<p class="paragraph"><strong class="strong">s</strong><em class="emphasis">e</em><del class="delete">d</del><code class="inline-code">a&lt;b</code> &amp; done<hr class="rule"></p>`,
		r.Render(p, "a").HTML)
}

func TestRender_BlockQuote(t *testing.T) {
	r, _, _ := newTestRenderer()
	q := ast.New(ast.KindBlockQuote, nil, ast.New(ast.KindParagraph, nil, text("q")))
	assert.Equal(t, `<blockquote class="blockquote"><p class="paragraph">q</p></blockquote>`, r.Render(q, "a").HTML)
}

func TestRender_DocumentTitleBlock(t *testing.T) {
	r, _, _ := newTestRenderer()
	info := &ast.DocInfo{
		Node:  ast.Node{Type: ast.KindDocument, Children: []*ast.Node{ast.New(ast.KindParagraph, nil, text("body"))}},
		Title: "Intro <1>",
		Tags:  []string{"zeta", "alpha"},
		Date:  "2024-01-01",
	}
	out := r.RenderDocument(info, "a").HTML
	assert.Equal(t,
		`<header class="doc-title-block"><h1 class="doc-title">Intro &lt;1&gt;</h1><p class="doc-date">2024-01-01</p>`+
			`<div class="doc-tags"><span class="badge">zeta</span><span class="badge">alpha</span></div></header>`+
			`<p class="paragraph">body</p>`,
		out)
}

func TestRender_DelegatesLeaves(t *testing.T) {
	r, code, math := newTestRenderer()
	doc := ast.New(ast.KindDocument, nil,
		&ast.Node{Type: ast.KindCodeBlock, Content: "x", Attributes: ast.Attributes{"language": "go"}},
		&ast.Node{Type: ast.KindCodeBlock, Content: "y"},
		ast.New(ast.KindParagraph, nil, &ast.Node{Type: ast.KindInlineMath, Content: "a^2"}),
		&ast.Node{Type: ast.KindMathBlock, Content: "b^2"},
	)

	out := r.WithTheme(lazy.ThemeDark).Render(doc, "a")
	assert.False(t, out.Pending)
	assert.Equal(t, []string{"go", ""}, code.calls)
	assert.Contains(t, out.HTML, "<code-leaf lang=go theme=dark>x</code-leaf>")
	assert.Contains(t, out.HTML, "<math-inline>a^2</math-inline>")
	assert.Contains(t, out.HTML, "<math-block>b^2</math-block>")

	math.pending = true
	out = r.Render(doc, "a")
	assert.True(t, out.Pending)
}

func TestRender_PendingLeavesKeepDocumentOrder(t *testing.T) {
	r, code, _ := newTestRenderer()
	code.pending = true
	doc := ast.New(ast.KindDocument, nil,
		&ast.Node{Type: ast.KindMathBlock, Content: "first"},
		&ast.Node{Type: ast.KindCodeBlock, Content: "second"},
		ast.New(ast.KindParagraph, nil, text("third")),
	)
	out := r.Render(doc, "a")
	require.True(t, out.Pending)
	i1 := strings.Index(out.HTML, "first")
	i2 := strings.Index(out.HTML, "second")
	i3 := strings.Index(out.HTML, "third")
	assert.True(t, i1 < i2 && i2 < i3)
}

func sampleDoc() *ast.Node {
	return ast.New(ast.KindDocument, ast.Attributes{"title": "Intro", "date": "2024-01-01", "tags": []any{"x"}},
		ast.New(ast.KindHeading, ast.Attributes{"level": 1, "id": "h1"}, text("Hello")),
		ast.New(ast.KindParagraph, nil, text("World")),
		&ast.Node{Type: ast.KindCodeBlock, Content: "x", Attributes: ast.Attributes{"language": "go"}},
	)
}
