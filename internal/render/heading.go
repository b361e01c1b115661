package render

import (
	"strconv"

	"github.com/dgallion1/docview/internal/ast"
)

// headingClasses holds the styling for levels 1 through 4.
var headingClasses = [...]string{
	1: "heading heading-1",
	2: "heading heading-2",
	3: "heading heading-3",
	4: "heading heading-4",
}

// HeadingLevel returns the styling level of a heading: anything outside
// 1..4, including a missing level, is styled as level 1.
func HeadingLevel(n *ast.Node) int {
	level := n.Attributes.Int("level", 1)
	if level < 1 || level >= len(headingClasses) {
		return 1
	}
	return level
}

// headingTag keeps h1..h6 for the document outline; other levels use h1.
func headingTag(n *ast.Node) string {
	level := n.Attributes.Int("level", 1)
	if level < 1 || level > 6 {
		level = 1
	}
	return "h" + strconv.Itoa(level)
}

func (p *pass) heading(n *ast.Node) {
	tag := headingTag(n)

	p.w("<" + tag + ` class="` + headingClasses[HeadingLevel(n)] + `"`)
	if id := n.Attributes.String("id"); id != "" {
		p.w(` id="` + attr(id) + `"`)
	}
	p.w(">")
	p.children(n)
	p.w("</" + tag + ">")
}
