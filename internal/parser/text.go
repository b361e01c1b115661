package parser

import (
	"bufio"
	"io"

	"github.com/dgallion1/docview/internal/ast"
)

// TextParser handles plain text files. Blank lines separate paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*ast.Node, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []byte
	for scanner.Scan() {
		lines = append(lines, scanner.Bytes()...)
		lines = append(lines, '\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var children []*ast.Node
	for _, para := range splitParagraphs(string(lines)) {
		children = append(children, paragraph(para))
	}
	return newDocument(baseTitle(filename), "", nil, children), nil
}
