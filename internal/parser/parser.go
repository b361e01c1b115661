package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docview/internal/ast"
)

// Parser converts raw document bytes into a document AST. The root is always
// of type document and carries title, date and tags attributes.
type Parser interface {
	Parse(r io.Reader, filename string) (*ast.Node, error)
}

// SupportedExtensions lists file extensions the build can convert.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// baseTitle strips directories and the extension from filename.
func baseTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func newDocument(title, date string, tags []string, children []*ast.Node) *ast.Node {
	tagList := make([]any, len(tags))
	for i, t := range tags {
		tagList[i] = t
	}
	return &ast.Node{
		Type:     ast.KindDocument,
		Children: children,
		Attributes: ast.Attributes{
			"title": title,
			"date":  date,
			"tags":  tagList,
		},
	}
}

func heading(level int, id, text string) *ast.Node {
	return ast.New(ast.KindHeading, ast.Attributes{"level": level, "id": id}, ast.Text(text))
}

func paragraph(text string) *ast.Node {
	return ast.New(ast.KindParagraph, nil, ast.Text(text))
}

// splitParagraphs splits text on blank lines. Lines inside a paragraph keep
// their newlines.
func splitParagraphs(text string) []string {
	var paragraphs []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(strings.TrimRight(line, " \t\r"))
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return paragraphs
}
