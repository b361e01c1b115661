package ast

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Kind is the type tag of a node. Values outside the known set are kept as-is
// so renderers can report them instead of failing.
type Kind string

const (
	KindDocument      Kind = "document"
	KindHeading       Kind = "heading"
	KindParagraph     Kind = "paragraph"
	KindText          Kind = "text"
	KindLink          Kind = "link"
	KindImage         Kind = "image"
	KindInlineCode    Kind = "inlineCode"
	KindCodeBlock     Kind = "codeBlock"
	KindList          Kind = "list"
	KindListItem      Kind = "listItem"
	KindTable         Kind = "table"
	KindTableHead     Kind = "tableHead"
	KindTableBody     Kind = "tableBody"
	KindTableRow      Kind = "tableRow"
	KindTableCell     Kind = "tableCell"
	KindEmphasis      Kind = "emphasis"
	KindStrong        Kind = "strong"
	KindDelete        Kind = "delete"
	KindBlockQuote    Kind = "blockQuote"
	KindHTML          Kind = "html"
	KindInlineHTML    Kind = "inlineHtml"
	KindInlineMath    Kind = "inlineMath"
	KindMathBlock     Kind = "mathBlock"
	KindThematicBreak Kind = "thematicBreak"
)

var knownKinds = map[Kind]bool{
	KindDocument: true, KindHeading: true, KindParagraph: true, KindText: true,
	KindLink: true, KindImage: true, KindInlineCode: true, KindCodeBlock: true,
	KindList: true, KindListItem: true, KindTable: true, KindTableHead: true,
	KindTableBody: true, KindTableRow: true, KindTableCell: true,
	KindEmphasis: true, KindStrong: true, KindDelete: true, KindBlockQuote: true,
	KindHTML: true, KindInlineHTML: true, KindInlineMath: true,
	KindMathBlock: true, KindThematicBreak: true,
}

// Known reports whether k is one of the node kinds renderers understand.
func (k Kind) Known() bool { return knownKinds[k] }

// IsHTML reports whether k carries raw markup.
func (k Kind) IsHTML() bool { return k == KindHTML || k == KindInlineHTML }

// Node is the universal tree element handed over by the markdown parser.
type Node struct {
	Type       Kind       `json:"type"`
	Children   []*Node    `json:"children,omitempty"`
	Content    string     `json:"content,omitempty"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// UnmarshalJSON decodes leniently: a malformed content value or child is
// dropped rather than failing the whole tree.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type       Kind              `json:"type"`
		Children   []json.RawMessage `json:"children"`
		Content    json.RawMessage   `json:"content"`
		Attributes json.RawMessage   `json:"attributes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n.Type = raw.Type
	n.Content = ""
	n.Children = nil
	n.Attributes = nil

	if len(raw.Content) > 0 {
		var s string
		if err := json.Unmarshal(raw.Content, &s); err == nil {
			n.Content = s
		}
	}
	if len(raw.Attributes) > 0 {
		var attrs Attributes
		if err := json.Unmarshal(raw.Attributes, &attrs); err == nil {
			n.Attributes = attrs
		}
	}
	for _, rc := range raw.Children {
		if !bytes.HasPrefix(bytes.TrimSpace(rc), []byte("{")) {
			continue
		}
		var child Node
		if err := json.Unmarshal(rc, &child); err != nil {
			continue
		}
		n.Children = append(n.Children, &child)
	}
	return nil
}

// Attr returns the node's attributes, tolerating a nil node.
func (n *Node) Attr() Attributes {
	if n == nil {
		return nil
	}
	return n.Attributes
}

// Walk visits n and its descendants depth-first in document order. Returning
// false from fn skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// TextContent concatenates the content of every text-bearing descendant.
func TextContent(n *Node) string {
	var sb strings.Builder
	Walk(n, func(c *Node) bool {
		switch c.Type {
		case KindText, KindInlineCode, KindInlineMath:
			sb.WriteString(c.Content)
		}
		return true
	})
	return sb.String()
}

// Text builds a text leaf.
func Text(s string) *Node { return &Node{Type: KindText, Content: s} }

// New builds a container node.
func New(kind Kind, attrs Attributes, children ...*Node) *Node {
	return &Node{Type: kind, Attributes: attrs, Children: children}
}
