package ast

import (
	"encoding/json"
	"errors"
)

// ErrNotDocument is returned when a root node is not of type document.
var ErrNotDocument = errors.New("root node is not a document")

// DocInfo is a document root together with its title block fields.
type DocInfo struct {
	Node
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
	Date  string   `json:"date"`
}

// DocRow is the listing projection of a document.
type DocRow struct {
	Title string   `json:"title"`
	Date  string   `json:"date"`
	Tags  []string `json:"tags"`
	PK    string   `json:"pk"`
}

// InfoOf lifts a fetched root node into a DocInfo, reading title, tags and
// date from its attributes.
func InfoOf(root *Node) (*DocInfo, error) {
	if root == nil || root.Type != KindDocument {
		return nil, ErrNotDocument
	}
	tags := root.Attributes.Strings("tags")
	if tags == nil {
		tags = []string{}
	}
	return &DocInfo{
		Node: Node{
			Type:     KindDocument,
			Children: root.Children,
		},
		Title: root.Attributes.String("title"),
		Tags:  tags,
		Date:  root.Attributes.String("date"),
	}, nil
}

// Root returns the document as a plain node whose attributes carry the title
// block fields, so it can be handed to anything that accepts a *Node.
func (d *DocInfo) Root() *Node {
	attrs := Attributes{
		"title": d.Title,
		"date":  d.Date,
	}
	tags := make([]any, len(d.Tags))
	for i, t := range d.Tags {
		tags[i] = t
	}
	attrs["tags"] = tags
	return &Node{Type: KindDocument, Children: d.Children, Attributes: attrs}
}

// NotFound is the document returned when a primary key cannot be resolved.
func NotFound() *DocInfo {
	return &DocInfo{
		Node:  Node{Type: KindDocument},
		Title: "Not Found",
		Tags:  []string{},
		Date:  "",
	}
}

// UnmarshalJSON restores a DocInfo encoded with its title block fields; the
// promoted Node decoder alone would drop them.
func (d *DocInfo) UnmarshalJSON(data []byte) error {
	var node Node
	if err := json.Unmarshal(data, &node); err != nil {
		return err
	}
	var fields struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
		Date  string   `json:"date"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	d.Node = node
	d.Title = fields.Title
	d.Tags = fields.Tags
	if d.Tags == nil {
		d.Tags = []string{}
	}
	d.Date = fields.Date
	return nil
}
