// Package xmlutil loads XML documents into namespace-free xmlquery trees and
// serializes element trees back to bytes with a declared encoding.
//
// Element names are always read from xmlquery.Node.Data, which holds the
// local name, so callers never see a namespace URI or prefix on elements.
package xmlutil

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// DefaultEncoding is used when a document does not declare one
const DefaultEncoding = "utf-8"

// Parse parses XML data and returns the document node.
func Parse(data []byte) (*xmlquery.Node, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	if Root(doc) == nil {
		return nil, fmt.Errorf("parsing XML: no root element")
	}
	return doc, nil
}

// ReadFile reads and parses an XML file.
func ReadFile(path string) (*xmlquery.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Root returns the root element of a document node.
func Root(doc *xmlquery.Node) *xmlquery.Node {
	if doc == nil {
		return nil
	}
	if doc.Type == xmlquery.ElementNode {
		return doc
	}
	for child := doc.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return child
		}
	}
	return nil
}

// Preamble returns the text of comment nodes that precede the root element,
// in document order.
func Preamble(doc *xmlquery.Node) []string {
	var comments []string
	for child := doc.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			break
		}
		if child.Type == xmlquery.CommentNode {
			comments = append(comments, child.Data)
		}
	}
	return comments
}

// DeclaredEncoding returns the encoding named in the XML declaration, or
// DefaultEncoding if there is none.
func DeclaredEncoding(doc *xmlquery.Node) string {
	for child := doc.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.DeclarationNode {
			continue
		}
		if enc := strings.Trim(child.SelectAttr("encoding"), `"'`); enc != "" {
			return strings.ToLower(enc)
		}
	}
	return DefaultEncoding
}

// Elements returns the element children of n in document order.
func Elements(n *xmlquery.Node) []*xmlquery.Node {
	var children []*xmlquery.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			children = append(children, child)
		}
	}
	return children
}

// Child returns the first element child of n named name.
func Child(n *xmlquery.Node, name string) *xmlquery.Node {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == name {
			return child
		}
	}
	return nil
}

// ChildText returns the text of the first element child named name and
// whether that child exists.
func ChildText(n *xmlquery.Node, name string) (string, bool) {
	child := Child(n, name)
	if child == nil {
		return "", false
	}
	return child.InnerText(), true
}

// Attr returns an attribute value and whether it is present.
func Attr(n *xmlquery.Node, name string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Name.Space == "" && attr.Name.Local == name {
			return attr.Value, true
		}
	}
	return "", false
}

// SelectAll evaluates a compiled expression relative to n.
func SelectAll(n *xmlquery.Node, expr *xpath.Expr) []*xmlquery.Node {
	return xmlquery.QuerySelectorAll(n, expr)
}

// SelectOne evaluates a compiled expression relative to n and returns the
// first match or nil.
func SelectOne(n *xmlquery.Node, expr *xpath.Expr) *xmlquery.Node {
	return xmlquery.QuerySelector(n, expr)
}

// Element creates a detached element node. attrs are name/value pairs.
func Element(name string, attrs ...string) *xmlquery.Node {
	n := &xmlquery.Node{Type: xmlquery.ElementNode, Data: name}
	for i := 0; i+1 < len(attrs); i += 2 {
		xmlquery.AddAttr(n, attrs[i], attrs[i+1])
	}
	return n
}

// TextElement creates a detached element holding a single text node.
func TextElement(name, text string, attrs ...string) *xmlquery.Node {
	n := Element(name, attrs...)
	SetText(n, text)
	return n
}

// SetText replaces the children of n with a single text node. Empty text
// leaves n without children.
func SetText(n *xmlquery.Node, text string) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		xmlquery.RemoveFromTree(child)
		child = next
	}
	if text == "" {
		return
	}
	xmlquery.AddChild(n, &xmlquery.Node{Type: xmlquery.TextNode, Data: text})
}

// Append adds children to parent in order.
func Append(parent *xmlquery.Node, children ...*xmlquery.Node) {
	for _, child := range children {
		if child != nil {
			xmlquery.AddChild(parent, child)
		}
	}
}
