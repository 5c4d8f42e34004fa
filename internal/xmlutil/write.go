package xmlutil

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// WriteOptions controls serialization.
type WriteOptions struct {
	Encoding string   // declared and applied encoding; DefaultEncoding if empty
	Indent   string   // defaults to two spaces
	Preamble []string // comments emitted between the declaration and the root
}

// Marshal renders root as a complete XML document: declaration, preamble
// comments and the indented element tree, encoded as opts.Encoding.
func Marshal(root *xmlquery.Node, opts WriteOptions) ([]byte, error) {
	if root == nil || root.Type != xmlquery.ElementNode {
		return nil, fmt.Errorf("marshal: root is not an element")
	}
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	encName := strings.ToLower(strings.TrimSpace(opts.Encoding))
	if encName == "" {
		encName = DefaultEncoding
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<?xml version=\"1.0\" encoding=\"%s\"?>\n", encName)
	for _, c := range opts.Preamble {
		buf.WriteString("<!--")
		buf.WriteString(c)
		buf.WriteString("-->\n")
	}
	formatNode(&buf, root, 0, opts.Indent)

	return encode(buf.Bytes(), encName)
}

// WriteFile marshals root into dir/name, creating dir if needed.
func WriteFile(dir, name string, root *xmlquery.Node, opts WriteOptions) (string, error) {
	data, err := Marshal(root, opts)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// encode converts UTF-8 output to the named encoding. Characters the target
// charset cannot represent are written as numeric character references.
func encode(data []byte, name string) ([]byte, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		return data, nil
	}
	out, err := encoding.HTMLEscapeUnsupported(enc.NewEncoder()).Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("encode as %s: %w", name, err)
	}
	return out, nil
}

// lookupEncoding resolves name against the IANA registry so the bytes match
// the declared charset. WHATWG labels, which fold us-ascii and iso-8859-1
// into windows-1252, are only consulted for names IANA does not support.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	enc, canonical := charset.Lookup(name)
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	if canonical == "utf-8" {
		return unicode.UTF8, nil
	}
	return enc, nil
}

// formatNode recursively formats an element. Elements holding only text stay
// on one line; elements with element children are indented.
func formatNode(w *bytes.Buffer, n *xmlquery.Node, depth int, indent string) {
	switch n.Type {
	case xmlquery.ElementNode:
		writeIndent(w, depth, indent)
		w.WriteString("<")
		w.WriteString(n.Data)
		for _, attr := range n.Attr {
			w.WriteString(" ")
			if attr.Name.Space != "" {
				w.WriteString(attr.Name.Space)
				w.WriteString(":")
			}
			w.WriteString(attr.Name.Local)
			w.WriteString("=\"")
			w.WriteString(escape(attr.Value))
			w.WriteString("\"")
		}

		hasElementChildren := false
		hasContent := false
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			switch child.Type {
			case xmlquery.ElementNode, xmlquery.CommentNode:
				hasElementChildren = true
				hasContent = true
			case xmlquery.TextNode, xmlquery.CharDataNode:
				if child.Data != "" {
					hasContent = true
				}
			}
		}

		if !hasContent {
			w.WriteString("/>\n")
			return
		}
		w.WriteString(">")
		if hasElementChildren {
			w.WriteString("\n")
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			switch child.Type {
			case xmlquery.ElementNode, xmlquery.CommentNode:
				formatNode(w, child, depth+1, indent)
			case xmlquery.TextNode:
				if hasElementChildren {
					// mixed content is not produced by our writers; keep
					// non-blank text on its own line
					if strings.TrimSpace(child.Data) == "" {
						continue
					}
					writeIndent(w, depth+1, indent)
					w.WriteString(escape(child.Data))
					w.WriteString("\n")
					continue
				}
				w.WriteString(escape(child.Data))
			case xmlquery.CharDataNode:
				w.WriteString("<![CDATA[")
				w.WriteString(child.Data)
				w.WriteString("]]>")
			}
		}
		if hasElementChildren {
			writeIndent(w, depth, indent)
		}
		w.WriteString("</")
		w.WriteString(n.Data)
		w.WriteString(">\n")

	case xmlquery.CommentNode:
		writeIndent(w, depth, indent)
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->\n")
	}
}

func writeIndent(w *bytes.Buffer, depth int, indent string) {
	for i := 0; i < depth; i++ {
		w.WriteString(indent)
	}
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
