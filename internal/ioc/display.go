package ioc

import (
	"fmt"
	"strings"
)

// DefaultSeparator indents each level of the criteria tree in Display.
const DefaultSeparator = "  "

// DisplayOptions controls Display.
type DisplayOptions struct {
	Params    bool   // print parameters above the node they reference
	Separator string // per-level indent, DefaultSeparator if empty
}

// Display renders a human-readable summary of the document.
func Display(d *Document, opts DisplayOptions) string {
	sep := opts.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	md := d.Metadata

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", md.ShortDescription)
	fmt.Fprintf(&b, "ID: %s\n", d.ID)
	fmt.Fprintf(&b, "Created: %s\n", md.AuthoredDate)
	fmt.Fprintf(&b, "Updated: %s\n", d.LastModified)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Author: %s\n", md.AuthoredBy)
	b.WriteString("Description:\n")
	b.WriteString(md.Description)
	b.WriteString("\n\n")
	b.WriteString("IOC Links\n")
	for _, l := range md.Links {
		b.WriteString(l.Rel)
		b.WriteString(": ")
		b.WriteString(l.Text)
		if l.Href != "" {
			fmt.Fprintf(&b, " (%s)", l.Href)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nCriteria:\n")

	d.Walk(func(n Node, depth int) bool {
		indent := strings.Repeat(sep, depth)
		if opts.Params {
			for _, p := range d.ParametersFor(n.NodeID()) {
				fmt.Fprintf(&b, "%sParameter: %s, type:%s, value: %s\n", indent, p.Name, p.Type, p.Value)
			}
		}
		switch node := n.(type) {
		case *Indicator:
			b.WriteString(indent)
			b.WriteString(node.Operator)
			b.WriteString("\n")
		case *IndicatorItem:
			fmt.Fprintf(&b, "%s%s %s \"%s\"", indent, node.Context.Search, node.Condition, node.Content.Value)
			if node.Negate {
				b.WriteString(" (Negated)")
			}
			if node.PreserveCase {
				b.WriteString(" (Preserve Case)")
			}
			if node.Comment != "" {
				fmt.Fprintf(&b, " (Comment: %s)", node.Comment)
			}
			b.WriteString("\n")
		}
		return true
	})
	return b.String()
}

// String renders the document without parameters.
func (d *Document) String() string {
	return Display(d, DisplayOptions{})
}
