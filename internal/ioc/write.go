package ioc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/ppiankov/iocwriter/internal/xmlutil"
)

// FileExt is the extension of written documents.
const FileExt = ".ioc"

// ToXML renders the document as an element tree in its dialect. 1.1
// documents have their ordering repaired first, in place on d.
func ToXML(d *Document) (*xmlquery.Node, error) {
	if d.Criteria == nil {
		return nil, &StructuralError{ID: d.ID, Err: ErrMissingTopLevel}
	}
	switch d.Dialect {
	case V10:
		return toXML10(d), nil
	case V11:
		d.RepairOrdering()
		return toXML11(d), nil
	}
	return nil, fmt.Errorf("unknown dialect %d", d.Dialect)
}

// Marshal serializes the document with its declared encoding and preamble.
// A 1.1 document is modified: its criteria are left in schema order.
func Marshal(d *Document) ([]byte, error) {
	root, err := ToXML(d)
	if err != nil {
		return nil, err
	}
	return xmlutil.Marshal(root, xmlutil.WriteOptions{
		Encoding: d.Encoding,
		Preamble: d.Preamble,
	})
}

// WriteFile writes the document to dir/<id>.ioc and returns the path. Like
// Marshal it leaves a 1.1 document's criteria in schema order.
func WriteFile(d *Document, dir string) (string, error) {
	root, err := ToXML(d)
	if err != nil {
		return "", err
	}
	return xmlutil.WriteFile(dir, d.ID+FileExt, root, xmlutil.WriteOptions{
		Encoding: d.Encoding,
		Preamble: d.Preamble,
	})
}

func toXML11(d *Document) *xmlquery.Node {
	published := d.PublishedDate
	if published == "" {
		published = DefaultPublishedDate
	}
	root := xmlutil.Element(RootTag11,
		"xmlns:xsi", NamespaceXSI,
		"xmlns:xsd", NamespaceXSD,
		"xmlns", Namespace11,
		"id", d.ID,
		"last-modified", d.LastModified,
		"published-date", published,
	)

	md := xmlutil.Element("metadata")
	xmlutil.Append(md, metadataElements(d.Metadata, true)...)
	criteria := xmlutil.Element("criteria")
	xmlutil.Append(criteria, indicatorElement(d.Criteria, V11))

	params := xmlutil.Element("parameters")
	for _, p := range d.Parameters {
		param := xmlutil.Element("param", "id", p.ID, "ref-id", p.RefID, "name", p.Name)
		xmlutil.Append(param, xmlutil.TextElement("value", p.Value, "type", p.Type))
		xmlutil.Append(params, param)
	}

	xmlutil.Append(root, md, criteria, params)
	return root
}

func toXML10(d *Document) *xmlquery.Node {
	root := xmlutil.Element(RootTag10,
		"xmlns:xsi", NamespaceXSI,
		"xmlns:xsd", NamespaceXSD,
		"xmlns", Namespace10,
		"id", d.ID,
		"last-modified", d.LastModified,
	)
	xmlutil.Append(root, metadataElements(d.Metadata, false)...)
	definition := xmlutil.Element("definition")
	xmlutil.Append(definition, indicatorElement(d.Criteria, V10))
	xmlutil.Append(root, definition)
	return root
}

// metadataElements returns the metadata fields in canonical order. Empty
// short_description and description are omitted.
func metadataElements(md Metadata, withHref bool) []*xmlquery.Node {
	var out []*xmlquery.Node
	if md.ShortDescription != "" {
		out = append(out, xmlutil.TextElement("short_description", md.ShortDescription))
	}
	if md.Description != "" {
		out = append(out, xmlutil.TextElement("description", md.Description))
	}
	out = append(out,
		xmlutil.TextElement("keywords", md.Keywords),
		xmlutil.TextElement("authored_by", md.AuthoredBy),
		xmlutil.TextElement("authored_date", md.AuthoredDate),
	)
	links := xmlutil.Element("links")
	for _, l := range md.Links {
		attrs := []string{"rel", l.Rel}
		if withHref && l.Href != "" {
			attrs = append(attrs, "href", l.Href)
		}
		xmlutil.Append(links, xmlutil.TextElement("link", l.Text, attrs...))
	}
	return append(out, links)
}

func indicatorElement(ind *Indicator, dialect Dialect) *xmlquery.Node {
	n := xmlutil.Element("Indicator", "id", ind.ID, "operator", ind.Operator)
	for _, c := range ind.Children {
		switch child := c.(type) {
		case *Indicator:
			xmlutil.Append(n, indicatorElement(child, dialect))
		case *IndicatorItem:
			xmlutil.Append(n, itemElement(child, dialect))
		}
	}
	return n
}

func itemElement(it *IndicatorItem, dialect Dialect) *xmlquery.Node {
	var n *xmlquery.Node
	if dialect == V10 {
		n = xmlutil.Element("IndicatorItem", "id", it.ID, "condition", LegacyCondition(it.Condition, it.Negate))
	} else {
		n = xmlutil.Element("IndicatorItem",
			"id", it.ID,
			"condition", it.Condition,
			"preserve-case", strconv.FormatBool(it.PreserveCase),
			"negate", strconv.FormatBool(it.Negate),
		)
	}
	xmlutil.Append(n,
		xmlutil.Element("Context",
			"document", it.Context.Document,
			"search", it.Context.Search,
			"type", it.Context.Type,
		),
		xmlutil.TextElement("Content", it.Content.Value, "type", it.Content.Type),
	)
	if dialect == V10 && it.Comment != "" {
		xmlutil.Append(n, xmlutil.TextElement("Comment", it.Comment))
	}
	return n
}

// LegacyCondition fuses a condition and its negation into the 1.0 form.
func LegacyCondition(condition string, negate bool) string {
	if negate {
		return condition + NegationSuffix
	}
	return condition
}

// SplitLegacyCondition undoes LegacyCondition.
func SplitLegacyCondition(condition string) (string, bool) {
	if len(condition) > len(NegationSuffix) && strings.HasSuffix(condition, NegationSuffix) {
		return strings.TrimSuffix(condition, NegationSuffix), true
	}
	return condition, false
}
