package ioc

import (
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/ppiankov/iocwriter/internal/logger"
	"github.com/ppiankov/iocwriter/internal/xmlutil"
)

var (
	linkExpr     = xpath.MustCompile(".//link")
	paramExpr    = xpath.MustCompile("param")
	topLevelExpr = xpath.MustCompile("Indicator")
)

// ReadFile loads a 1.1 document from disk.
func ReadFile(path string) (*Document, error) {
	doc, err := xmlutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromXML(doc)
}

// Parse parses a 1.1 document.
func Parse(data []byte) (*Document, error) {
	doc, err := xmlutil.Parse(data)
	if err != nil {
		return nil, err
	}
	return FromXML(doc)
}

// FromXML builds a Document from a parsed OpenIOC 1.1 tree.
func FromXML(doc *xmlquery.Node) (*Document, error) {
	root := xmlutil.Root(doc)
	if root == nil || root.Data != RootTag11 {
		return nil, &StructuralError{Element: rootName(root), Err: ErrNotOpenIOC}
	}

	d := &Document{
		Dialect:  V11,
		Encoding: xmlutil.DeclaredEncoding(doc),
		Preamble: xmlutil.Preamble(doc),
	}
	d.ID, _ = xmlutil.Attr(root, "id")
	d.LastModified, _ = xmlutil.Attr(root, "last-modified")
	d.PublishedDate, _ = xmlutil.Attr(root, "published-date")

	if md := xmlutil.Child(root, "metadata"); md != nil {
		d.Metadata = ReadMetadata(md)
	}

	criteria := xmlutil.Child(root, "criteria")
	if criteria == nil {
		return nil, &StructuralError{Element: RootTag11, ID: d.ID, Err: ErrMissingCriteria}
	}
	tops := xmlutil.SelectAll(criteria, topLevelExpr)
	if len(tops) == 0 {
		return nil, &StructuralError{Element: "criteria", ID: d.ID, Err: ErrMissingTopLevel}
	}
	log := logger.Get().Component("ioc").WithIOC(d.ID)
	if len(tops) > 1 {
		log.Warn().Int("count", len(tops)).Msg("multiple top-level indicators, using the first")
	}
	top, err := readIndicator(tops[0])
	if err != nil {
		return nil, err
	}
	if top.Operator != OperatorOr {
		log.Warn().Str("operator", top.Operator).Msg("top-level indicator is not OR")
	}
	d.Criteria = top

	if params := xmlutil.Child(root, "parameters"); params != nil {
		d.Parameters = readParameters(params)
	}
	return d, nil
}

func rootName(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return n.Data
}

// ReadMetadata reads the fields shared by both dialects from n, which is the
// 1.1 metadata element or the 1.0 root.
func ReadMetadata(n *xmlquery.Node) Metadata {
	var md Metadata
	md.ShortDescription, _ = xmlutil.ChildText(n, "short_description")
	md.Description, _ = xmlutil.ChildText(n, "description")
	md.Keywords, _ = xmlutil.ChildText(n, "keywords")
	md.AuthoredBy, _ = xmlutil.ChildText(n, "authored_by")
	md.AuthoredDate, _ = xmlutil.ChildText(n, "authored_date")
	for _, l := range xmlutil.SelectAll(n, linkExpr) {
		link := Link{Text: l.InnerText()}
		link.Rel, _ = xmlutil.Attr(l, "rel")
		link.Href, _ = xmlutil.Attr(l, "href")
		md.Links = append(md.Links, link)
	}
	return md
}

func readParameters(n *xmlquery.Node) []Parameter {
	var params []Parameter
	for _, p := range xmlutil.SelectAll(n, paramExpr) {
		param := Parameter{}
		param.ID, _ = xmlutil.Attr(p, "id")
		param.RefID, _ = xmlutil.Attr(p, "ref-id")
		param.Name, _ = xmlutil.Attr(p, "name")
		if v := xmlutil.Child(p, "value"); v != nil {
			param.Type, _ = xmlutil.Attr(v, "type")
			param.Value = v.InnerText()
		}
		params = append(params, param)
	}
	return params
}

func readIndicator(n *xmlquery.Node) (*Indicator, error) {
	ind := &Indicator{}
	ind.ID, _ = xmlutil.Attr(n, "id")
	op, _ := xmlutil.Attr(n, "operator")
	ind.Operator = strings.ToUpper(op)

	for _, child := range xmlutil.Elements(n) {
		switch child.Data {
		case "IndicatorItem":
			ind.Children = append(ind.Children, readItem(child))
		case "Indicator":
			sub, err := readIndicator(child)
			if err != nil {
				return nil, err
			}
			ind.Children = append(ind.Children, sub)
		default:
			id, _ := xmlutil.Attr(child, "id")
			return nil, &StructuralError{Element: child.Data, ID: id, Err: ErrMalformedNode}
		}
	}
	return ind, nil
}

func readItem(n *xmlquery.Node) *IndicatorItem {
	it := &IndicatorItem{}
	it.ID, _ = xmlutil.Attr(n, "id")
	it.Condition, _ = xmlutil.Attr(n, "condition")
	it.Negate = boolAttr(n, "negate")
	it.PreserveCase = boolAttr(n, "preserve-case")
	if ctx := xmlutil.Child(n, "Context"); ctx != nil {
		it.Context.Document, _ = xmlutil.Attr(ctx, "document")
		it.Context.Search, _ = xmlutil.Attr(ctx, "search")
		it.Context.Type, _ = xmlutil.Attr(ctx, "type")
	}
	if content := xmlutil.Child(n, "Content"); content != nil {
		it.Content.Type, _ = xmlutil.Attr(content, "type")
		it.Content.Value = content.InnerText()
	}
	return it
}

func boolAttr(n *xmlquery.Node, name string) bool {
	v, _ := xmlutil.Attr(n, name)
	return strings.EqualFold(strings.TrimSpace(v), "true")
}
