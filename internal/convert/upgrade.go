package convert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/ppiankov/iocwriter/internal/ioc"
	"github.com/ppiankov/iocwriter/internal/logger"
	"github.com/ppiankov/iocwriter/internal/xmlutil"
)

type pendingComment struct {
	nodeID string
	text   string
}

// Upgrade converts a parsed OpenIOC 1.0 tree into a new 1.1 document. The
// conversion is lossless: negation suffixes become the negate flag and
// inline comments become "comment" parameters.
func Upgrade(doc *xmlquery.Node) (*ioc.Document, error) {
	root := xmlutil.Root(doc)
	if root == nil {
		return nil, &UpgradeError{Err: &ioc.StructuralError{Err: ioc.ErrNotLegacyDocument}}
	}
	id, _ := xmlutil.Attr(root, "id")
	if root.Data != ioc.RootTag10 {
		return nil, &UpgradeError{ID: id, Err: &ioc.StructuralError{Element: root.Data, Err: ioc.ErrNotLegacyDocument}}
	}

	definition := xmlutil.Child(root, "definition")
	if definition == nil {
		return nil, &UpgradeError{ID: id, Err: &ioc.StructuralError{Element: ioc.RootTag10, Err: ioc.ErrMissingDefinition}}
	}
	tops := xmlutil.Elements(definition)
	if len(tops) == 0 {
		return nil, &UpgradeError{ID: id, Err: &ioc.StructuralError{Element: "definition", Err: ioc.ErrMissingTopLevel}}
	}
	log := logger.Get().Component("upgrade").WithIOC(id)
	if len(tops) > 1 {
		log.Warn().Int("count", len(tops)).Msg("multiple top-level indicators, using the first")
	}
	tlo := tops[0]
	if tlo.Data != "Indicator" {
		return nil, &UpgradeError{ID: id, Err: &ioc.StructuralError{Element: tlo.Data, Err: ioc.ErrMalformedNode}}
	}
	top, err := indicatorFrom10(tlo)
	if err != nil {
		return nil, &UpgradeError{ID: id, Err: err}
	}
	if top.Operator != ioc.OperatorOr {
		log.Warn().Str("operator", top.Operator).Msg("top-level indicator is not OR")
	}

	md := ioc.ReadMetadata(root)
	md.AuthoredDate = strings.TrimSuffix(md.AuthoredDate, "Z")
	for i := range md.Links {
		md.Links[i].Href = ""
	}
	lastModified, _ := xmlutil.Attr(root, "last-modified")

	out := &ioc.Document{
		ID:            id,
		LastModified:  strings.TrimSuffix(lastModified, "Z"),
		PublishedDate: ioc.DefaultPublishedDate,
		Metadata:      md,
		Criteria:      top,
		Preamble:      xmlutil.Preamble(doc),
		Dialect:       ioc.V11,
		Encoding:      xmlutil.DeclaredEncoding(doc),
	}

	var comments []pendingComment
	if err := upgradeBranch(tlo, top, &comments); err != nil {
		return nil, &UpgradeError{ID: id, Err: err}
	}
	for _, c := range comments {
		if _, _, err := out.AddParameter(c.nodeID, c.text); err != nil {
			return nil, &UpgradeError{ID: id, Err: err}
		}
	}
	return out, nil
}

// upgradeBranch mirrors the children of the 1.0 Indicator old into dst in
// document order.
func upgradeBranch(old *xmlquery.Node, dst *ioc.Indicator, comments *[]pendingComment) error {
	for _, child := range xmlutil.Elements(old) {
		nodeID, _ := xmlutil.Attr(child, "id")
		switch child.Data {
		case "IndicatorItem":
			item, err := itemFrom10(child)
			if err != nil {
				return err
			}
			if text, ok := xmlutil.ChildText(child, "Comment"); ok {
				*comments = append(*comments, pendingComment{nodeID: nodeID, text: text})
			}
			dst.Append(item)
		case "Indicator":
			sub, err := indicatorFrom10(child)
			if err != nil {
				return err
			}
			dst.Append(sub)
			if err := upgradeBranch(child, sub, comments); err != nil {
				return err
			}
		default:
			return &ioc.StructuralError{Element: child.Data, ID: nodeID, Err: ioc.ErrMalformedNode}
		}
	}
	return nil
}

func indicatorFrom10(n *xmlquery.Node) (*ioc.Indicator, error) {
	nodeID, _ := xmlutil.Attr(n, "id")
	op, _ := xmlutil.Attr(n, "operator")
	ind, err := ioc.NewIndicator(op, ioc.WithID(nodeID))
	if err != nil {
		return nil, &ioc.StructuralError{
			Element: "Indicator",
			ID:      nodeID,
			Message: fmt.Sprintf("operator %q is not AND/OR", op),
			Err:     ioc.ErrMalformedOperator,
		}
	}
	return ind, nil
}

func itemFrom10(n *xmlquery.Node) (*ioc.IndicatorItem, error) {
	nodeID, _ := xmlutil.Attr(n, "id")
	raw, _ := xmlutil.Attr(n, "condition")
	condition, negate := ioc.SplitLegacyCondition(raw)

	var document, search, contextType, contentType, content string
	if ctx := xmlutil.Child(n, "Context"); ctx != nil {
		document, _ = xmlutil.Attr(ctx, "document")
		search, _ = xmlutil.Attr(ctx, "search")
		contextType, _ = xmlutil.Attr(ctx, "type")
	}
	if c := xmlutil.Child(n, "Content"); c != nil {
		contentType, _ = xmlutil.Attr(c, "type")
		content = c.InnerText()
	}

	opts := []ioc.NodeOption{ioc.WithID(nodeID), ioc.WithNegate(negate)}
	if contextType != "" {
		opts = append(opts, ioc.WithContextType(contextType))
	}
	item, err := ioc.NewIndicatorItem(condition, document, search, contentType, content, opts...)
	if err != nil {
		if errors.Is(err, ioc.ErrInvalidCondition) {
			return nil, &ioc.StructuralError{Element: "IndicatorItem", ID: nodeID, Message: fmt.Sprintf("condition %q", raw), Err: err}
		}
		return nil, err
	}
	return item, nil
}
