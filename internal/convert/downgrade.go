package convert

import (
	"fmt"

	"github.com/ppiankov/iocwriter/internal/ioc"
)

// Classification buckets a downgraded document.
type Classification int

const (
	// Clean documents converted without losing any branch.
	Clean Classification = iota
	// Pruned documents lost at least one top-level branch but kept one.
	Pruned
	// Null documents lost every top-level branch.
	Null
)

func (c Classification) String() string {
	switch c {
	case Clean:
		return "clean"
	case Pruned:
		return "pruned"
	case Null:
		return "null"
	}
	return "unknown"
}

// legacyOnly lists the conditions 1.0 cannot express.
var legacyOnly = map[string]bool{
	ioc.ConditionStartsWith:  true,
	ioc.ConditionEndsWith:    true,
	ioc.ConditionGreaterThan: true,
	ioc.ConditionLessThan:    true,
	ioc.ConditionMatches:     true,
}

// Downgradable reports whether a leaf has a 1.0 representation.
func Downgradable(it *ioc.IndicatorItem) bool {
	return !legacyOnly[it.Condition] && !it.PreserveCase
}

// DowngradeResult is the outcome of a successful downgrade.
type DowngradeResult struct {
	Document       *ioc.Document
	Classification Classification
	Skipped        []string // ids of dropped top-level branches
}

// Downgrade converts a 1.1 document into a new 1.0 document. A top-level
// branch containing any leaf without a 1.0 form is dropped whole. The
// source document is not modified.
func Downgrade(src *ioc.Document) (*DowngradeResult, error) {
	if src.Criteria == nil {
		return nil, &DowngradeError{ID: src.ID, Err: &ioc.StructuralError{Element: "criteria", Err: ioc.ErrMissingTopLevel}}
	}
	if src.Metadata.AuthoredDate == "" {
		return nil, &DowngradeError{ID: src.ID, Err: &ioc.MissingMetadataError{DocumentID: src.ID, Field: "authored_date"}}
	}

	skip, pruned := skipSet(src.Criteria)

	comments := make(map[string]string)
	for _, p := range src.Parameters {
		if p.Name == ioc.DefaultParamName {
			comments[p.RefID] = p.Value
		}
	}

	top, err := indicatorFrom11(src.Criteria)
	if err != nil {
		return nil, &DowngradeError{ID: src.ID, Err: err}
	}
	if err := downgradeBranch(src.Criteria, top, skip, comments); err != nil {
		return nil, &DowngradeError{ID: src.ID, Err: err}
	}

	md := src.Metadata
	md.Links = make([]ioc.Link, 0, len(src.Metadata.Links))
	for _, l := range src.Metadata.Links {
		md.Links = append(md.Links, ioc.Link{Rel: l.Rel, Text: l.Text})
	}

	out := &ioc.Document{
		ID:           src.ID,
		LastModified: src.LastModified,
		Metadata:     md,
		Criteria:     top,
		Preamble:     append([]string(nil), src.Preamble...),
		Dialect:      ioc.V10,
		Encoding:     src.Encoding,
	}

	res := &DowngradeResult{Document: out, Classification: Clean}
	for _, c := range src.Criteria.Children {
		if c != nil && skip[c.NodeID()] {
			res.Skipped = append(res.Skipped, c.NodeID())
		}
	}
	switch {
	case len(top.Children) == 0:
		res.Classification = Null
	case pruned:
		res.Classification = Pruned
	}
	return res, nil
}

// skipSet returns the ids of the top-level indicator's direct children whose
// subtree holds an unconvertible leaf, and whether any such leaf exists.
func skipSet(top *ioc.Indicator) (map[string]bool, bool) {
	skip := make(map[string]bool)
	pruned := false
	for _, branch := range top.Children {
		if branch == nil {
			continue
		}
		bad := false
		if ind, ok := branch.(*ioc.Indicator); ok {
			ioc.Walk(ind, func(n ioc.Node, _ int) bool {
				if it, isItem := n.(*ioc.IndicatorItem); isItem && !Downgradable(it) {
					bad = true
				}
				return !bad
			})
		} else if it, ok := branch.(*ioc.IndicatorItem); ok {
			bad = !Downgradable(it)
		}
		if bad {
			skip[branch.NodeID()] = true
			pruned = true
		}
	}
	return skip, pruned
}

// downgradeBranch mirrors the children of old into dst, omitting skipped ids.
func downgradeBranch(old, dst *ioc.Indicator, skip map[string]bool, comments map[string]string) error {
	for _, child := range old.Children {
		if child == nil {
			return &ioc.StructuralError{Element: "Indicator", ID: old.ID, Message: "nil child", Err: ioc.ErrMalformedNode}
		}
		if skip[child.NodeID()] {
			continue
		}
		switch n := child.(type) {
		case *ioc.IndicatorItem:
			item, err := itemFrom11(n)
			if err != nil {
				return err
			}
			item.Comment = comments[n.ID]
			dst.Append(item)
		case *ioc.Indicator:
			sub, err := indicatorFrom11(n)
			if err != nil {
				return err
			}
			dst.Append(sub)
			if err := downgradeBranch(n, sub, skip, comments); err != nil {
				return err
			}
		default:
			return &ioc.StructuralError{ID: child.NodeID(), Err: ioc.ErrMalformedNode}
		}
	}
	return nil
}

func indicatorFrom11(n *ioc.Indicator) (*ioc.Indicator, error) {
	ind, err := ioc.NewIndicator(n.Operator, ioc.WithID(n.ID))
	if err != nil {
		return nil, &ioc.StructuralError{
			Element: "Indicator",
			ID:      n.ID,
			Message: fmt.Sprintf("operator %q is not AND/OR", n.Operator),
			Err:     ioc.ErrMalformedOperator,
		}
	}
	return ind, nil
}

func itemFrom11(n *ioc.IndicatorItem) (*ioc.IndicatorItem, error) {
	item, err := ioc.NewIndicatorItem(n.Condition, n.Context.Document, n.Context.Search, n.Content.Type, n.Content.Value,
		ioc.WithID(n.ID),
		ioc.WithNegate(n.Negate),
		ioc.WithContextType(n.Context.Type),
		ioc.ForDialect(ioc.V10),
	)
	if err != nil {
		return nil, &ioc.StructuralError{Element: "IndicatorItem", ID: n.ID, Err: err}
	}
	return item, nil
}
