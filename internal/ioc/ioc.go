// Package ioc is the in-memory model of an OpenIOC document: metadata, the
// AND/OR logic tree of Indicator and IndicatorItem nodes and the parameters
// attached to its nodes.
//
// A Document is dialect-neutral. Negation is always held in
// IndicatorItem.Negate; the 1.0 "isnot"/"containsnot" condition suffix only
// exists in the 1.0 reader and writer.
package ioc

import (
	"strings"
	"time"
)

// Namespaces of the two document formats.
const (
	Namespace10  = "http://schemas.mandiant.com/2010/ioc"
	Namespace11  = "http://openioc.org/schemas/OpenIOC_1.1"
	NamespaceXSI = "http://www.w3.org/2001/XMLSchema-instance"
	NamespaceXSD = "http://www.w3.org/2001/XMLSchema"
)

// Root element names.
const (
	RootTag10 = "ioc"
	RootTag11 = "OpenIOC"
)

// DateLayout is the xsd:dateTime form used by every date attribute.
const DateLayout = "2006-01-02T15:04:05"

// DefaultPublishedDate is written when a 1.1 document was never published.
const DefaultPublishedDate = "0001-01-01T00:00:00"

// Defaults for newly created documents.
const (
	DefaultDescription = "Automatically generated IOC"
	DefaultAuthor      = "IOC_api"
	DefaultContextType = "mir"
	DefaultParamName   = "comment"
	DefaultParamType   = "string"
)

// Operators
const (
	OperatorAnd = "AND"
	OperatorOr  = "OR"
)

// Conditions
const (
	ConditionIs          = "is"
	ConditionContains    = "contains"
	ConditionMatches     = "matches"
	ConditionStartsWith  = "starts-with"
	ConditionEndsWith    = "ends-with"
	ConditionGreaterThan = "greater-than"
	ConditionLessThan    = "less-than"
)

// NegationSuffix marks a negated condition in 1.0 documents.
const NegationSuffix = "not"

// Dialect identifies the schema version a document is read from or written as.
type Dialect int

const (
	V11 Dialect = iota
	V10
)

func (d Dialect) String() string {
	switch d {
	case V10:
		return "1.0"
	case V11:
		return "1.1"
	}
	return "unknown"
}

var conditions = map[Dialect][]string{
	V10: {ConditionIs, ConditionContains},
	V11: {
		ConditionIs, ConditionContains, ConditionMatches,
		ConditionStartsWith, ConditionEndsWith,
		ConditionGreaterThan, ConditionLessThan,
	},
}

// Conditions returns the condition vocabulary of the dialect.
func (d Dialect) Conditions() []string {
	out := make([]string, len(conditions[d]))
	copy(out, conditions[d])
	return out
}

// ValidCondition reports whether condition belongs to the dialect.
// Matching is case-sensitive.
func (d Dialect) ValidCondition(condition string) bool {
	for _, c := range conditions[d] {
		if c == condition {
			return true
		}
	}
	return false
}

// canonicalOperator upper-cases op and reports whether it is AND or OR.
func canonicalOperator(op string) (string, bool) {
	up := strings.ToUpper(op)
	return up, up == OperatorAnd || up == OperatorOr
}

// Document is one IOC.
type Document struct {
	ID            string
	LastModified  string
	PublishedDate string // 1.1 only
	Metadata      Metadata
	Criteria      *Indicator
	Parameters    []Parameter // 1.1 only
	Preamble      []string    // comments preceding the root element
	Dialect       Dialect
	Encoding      string
}

// Metadata holds the descriptive fields of a document. Empty strings are
// treated as absent.
type Metadata struct {
	ShortDescription string
	Description      string
	Keywords         string
	AuthoredBy       string
	AuthoredDate     string
	Links            []Link
}

// Link is a metadata reference. 1.0 links carry no href.
type Link struct {
	Rel  string `validate:"required"`
	Href string `validate:"required_without=Text"`
	Text string `validate:"required_without=Href"`
}

// Parameter annotates the node with id RefID.
type Parameter struct {
	ID    string
	RefID string
	Name  string
	Type  string
	Value string
}

// Node is an element of the logic tree: *Indicator or *IndicatorItem.
type Node interface {
	NodeID() string
	node()
}

// Indicator combines its children with AND or OR.
type Indicator struct {
	ID       string
	Operator string
	Children []Node
}

func (i *Indicator) NodeID() string { return i.ID }
func (*Indicator) node() {}

// Items returns the leaf children of i in order.
func (i *Indicator) Items() []*IndicatorItem {
	var items []*IndicatorItem
	for _, c := range i.Children {
		if it, ok := c.(*IndicatorItem); ok {
			items = append(items, it)
		}
	}
	return items
}

// Indicators returns the Indicator children of i in order.
func (i *Indicator) Indicators() []*Indicator {
	var groups []*Indicator
	for _, c := range i.Children {
		if g, ok := c.(*Indicator); ok {
			groups = append(groups, g)
		}
	}
	return groups
}

// Append adds nodes to the end of i's children.
func (i *Indicator) Append(nodes ...Node) {
	i.Children = append(i.Children, nodes...)
}

// IndicatorItem is a leaf condition.
type IndicatorItem struct {
	ID           string
	Condition    string
	Negate       bool
	PreserveCase bool
	Context      Context
	Content      Content
	Comment      string // inline 1.0 comment
}

func (it *IndicatorItem) NodeID() string { return it.ID }
func (*IndicatorItem) node() {}

// Context names the document type and search term an item tests.
type Context struct {
	Document string
	Search   string
	Type     string
}

// Content is the literal value an item compares against.
type Content struct {
	Type  string
	Value string
}

// now is replaced in tests.
var now = time.Now

// Timestamp returns the current UTC time in DateLayout.
func Timestamp() string {
	return now().UTC().Format(DateLayout)
}
