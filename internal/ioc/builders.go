package ioc

import (
	"github.com/google/uuid"
)

// NodeOption configures NewIndicator and NewIndicatorItem.
type NodeOption func(*nodeOptions)

type nodeOptions struct {
	id           string
	negate       bool
	preserveCase bool
	contextType  string
	dialect      Dialect
}

// WithID sets the node id instead of generating one.
func WithID(id string) NodeOption {
	return func(o *nodeOptions) { o.id = id }
}

// WithNegate marks an item as negated.
func WithNegate(negate bool) NodeOption {
	return func(o *nodeOptions) { o.negate = negate }
}

// WithPreserveCase marks an item's comparison as case-sensitive.
func WithPreserveCase(preserve bool) NodeOption {
	return func(o *nodeOptions) { o.preserveCase = preserve }
}

// WithContextType overrides the default "mir" context type.
func WithContextType(typ string) NodeOption {
	return func(o *nodeOptions) { o.contextType = typ }
}

// ForDialect selects the condition vocabulary used for validation.
// Defaults to V11.
func ForDialect(d Dialect) NodeOption {
	return func(o *nodeOptions) { o.dialect = d }
}

func applyNodeOptions(opts []NodeOption) nodeOptions {
	o := nodeOptions{contextType: DefaultContextType, dialect: V11}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	return o
}

// NewIndicator creates an Indicator. operator must be AND or OR in any case;
// it is stored upper-cased.
func NewIndicator(operator string, opts ...NodeOption) (*Indicator, error) {
	op, ok := canonicalOperator(operator)
	if !ok {
		return nil, &ValidationError{Field: "operator", Value: operator, Err: ErrInvalidOperator}
	}
	o := applyNodeOptions(opts)
	return &Indicator{ID: o.id, Operator: op}, nil
}

// NewIndicatorItem creates a leaf condition. The condition must belong to the
// target dialect's vocabulary.
func NewIndicatorItem(condition, document, search, contentType, content string, opts ...NodeOption) (*IndicatorItem, error) {
	o := applyNodeOptions(opts)
	if !o.dialect.ValidCondition(condition) {
		return nil, &ValidationError{Field: "condition", Value: condition, Err: ErrInvalidCondition}
	}
	return &IndicatorItem{
		ID:           o.id,
		Condition:    condition,
		Negate:       o.negate,
		PreserveCase: o.preserveCase,
		Context: Context{
			Document: document,
			Search:   search,
			Type:     o.contextType,
		},
		Content: Content{
			Type:  contentType,
			Value: content,
		},
	}, nil
}

// DocumentOption configures New.
type DocumentOption func(*Document)

// WithDocumentID sets the document id instead of generating one.
func WithDocumentID(id string) DocumentOption {
	return func(d *Document) { d.ID = id }
}

// WithName sets the short description.
func WithName(name string) DocumentOption {
	return func(d *Document) { d.Metadata.ShortDescription = name }
}

// WithDescription overrides the default description.
func WithDescription(desc string) DocumentOption {
	return func(d *Document) { d.Metadata.Description = desc }
}

// WithAuthor overrides the default author.
func WithAuthor(author string) DocumentOption {
	return func(d *Document) { d.Metadata.AuthoredBy = author }
}

// WithKeywords sets the space-delimited keywords.
func WithKeywords(keywords string) DocumentOption {
	return func(d *Document) { d.Metadata.Keywords = keywords }
}

// WithLinks sets the initial links.
func WithLinks(links ...Link) DocumentOption {
	return func(d *Document) { d.Metadata.Links = append([]Link(nil), links...) }
}

// New creates an empty 1.1 document with skeleton metadata and an empty OR
// top-level indicator.
func New(opts ...DocumentOption) *Document {
	ts := Timestamp()
	d := &Document{
		ID:            uuid.NewString(),
		LastModified:  ts,
		PublishedDate: DefaultPublishedDate,
		Metadata: Metadata{
			Description:  DefaultDescription,
			AuthoredBy:   DefaultAuthor,
			AuthoredDate: ts,
		},
		Criteria: &Indicator{ID: uuid.NewString(), Operator: OperatorOr},
		Dialect:  V11,
		Encoding: "utf-8",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}
