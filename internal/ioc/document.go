package ioc

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var dateRegex = regexp.MustCompile(`^[12][9012][0-9]{2}-[0-1][0-9]-[0-3][0-9]T[0-2][0-9]:[0-6][0-9]:[0-6][0-9]$`)

// WalkFunc is called for every node in pre-order. depth is 0 for the
// top-level indicator. Returning false skips the node's children.
type WalkFunc func(n Node, depth int) bool

// Walk visits root and its descendants in document order.
func Walk(root *Indicator, fn WalkFunc) {
	if root == nil {
		return
	}
	walk(root, 0, fn)
}

func walk(n Node, depth int, fn WalkFunc) {
	if !fn(n, depth) {
		return
	}
	if ind, ok := n.(*Indicator); ok {
		for _, c := range ind.Children {
			walk(c, depth+1, fn)
		}
	}
}

// Walk visits the document's logic tree.
func (d *Document) Walk(fn WalkFunc) {
	Walk(d.Criteria, fn)
}

// Find returns the first node with the given id.
func (d *Document) Find(id string) (Node, bool) {
	var found Node
	d.Walk(func(n Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.NodeID() == id {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// parentIndex maps every non-root node id to its parent. The first
// occurrence of a reused id wins.
func parentIndex(root *Indicator) map[string]*Indicator {
	parents := make(map[string]*Indicator)
	Walk(root, func(n Node, _ int) bool {
		ind, ok := n.(*Indicator)
		if !ok {
			return true
		}
		for _, c := range ind.Children {
			if _, seen := parents[c.NodeID()]; !seen {
				parents[c.NodeID()] = ind
			}
		}
		return true
	})
	return parents
}

// Parent returns the indicator holding the node with the given id.
func (d *Document) Parent(id string) (*Indicator, bool) {
	p, ok := parentIndex(d.Criteria)[id]
	return p, ok
}

// DuplicateParameterWarning reports a parameter added to a node that already
// had one with the same name. The parameter is still added.
type DuplicateParameterWarning struct {
	RefID string
	Name  string
}

func (w *DuplicateParameterWarning) String() string {
	return fmt.Sprintf("duplicate (ref-id,name) parameter pair [%s][%s]", w.RefID, w.Name)
}

// ParameterOption configures AddParameter.
type ParameterOption func(*Parameter)

// WithParameterName overrides the default "comment" name.
func WithParameterName(name string) ParameterOption {
	return func(p *Parameter) { p.Name = name }
}

// WithParameterType overrides the default "string" type.
func WithParameterType(typ string) ParameterOption {
	return func(p *Parameter) { p.Type = typ }
}

// WithParameterID sets the parameter id instead of generating one.
func WithParameterID(id string) ParameterOption {
	return func(p *Parameter) { p.ID = id }
}

// AddParameter attaches a parameter to the node nodeID. It fails with a
// ReferentialError when the node is not in the logic tree; the parameter
// list is left unchanged in that case.
func (d *Document) AddParameter(nodeID, value string, opts ...ParameterOption) (Parameter, *DuplicateParameterWarning, error) {
	if _, ok := d.Find(nodeID); !ok {
		return Parameter{}, nil, &ReferentialError{NodeID: nodeID}
	}
	p := Parameter{
		RefID: nodeID,
		Name:  DefaultParamName,
		Type:  DefaultParamType,
		Value: value,
	}
	for _, opt := range opts {
		opt(&p)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	var warning *DuplicateParameterWarning
	for _, existing := range d.Parameters {
		if existing.RefID == nodeID && existing.Name == p.Name {
			warning = &DuplicateParameterWarning{RefID: nodeID, Name: p.Name}
			break
		}
	}
	d.Parameters = append(d.Parameters, p)
	return p, warning, nil
}

// ParametersFor returns the parameters attached to the node with the given id.
func (d *Document) ParametersFor(refID string) []Parameter {
	var out []Parameter
	for _, p := range d.Parameters {
		if p.RefID == refID {
			out = append(out, p)
		}
	}
	return out
}

// ParameterUpdate lists the fields UpdateParameter changes. Empty fields are
// left untouched.
type ParameterUpdate struct {
	Value string
	Name  string
	Type  string
}

// UpdateParameter modifies the parameter with the given id. It returns false
// when upd is empty and ErrUnknownNodeID unless exactly one parameter matches.
func (d *Document) UpdateParameter(id string, upd ParameterUpdate) (bool, error) {
	if upd == (ParameterUpdate{}) {
		return false, nil
	}
	idx := -1
	for i, p := range d.Parameters {
		if p.ID != id {
			continue
		}
		if idx >= 0 {
			return false, fmt.Errorf("update parameter %s: multiple parameters share the id", id)
		}
		idx = i
	}
	if idx < 0 {
		return false, fmt.Errorf("update parameter %s: %w", id, ErrUnknownNodeID)
	}
	p := &d.Parameters[idx]
	if upd.Value != "" {
		p.Value = upd.Value
	}
	if upd.Name != "" {
		p.Name = upd.Name
	}
	if upd.Type != "" {
		p.Type = upd.Type
	}
	return true, nil
}

// ParameterSelector picks parameters by exactly one of its fields.
type ParameterSelector struct {
	ID    string
	Name  string
	RefID string
}

func (s ParameterSelector) match(p Parameter) bool {
	switch {
	case s.ID != "":
		return p.ID == s.ID
	case s.Name != "":
		return p.Name == s.Name
	default:
		return p.RefID == s.RefID
	}
}

// RemoveParameters deletes every parameter matching sel and returns how many
// were removed.
func (d *Document) RemoveParameters(sel ParameterSelector) (int, error) {
	set := 0
	for _, v := range []string{sel.ID, sel.Name, sel.RefID} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return 0, fmt.Errorf("remove parameters: %w", ErrInvalidSelector)
	}
	return d.removeParams(sel.match), nil
}

func (d *Document) removeParams(match func(Parameter) bool) int {
	kept := d.Parameters[:0]
	removed := 0
	for _, p := range d.Parameters {
		if match(p) {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	d.Parameters = kept
	return removed
}

// RemoveNode deletes the node with the given id together with its
// parameters. An Indicator's children are promoted into its parent at its
// former position, unless prune is set, in which case the whole subtree and
// every parameter referencing it is removed. The top-level indicator cannot
// be removed. It returns false when no node has the id.
func (d *Document) RemoveNode(id string, prune bool) (bool, error) {
	if d.Criteria == nil {
		return false, nil
	}
	if id == d.Criteria.ID {
		return false, fmt.Errorf("remove node %s: %w", id, ErrCannotRemoveRoot)
	}
	parent, ok := d.Parent(id)
	if !ok {
		return false, nil
	}
	pos := -1
	for i, c := range parent.Children {
		if c.NodeID() == id {
			pos = i
			break
		}
	}
	target := parent.Children[pos]

	var replacement []Node
	removedIDs := map[string]bool{id: true}
	if ind, isIndicator := target.(*Indicator); isIndicator {
		if prune {
			Walk(ind, func(n Node, _ int) bool {
				removedIDs[n.NodeID()] = true
				return true
			})
		} else {
			replacement = ind.Children
		}
	}

	children := make([]Node, 0, len(parent.Children)-1+len(replacement))
	children = append(children, parent.Children[:pos]...)
	children = append(children, replacement...)
	children = append(children, parent.Children[pos+1:]...)
	parent.Children = children

	d.removeParams(func(p Parameter) bool { return removedIDs[p.RefID] })
	return true, nil
}

// SetName sets the short description.
func (d *Document) SetName(name string) { d.Metadata.ShortDescription = name }

// SetDescription sets the description.
func (d *Document) SetDescription(desc string) { d.Metadata.Description = desc }

// SetKeywords sets the keywords.
func (d *Document) SetKeywords(keywords string) { d.Metadata.Keywords = keywords }

// SetAuthor sets authored_by.
func (d *Document) SetAuthor(author string) { d.Metadata.AuthoredBy = author }

// RemoveName clears the short description and reports whether one was set.
func (d *Document) RemoveName() bool {
	had := d.Metadata.ShortDescription != ""
	d.Metadata.ShortDescription = ""
	return had
}

// RemoveDescription clears the description and reports whether one was set.
func (d *Document) RemoveDescription() bool {
	had := d.Metadata.Description != ""
	d.Metadata.Description = ""
	return had
}

// SetCreatedDate sets authored_date. An empty date means now.
func (d *Document) SetCreatedDate(date string) error {
	v, err := checkDate("authored_date", date)
	if err != nil {
		return err
	}
	d.Metadata.AuthoredDate = v
	return nil
}

// SetLastModified sets the last-modified attribute. An empty date means now.
func (d *Document) SetLastModified(date string) error {
	v, err := checkDate("last-modified", date)
	if err != nil {
		return err
	}
	d.LastModified = v
	return nil
}

// SetPublishedDate sets the published-date attribute. An empty date means now.
func (d *Document) SetPublishedDate(date string) error {
	v, err := checkDate("published-date", date)
	if err != nil {
		return err
	}
	d.PublishedDate = v
	return nil
}

func checkDate(field, date string) (string, error) {
	if date == "" {
		return Timestamp(), nil
	}
	if !dateRegex.MatchString(date) {
		return "", &ValidationError{Field: field, Value: date, Err: ErrInvalidDate}
	}
	return date, nil
}
