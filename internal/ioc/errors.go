package ioc

import (
	"errors"
	"fmt"
)

// Sentinel errors for the document model and its readers.
var (
	// ErrInvalidOperator indicates an Indicator operator other than AND/OR
	ErrInvalidOperator = errors.New("invalid operator")
	// ErrInvalidCondition indicates a condition outside the dialect's vocabulary
	ErrInvalidCondition = errors.New("invalid condition")
	// ErrUnknownNodeID indicates an id that does not resolve in the logic tree
	ErrUnknownNodeID = errors.New("unknown node id")
	// ErrCannotRemoveRoot indicates an attempt to remove the top-level indicator
	ErrCannotRemoveRoot = errors.New("cannot remove top-level indicator")
	// ErrNotLegacyDocument indicates a 1.0 reader was handed a non-ioc root
	ErrNotLegacyDocument = errors.New("not an OpenIOC 1.0 document")
	// ErrNotOpenIOC indicates a 1.1 reader was handed a non-OpenIOC root
	ErrNotOpenIOC = errors.New("not an OpenIOC 1.1 document")
	// ErrMissingDefinition indicates a 1.0 document without a definition element
	ErrMissingDefinition = errors.New("missing definition")
	// ErrMissingCriteria indicates a 1.1 document without a criteria element
	ErrMissingCriteria = errors.New("missing criteria")
	// ErrMissingTopLevel indicates a logic container without a top-level Indicator
	ErrMissingTopLevel = errors.New("missing top-level indicator")
	// ErrMalformedOperator indicates a bad operator found while walking a tree
	ErrMalformedOperator = errors.New("malformed operator")
	// ErrMalformedNode indicates an element other than Indicator/IndicatorItem in a tree
	ErrMalformedNode = errors.New("malformed node")
	// ErrMissingRequiredMetadata indicates a required metadata field is absent
	ErrMissingRequiredMetadata = errors.New("missing required metadata")
	// ErrInvalidDate indicates a timestamp not in YYYY-MM-DDTHH:MM:SS form
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidSelector indicates zero or several parameter selectors were given
	ErrInvalidSelector = errors.New("exactly one selector required")
	// ErrInvalidLink indicates a link without rel or without href and text
	ErrInvalidLink = errors.New("invalid link")
)

// StructuralError describes a malformed or schema-incompatible input tree.
type StructuralError struct {
	Element string // element being inspected, if known
	ID      string // id of the offending node, if known
	Message string
	Err     error
}

func (e *StructuralError) Error() string {
	var where string
	switch {
	case e.Element != "" && e.ID != "":
		where = fmt.Sprintf(" at %s %s", e.Element, e.ID)
	case e.Element != "":
		where = " at " + e.Element
	case e.ID != "":
		where = " at " + e.ID
	}
	if e.Message == "" {
		return fmt.Sprintf("structural error%s: %v", where, e.Err)
	}
	return fmt.Sprintf("structural error%s: %s: %v", where, e.Message, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// ValidationError describes a rejected builder or mutator argument.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ReferentialError describes a parameter pointing at a node that is not in
// the logic tree.
type ReferentialError struct {
	NodeID string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnknownNodeID, e.NodeID)
}

func (e *ReferentialError) Unwrap() error {
	return ErrUnknownNodeID
}

// MissingMetadataError is raised when a required metadata field is absent.
type MissingMetadataError struct {
	DocumentID string
	Field      string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("%v: %s (document %s)", ErrMissingRequiredMetadata, e.Field, e.DocumentID)
}

func (e *MissingMetadataError) Unwrap() error {
	return ErrMissingRequiredMetadata
}
