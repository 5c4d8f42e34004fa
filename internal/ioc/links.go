package ioc

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks that the link has a rel and at least one of href or text.
func (l Link) Validate() error {
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	return nil
}

// AddLink appends a link to the metadata.
func (d *Document) AddLink(rel, text, href string) error {
	l := Link{Rel: rel, Text: text, Href: href}
	if err := l.Validate(); err != nil {
		return err
	}
	d.Metadata.Links = append(d.Metadata.Links, l)
	return nil
}

// UpdateLinkRel renames the rel of links whose rel is oldRel. With single
// set only the first match changes. It returns the number of links changed.
func (d *Document) UpdateLinkRel(oldRel, newRel string, single bool) int {
	if newRel == "" {
		return 0
	}
	n := 0
	for i := range d.Metadata.Links {
		if d.Metadata.Links[i].Rel != oldRel {
			continue
		}
		d.Metadata.Links[i].Rel = newRel
		n++
		if single {
			break
		}
	}
	return n
}

// UpdateLinkText rewrites the text of links with the given rel. When oldText
// is non-empty only links with that text are rewritten.
func (d *Document) UpdateLinkText(rel, oldText, newText string, single bool) int {
	n := 0
	for i := range d.Metadata.Links {
		l := &d.Metadata.Links[i]
		if l.Rel != rel || (oldText != "" && l.Text != oldText) {
			continue
		}
		l.Text = newText
		n++
		if single {
			break
		}
	}
	return n
}

// RemoveLinks deletes links with the given rel, optionally narrowed by text
// and href, and returns how many were removed.
func (d *Document) RemoveLinks(rel, text, href string) int {
	kept := d.Metadata.Links[:0]
	removed := 0
	for _, l := range d.Metadata.Links {
		if l.Rel == rel && (text == "" || l.Text == text) && (href == "" || l.Href == href) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	d.Metadata.Links = kept
	return removed
}
