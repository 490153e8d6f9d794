package domain

import (
	"fmt"
	"strings"
)

// MutableFields is the whitelist of listing attributes an owner may change.
// Owner and geometry are not in it.
var MutableFields = []string{"title", "description", "price", "location", "country", "image"}

// IsMutableField reports whether name is in MutableFields.
func IsMutableField(name string) bool {
	for _, f := range MutableFields {
		if f == name {
			return true
		}
	}
	return false
}

// ListingPatch carries the fields to change. Nil means unchanged.
type ListingPatch struct {
	Title       *string
	Description *string
	Price       *float64
	Location    *string
	Country     *string
	Image       *ImageRef

	// ExpectedRevision, when set, must match the stored revision.
	ExpectedRevision *int64
}

// Changed lists the names of the fields the patch sets.
func (p ListingPatch) Changed() []string {
	var out []string
	if p.Title != nil {
		out = append(out, "title")
	}
	if p.Description != nil {
		out = append(out, "description")
	}
	if p.Price != nil {
		out = append(out, "price")
	}
	if p.Location != nil {
		out = append(out, "location")
	}
	if p.Country != nil {
		out = append(out, "country")
	}
	if p.Image != nil {
		out = append(out, "image")
	}
	return out
}

// IsEmpty reports whether the patch changes nothing.
func (p ListingPatch) IsEmpty() bool { return len(p.Changed()) == 0 }

// Validate checks the values the patch sets.
func (p ListingPatch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: patch sets no fields", ErrValidation)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if p.Location != nil && strings.TrimSpace(*p.Location) == "" {
		return fmt.Errorf("%w: location cannot be empty", ErrValidation)
	}
	if p.Price != nil && !ValidPrice(*p.Price) {
		return fmt.Errorf("%w: price must be a finite non-negative number", ErrValidation)
	}
	if p.Image != nil && (p.Image.URL == "" || p.Image.Filename == "") {
		return fmt.Errorf("%w: image requires url and filename", ErrValidation)
	}
	return nil
}

// Apply copies the patched fields onto l. Owner and geometry are untouched.
func (p ListingPatch) Apply(l *Listing) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.Country != nil {
		l.Country = *p.Country
	}
	if p.Image != nil {
		l.Image = *p.Image
	}
}
