package domain

import (
	"fmt"
	"regexp"
)

// tagLabelPattern constrains tag labels to word characters so that labels
// are always single tokens in the query grammar.
var tagLabelPattern = regexp.MustCompile(`^\w+$`)

// typeSymbolPattern excludes every character that carries meaning in the
// query grammar, so a symbol can safely prefix a label.
var typeSymbolPattern = regexp.MustCompile(`^[^\w+()\\:-]$`)

// TagType groups tags under a one-character symbol and a display color.
// The symbol is a reserved prefix: typing "@alice" names the tag "alice"
// with the type whose symbol is '@'.
type TagType struct {
	ID     int64  `json:"id"`
	Label  string `json:"label"`
	Symbol string `json:"symbol"`
	Color  int32  `json:"color"` // RGB, 0xRRGGBB
}

// Validate checks the label and symbol invariants.
func (t *TagType) Validate() error {
	if t.Label == "" {
		return fmt.Errorf("empty tag type label")
	}
	if !typeSymbolPattern.MatchString(t.Symbol) {
		return fmt.Errorf("illegal tag type symbol %q", t.Symbol)
	}
	return nil
}

// Tag is a label attached to images. A tag may carry a type.
type Tag struct {
	ID     int64    `json:"id"`
	Label  string   `json:"label"`
	TypeID *int64   `json:"type_id,omitempty"`
	Type   *TagType `json:"type,omitempty"`
}

// Validate checks the label invariant (word characters only).
func (t *Tag) Validate() error {
	if !tagLabelPattern.MatchString(t.Label) {
		return fmt.Errorf("illegal tag label %q", t.Label)
	}
	return nil
}

// RawLabel returns the label prefixed with its type symbol, the shorthand
// users type to create a typed tag.
func (t *Tag) RawLabel() string {
	if t.Type != nil {
		return t.Type.Symbol + t.Label
	}
	return t.Label
}

// CompoundTag is a named macro over other tags. It exists only to be
// expanded inside queries; it can never be attached to an image.
type CompoundTag struct {
	Tag
	Definition string `json:"definition"`
}

// ValidTagLabel reports whether label satisfies the tag label pattern.
func ValidTagLabel(label string) bool {
	return tagLabelPattern.MatchString(label)
}
