package parcel

import (
	"strings"
)

// ValidationStatus marks whether a token's payload passed schema validation.
type ValidationStatus string

// NormalizationStatus marks whether a token's payload passed normalization.
type NormalizationStatus string

// Token status values. Every token is born unvalidated and unnormalized;
// only the normalization stage flips the normalization status.
const (
	ValidationUnvalidated ValidationStatus = "unvalidated"
	ValidationValidated   ValidationStatus = "validated"

	NormalizationUnnormalized NormalizationStatus = "unnormalized"
	NormalizationNormalized   NormalizationStatus = "normalized"
)

// Subcategory values for the messaging-service taxonomy.
const (
	SubcategoryRoomEvents = "RoomEvents"
	SubcategoryUserEvents = "UserEvents"
	SubcategoryPresence   = "Presence"
	SubcategoryGeneral    = "General"
)

// Token is the hierarchical classification key attached to every payload
// moving through the pipeline. Tokens are immutable value objects: the
// With* methods return modified copies. Two tokens are equal iff every
// path segment and the version match; the status fields do not participate
// in equality.
type Token struct {
	Definer            string              `json:"definer"`
	Category           string              `json:"category"`
	Subcategory        string              `json:"subcategory"`
	Resource           string              `json:"resource"`
	DiscriminatorType  string              `json:"discriminator_type,omitempty"`
	DiscriminatorValue string              `json:"discriminator_value,omitempty"`
	Version            string              `json:"version"`
	Validation         ValidationStatus    `json:"validation"`
	Normalization      NormalizationStatus `json:"normalization"`
}

// Key returns the dotted notation of the token's full hierarchical path:
// definer.category.subcategory.resource[.discriminatorType.discriminatorValue].version
// Identical inputs always yield byte-identical keys, which is what makes
// subscription matching reliable across process restarts.
func (t Token) Key() string {
	var b strings.Builder
	b.WriteString(t.Definer)
	b.WriteByte('.')
	b.WriteString(t.Category)
	b.WriteByte('.')
	b.WriteString(t.Subcategory)
	b.WriteByte('.')
	b.WriteString(t.Resource)
	if t.DiscriminatorType != "" {
		b.WriteByte('.')
		b.WriteString(t.DiscriminatorType)
		b.WriteByte('.')
		b.WriteString(t.DiscriminatorValue)
	}
	b.WriteByte('.')
	b.WriteString(t.Version)
	return b.String()
}

// String returns the same as Key().
func (t Token) String() string {
	return t.Key()
}

// Equal compares two tokens by their full hierarchical path and version.
func (t Token) Equal(other Token) bool {
	return t.Definer == other.Definer &&
		t.Category == other.Category &&
		t.Subcategory == other.Subcategory &&
		t.Resource == other.Resource &&
		t.DiscriminatorType == other.DiscriminatorType &&
		t.DiscriminatorValue == other.DiscriminatorValue &&
		t.Version == other.Version
}

// IsValid checks that all mandatory segments are populated and that a
// discriminator value never appears without its type.
func (t Token) IsValid() bool {
	if t.Definer == "" || t.Category == "" || t.Subcategory == "" || t.Resource == "" || t.Version == "" {
		return false
	}
	if t.DiscriminatorValue != "" && t.DiscriminatorType == "" {
		return false
	}
	return true
}

// IsNormalized reports whether the token has passed normalization.
func (t Token) IsNormalized() bool {
	return t.Normalization == NormalizationNormalized
}

// WithNormalized returns a copy of the token with normalization status set
// to normalized, leaving every other field intact.
func (t Token) WithNormalized() Token {
	t.Normalization = NormalizationNormalized
	return t
}

// WithValidated returns a copy of the token with validation status set to
// validated.
func (t Token) WithValidated() Token {
	t.Validation = ValidationValidated
	return t
}

// Subject derives the NATS subject for this token's path. Segments are
// lower-cased; NATS-reserved characters in the resource and discriminator
// segments are replaced with '-'.
func (t Token) Subject() string {
	sanitize := func(s string) string {
		s = strings.ToLower(s)
		return strings.Map(func(r rune) rune {
			switch r {
			case '.', '*', '>', ' ':
				return '-'
			default:
				return r
			}
		}, s)
	}

	parts := []string{
		sanitize(t.Definer),
		sanitize(t.Category),
		sanitize(t.Subcategory),
		sanitize(t.Resource),
	}
	if t.DiscriminatorType != "" {
		parts = append(parts, sanitize(t.DiscriminatorType), sanitize(t.DiscriminatorValue))
	}
	parts = append(parts, sanitize(t.Version))
	return strings.Join(parts, ".")
}

