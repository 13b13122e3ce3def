// Package resource holds the simplified clinical-resource model the
// pipeline routes and caches on: typed references, business identifiers,
// and a flattened snapshot of the actor behind a twin. The full clinical
// schema lives with the resource broker; only the identification and
// classification metadata needed for routing belongs here.
package resource

import (
	"fmt"
	"strings"
	"time"
)

// Reference is a typed pointer to a clinical resource, rendered as
// "Type/id" on the wire, e.g. "PractitionerRole/pr-emergency-lead".
type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// String renders the reference in its Type/id wire form.
func (r Reference) String() string {
	return fmt.Sprintf("%s/%s", r.Type, r.ID)
}

// IsZero reports whether the reference is unset.
func (r Reference) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

// ParseReference parses a "Type/id" string. The id portion may itself
// contain slashes.
func ParseReference(s string) (Reference, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Reference{}, fmt.Errorf("reference %q is not of the form Type/id", s)
	}
	return Reference{Type: parts[0], ID: parts[1]}, nil
}

// Identifier is a business identifier in a named system, e.g. an employee
// number or a directory entry id.
type Identifier struct {
	System string `json:"system"`
	Value  string `json:"value"`
}

// Resource is the flattened snapshot of a clinical actor carried on
// stimuli. It identifies the actor and its display form; everything else
// stays with the broker.
type Resource struct {
	Reference   Reference    `json:"reference"`
	Identifiers []Identifier `json:"identifiers,omitempty"`
	DisplayName string       `json:"display_name,omitempty"`
	Active      bool         `json:"active"`
	LastUpdated time.Time    `json:"last_updated,omitempty"`
}

// IsZero reports whether the snapshot is unset.
func (r Resource) IsZero() bool {
	return r.Reference.IsZero()
}
