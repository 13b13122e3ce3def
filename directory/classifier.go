package directory

import (
	"strings"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/identity"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/resource"
)

// Default topic markers identifying clinically-bound rooms. A room whose
// topic starts with a marker carries the bound resource id after it,
// e.g. "pegacorn:role:pr-emergency-lead".
const (
	DefaultRoleMarker    = "pegacorn:role:"
	DefaultServiceMarker = "pegacorn:service:"
)

// Classifier derives a room's classification from its directory detail.
type Classifier struct {
	roleMarker    string
	serviceMarker string
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithRoleMarker overrides the practitioner-role topic marker.
func WithRoleMarker(marker string) ClassifierOption {
	return func(c *Classifier) {
		c.roleMarker = marker
	}
}

// WithServiceMarker overrides the healthcare-service topic marker.
func WithServiceMarker(marker string) ClassifierOption {
	return func(c *Classifier) {
		c.serviceMarker = marker
	}
}

// NewClassifier creates a classifier with the default topic markers.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		roleMarker:    DefaultRoleMarker,
		serviceMarker: DefaultServiceMarker,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify derives the room class and, for role and service rooms, the
// clinical resource reference the room is bound to. Rooms without a
// marker but with a display name classify as named; everything else is
// unknown.
func (c *Classifier) Classify(detail RoomDetail) (identity.RoomClass, resource.Reference) {
	topic := strings.TrimSpace(detail.Topic)

	if id, ok := markerValue(topic, c.roleMarker); ok {
		return identity.RoomClassPractitionerRole, resource.Reference{Type: "PractitionerRole", ID: id}
	}
	if id, ok := markerValue(topic, c.serviceMarker); ok {
		return identity.RoomClassHealthcareService, resource.Reference{Type: "HealthcareService", ID: id}
	}
	if detail.Name != "" {
		return identity.RoomClassNamed, resource.Reference{}
	}
	return identity.RoomClassUnknown, resource.Reference{}
}

// Record builds the identity mapping record for a classified room.
func (c *Classifier) Record(detail RoomDetail) identity.RoomRecord {
	class, ref := c.Classify(detail)
	return identity.RoomRecord{
		ID:       detail.ID,
		Name:     detail.Name,
		Class:    class,
		Resource: ref,
	}
}

func markerValue(topic, marker string) (string, bool) {
	if marker == "" || !strings.HasPrefix(topic, marker) {
		return "", false
	}
	id := strings.TrimSpace(strings.TrimPrefix(topic, marker))
	if id == "" {
		return "", false
	}
	return id, true
}
