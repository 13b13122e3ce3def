package twin

import (
	"fmt"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/resource"
)

// Type identifies which of the five clinical actor kinds a twin represents.
type Type string

// The fixed set of twin kinds.
const (
	TypePractitioner      Type = "Practitioner"
	TypePractitionerRole  Type = "PractitionerRole"
	TypeCareTeam          Type = "CareTeam"
	TypeGroup             Type = "Group"
	TypeHealthcareService Type = "HealthcareService"
)

// Types returns all valid twin types, in a stable order.
func Types() []Type {
	return []Type{
		TypePractitioner,
		TypePractitionerRole,
		TypeCareTeam,
		TypeGroup,
		TypeHealthcareService,
	}
}

// IsValid reports whether t is one of the five fixed twin kinds.
func (t Type) IsValid() bool {
	switch t {
	case TypePractitioner, TypePractitionerRole, TypeCareTeam, TypeGroup, TypeHealthcareService:
		return true
	default:
		return false
	}
}

// String returns the type name.
func (t Type) String() string {
	return string(t)
}

// TypeFromReference resolves the twin type for a clinical resource
// reference. The reference type string must name one of the five twin
// kinds; anything else is a routing configuration fault.
func TypeFromReference(ref resource.Reference) (Type, error) {
	t := Type(ref.Type)
	if !t.IsValid() {
		return "", errors.WrapFatal(errors.ErrRoutingConfiguration, "Type", "TypeFromReference",
			fmt.Sprintf("reference type %q is not a twin kind", ref.Type))
	}
	return t, nil
}

// TypeFromID resolves the twin type from a twin identifier. Twin
// identifiers are reference-shaped ("PractitionerRole/pr-1") so the type
// is recoverable from the identifier alone.
func TypeFromID(twinID string) (Type, error) {
	ref, err := resource.ParseReference(twinID)
	if err != nil {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "Type", "TypeFromID",
			fmt.Sprintf("twin id %q is not reference-shaped", twinID))
	}
	return TypeFromReference(ref)
}
