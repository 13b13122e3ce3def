package identity

import "github.com/fhirfactory/pegacorn-communicate-iris-sub001/twin"

// Classification predicates. These back the normalizers' applicability
// decisions and must be stable: the answer only changes when an
// intervening mapping mutation changes it.

// IsPractitionerRoleRoom reports whether the room maps to a practitioner
// role.
func (m *Map) IsPractitionerRoleRoom(roomID string) bool {
	rec, ok := m.Room(roomID)
	return ok && rec.Class == RoomClassPractitionerRole
}

// IsHealthcareServiceRoom reports whether the room maps to a healthcare
// service.
func (m *Map) IsHealthcareServiceRoom(roomID string) bool {
	rec, ok := m.Room(roomID)
	return ok && rec.Class == RoomClassHealthcareService
}

// HasRoomName reports whether the room has an assigned display name.
func (m *Map) HasRoomName(roomID string) bool {
	rec, ok := m.Room(roomID)
	return ok && rec.Name != ""
}

// IsKnownRoom reports whether the room is already classified in any way a
// normalizer cares about: a role room, a service room, or a named room.
func (m *Map) IsKnownRoom(roomID string) bool {
	rec, ok := m.Room(roomID)
	if !ok {
		return false
	}
	return rec.Class == RoomClassPractitionerRole ||
		rec.Class == RoomClassHealthcareService ||
		rec.Name != ""
}

// IsPractitionerRoleUser reports whether the user maps to a practitioner
// role twin.
func (m *Map) IsPractitionerRoleUser(userID string) bool {
	rec, ok := m.User(userID)
	return ok && rec.TwinType == twin.TypePractitionerRole
}

// IsHealthcareServiceUser reports whether the user maps to a healthcare
// service twin.
func (m *Map) IsHealthcareServiceUser(userID string) bool {
	rec, ok := m.User(userID)
	return ok && rec.TwinType == twin.TypeHealthcareService
}

// IsKnownUser reports whether the user maps to any twin.
func (m *Map) IsKnownUser(userID string) bool {
	_, ok := m.User(userID)
	return ok
}
