package identity

import "context"

// Reverse lookups scan the forward map. Cache cardinality is bounded by
// active room and user counts, not event volume, so a linear scan is
// acceptable here.

// UsersForTwin returns every user mapped to the given twin.
func (m *Map) UsersForTwin(twinID string) []UserRecord {
	var out []UserRecord
	for _, key := range m.users.Keys() {
		if rec, ok := m.users.Get(key); ok && rec.TwinID == twinID {
			out = append(out, rec)
		}
	}
	return out
}

// RoomsForResource returns every room mapped to the given clinical
// resource reference.
func (m *Map) RoomsForResource(ref string) []RoomRecord {
	var out []RoomRecord
	for _, key := range m.rooms.Keys() {
		if rec, ok := m.rooms.Get(key); ok && rec.Resource.String() == ref {
			out = append(out, rec)
		}
	}
	return out
}

// RemoveMappingsForTwin removes every user mapping pointing at the given
// twin, not just the first match, and returns how many were removed.
func (m *Map) RemoveMappingsForTwin(ctx context.Context, twinID string) int {
	removed := 0
	for _, rec := range m.UsersForTwin(twinID) {
		if m.RemoveUser(ctx, rec.ID) {
			removed++
		}
	}
	return removed
}

// RemoveMappingsForResource removes every room mapping pointing at the
// given resource reference and returns how many were removed.
func (m *Map) RemoveMappingsForResource(ctx context.Context, ref string) int {
	removed := 0
	for _, rec := range m.RoomsForResource(ref) {
		if m.RemoveRoom(ctx, rec.ID) {
			removed++
		}
	}
	return removed
}
