package twin

import (
	"sort"
	"sync"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/resource"
)

// State is a twin's lifecycle state. Twins are created on first stimulus
// and only leave the active state through an explicit transition; there is
// no implicit garbage collection.
type State string

// Lifecycle states. Retired is terminal.
const (
	StateActive    State = "active"
	StateSuspended State = "suspended"
	StateRetired   State = "retired"
)

// Twin is the live in-memory representative of a clinical actor: its
// identifier, the underlying simplified resource reference, and the set of
// room identifiers the actor participates in. The twin exclusively owns
// its room-membership set; room records themselves live in the identity
// mapping layer and are shared read-only.
type Twin struct {
	mu       sync.RWMutex
	id       string
	twinType Type
	ref      resource.Reference
	rooms    map[string]struct{}
	state    State
}

// NewTwin creates an active twin with an empty room-membership set.
func NewTwin(id string, twinType Type, ref resource.Reference) *Twin {
	return &Twin{
		id:       id,
		twinType: twinType,
		ref:      ref,
		rooms:    make(map[string]struct{}),
		state:    StateActive,
	}
}

// ID returns the twin identifier.
func (t *Twin) ID() string {
	return t.id
}

// Type returns the twin's kind.
func (t *Twin) Type() Type {
	return t.twinType
}

// Resource returns the underlying clinical resource reference.
func (t *Twin) Resource() resource.Reference {
	return t.ref
}

// State returns the current lifecycle state.
func (t *Twin) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// AddRoom records the twin's participation in a room. Returns true if the
// room was newly added.
func (t *Twin) AddRoom(roomID string) bool {
	if roomID == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rooms[roomID]; exists {
		return false
	}
	t.rooms[roomID] = struct{}{}
	return true
}

// RemoveRoom removes a room from the membership set. Returns true if the
// room was present.
func (t *Twin) RemoveRoom(roomID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rooms[roomID]; !exists {
		return false
	}
	delete(t.rooms, roomID)
	return true
}

// InRoom reports whether the twin participates in the room.
func (t *Twin) InRoom(roomID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.rooms[roomID]
	return exists
}

// Rooms returns a sorted copy of the room-membership set.
func (t *Twin) Rooms() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rooms := make([]string, 0, len(t.rooms))
	for room := range t.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Suspend moves an active twin to suspended. Suspending a suspended twin
// is a no-op; a retired twin stays retired.
func (t *Twin) Suspend() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateActive {
		return false
	}
	t.state = StateSuspended
	return true
}

// Resume moves a suspended twin back to active.
func (t *Twin) Resume() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateSuspended {
		return false
	}
	t.state = StateActive
	return true
}

// Retire moves the twin to its terminal state. Returns false if already
// retired.
func (t *Twin) Retire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateRetired {
		return false
	}
	t.state = StateRetired
	return true
}
