// Package identity maintains the bidirectional, TTL-bearing identity
// mapping caches bridging the chat side and the clinical side: room id to
// room classification and resource reference, and user id to twin. The
// caches are the authority for the "is this room/user already known"
// decisions made by the normalizers. Mappings are logically persistent:
// an optional key-value store receives every write so restarts do not
// lose 30-day associations.
package identity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/pkg/cache"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/resource"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/twin"
)

// DefaultTTL is the default time-to-live for name and identity mappings.
const DefaultTTL = 30 * 24 * time.Hour

// RoomClass is the derived classification of a chat room.
type RoomClass string

// Room classifications.
const (
	RoomClassUnknown           RoomClass = ""
	RoomClassPractitionerRole  RoomClass = "practitioner-role"
	RoomClassHealthcareService RoomClass = "healthcare-service"
	RoomClassNamed             RoomClass = "named"
)

// RoomRecord is one room's identity mapping: its display name, derived
// classification and, for role/service rooms, the clinical resource the
// room belongs to.
type RoomRecord struct {
	ID       string             `json:"id"`
	Name     string             `json:"name,omitempty"`
	Class    RoomClass          `json:"class,omitempty"`
	Resource resource.Reference `json:"resource,omitempty"`
}

// UserRecord is one chat user's identity mapping to a twin.
type UserRecord struct {
	ID       string    `json:"id"`
	TwinID   string    `json:"twin_id"`
	TwinType twin.Type `json:"twin_type"`
}

// KV is the write-through persistence surface for identity mappings. The
// in-memory caches remain the in-process authority; KV failures degrade
// persistence, never correctness.
type KV interface {
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Map holds the two identity caches. All mutating operations are safe
// under concurrent access; a single key maps to at most one value at a
// time, last writer wins.
type Map struct {
	rooms *cache.TTLCache[RoomRecord]
	users *cache.TTLCache[UserRecord]
	kv    KV
}

// Option configures a Map.
type Option func(*Map)

// WithKV enables write-through persistence of mappings.
func WithKV(kv KV) Option {
	return func(m *Map) {
		m.kv = kv
	}
}

// NewMap creates the identity mapping caches. defaultTTL applies to
// entries stored without an explicit TTL; the sweeper runs every
// cleanupInterval until ctx is cancelled or Close is called.
func NewMap(
	ctx context.Context, defaultTTL, cleanupInterval time.Duration,
	roomOpts []cache.Option[RoomRecord], userOpts []cache.Option[UserRecord],
	opts ...Option,
) (*Map, error) {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	rooms, err := cache.NewTTL[RoomRecord](ctx, defaultTTL, cleanupInterval, roomOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "identity.Map", "NewMap", "room cache construction")
	}
	users, err := cache.NewTTL[UserRecord](ctx, defaultTTL, cleanupInterval, userOpts...)
	if err != nil {
		_ = rooms.Close()
		return nil, errors.Wrap(err, "identity.Map", "NewMap", "user cache construction")
	}

	m := &Map{rooms: rooms, users: users}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Close stops the cache sweepers.
func (m *Map) Close() error {
	errRooms := m.rooms.Close()
	errUsers := m.users.Close()
	if errRooms != nil {
		return errRooms
	}
	return errUsers
}

// PutRoom stores a room mapping with the given TTL (<=0 selects the
// default). Last writer wins.
func (m *Map) PutRoom(ctx context.Context, rec RoomRecord, ttl time.Duration) error {
	if _, err := m.rooms.SetWithTTL(rec.ID, rec, ttl); err != nil {
		return err
	}
	m.persist(ctx, "room."+rec.ID, rec)
	return nil
}

// ReplaceRoom replaces a room mapping; semantically identical to PutRoom
// under last-writer-wins.
func (m *Map) ReplaceRoom(ctx context.Context, rec RoomRecord, ttl time.Duration) error {
	return m.PutRoom(ctx, rec, ttl)
}

// Room returns the mapping for a room id.
func (m *Map) Room(roomID string) (RoomRecord, bool) {
	return m.rooms.Get(roomID)
}

// RemoveRoom deletes a room mapping.
func (m *Map) RemoveRoom(ctx context.Context, roomID string) bool {
	removed, _ := m.rooms.Delete(roomID)
	if removed && m.kv != nil {
		_ = m.kv.Delete(ctx, "room."+roomID)
	}
	return removed
}

// PutUser stores a user-to-twin mapping with the given TTL.
func (m *Map) PutUser(ctx context.Context, rec UserRecord, ttl time.Duration) error {
	if _, err := m.users.SetWithTTL(rec.ID, rec, ttl); err != nil {
		return err
	}
	m.persist(ctx, "user."+rec.ID, rec)
	return nil
}

// ReplaceUser replaces a user mapping; semantically identical to PutUser
// under last-writer-wins.
func (m *Map) ReplaceUser(ctx context.Context, rec UserRecord, ttl time.Duration) error {
	return m.PutUser(ctx, rec, ttl)
}

// User returns the mapping for a user id.
func (m *Map) User(userID string) (UserRecord, bool) {
	return m.users.Get(userID)
}

// RemoveUser deletes a user mapping.
func (m *Map) RemoveUser(ctx context.Context, userID string) bool {
	removed, _ := m.users.Delete(userID)
	if removed && m.kv != nil {
		_ = m.kv.Delete(ctx, "user."+userID)
	}
	return removed
}

// persist write-throughs a mapping to the KV store. Failures are dropped:
// the in-memory cache stays authoritative and the mapping will be relearnt.
func (m *Map) persist(ctx context.Context, key string, value any) {
	if m.kv == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = m.kv.Put(ctx, key, data)
}
