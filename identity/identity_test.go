package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/resource"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/twin"
)

func newTestMap(t *testing.T, opts ...Option) *Map {
	t.Helper()
	m, err := NewMap(context.Background(), time.Minute, 10*time.Millisecond, nil, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func roleRoom(id string) RoomRecord {
	return RoomRecord{
		ID:       id,
		Name:     "Emergency Lead",
		Class:    RoomClassPractitionerRole,
		Resource: resource.Reference{Type: "PractitionerRole", ID: "pr-emergency-lead"},
	}
}

func TestRoomPredicates(t *testing.T) {
	m := newTestMap(t)
	ctx := context.Background()

	require.NoError(t, m.PutRoom(ctx, roleRoom("!role:server"), 0))
	require.NoError(t, m.PutRoom(ctx, RoomRecord{
		ID:       "!svc:server",
		Class:    RoomClassHealthcareService,
		Resource: resource.Reference{Type: "HealthcareService", ID: "hs-1"},
	}, 0))
	require.NoError(t, m.PutRoom(ctx, RoomRecord{
		ID:    "!named:server",
		Name:  "Ward Chatter",
		Class: RoomClassNamed,
	}, 0))

	assert.True(t, m.IsPractitionerRoleRoom("!role:server"))
	assert.False(t, m.IsPractitionerRoleRoom("!svc:server"))
	assert.True(t, m.IsHealthcareServiceRoom("!svc:server"))
	assert.True(t, m.HasRoomName("!named:server"))
	assert.False(t, m.HasRoomName("!svc:server"))

	assert.True(t, m.IsKnownRoom("!role:server"))
	assert.True(t, m.IsKnownRoom("!svc:server"))
	assert.True(t, m.IsKnownRoom("!named:server"))
	assert.False(t, m.IsKnownRoom("!stranger:server"))
}

func TestPredicateStability(t *testing.T) {
	m := newTestMap(t)
	require.NoError(t, m.PutRoom(context.Background(), roleRoom("!role:server"), 0))

	// With no intervening mutation the answer must not flip.
	for i := 0; i < 100; i++ {
		assert.True(t, m.IsPractitionerRoleRoom("!role:server"))
	}
}

func TestUserPredicates(t *testing.T) {
	m := newTestMap(t)
	ctx := context.Background()

	require.NoError(t, m.PutUser(ctx, UserRecord{
		ID:       "@alice:server",
		TwinID:   "PractitionerRole/pr-1",
		TwinType: twin.TypePractitionerRole,
	}, 0))

	assert.True(t, m.IsPractitionerRoleUser("@alice:server"))
	assert.False(t, m.IsHealthcareServiceUser("@alice:server"))
	assert.True(t, m.IsKnownUser("@alice:server"))

	assert.False(t, m.IsPractitionerRoleUser("@bob:server"))
	assert.False(t, m.IsHealthcareServiceUser("@bob:server"))
	assert.False(t, m.IsKnownUser("@bob:server"))
}

func TestLastWriterWins(t *testing.T) {
	m := newTestMap(t)
	ctx := context.Background()

	require.NoError(t, m.PutRoom(ctx, RoomRecord{ID: "!r:server", Name: "First"}, 0))
	require.NoError(t, m.ReplaceRoom(ctx, RoomRecord{ID: "!r:server", Name: "Second"}, 0))

	rec, ok := m.Room("!r:server")
	require.True(t, ok)
	assert.Equal(t, "Second", rec.Name)
}

func TestReverseLookupRemovesAllMatches(t *testing.T) {
	m := newTestMap(t)
	ctx := context.Background()

	// Two user ids mapped to the same twin (e.g. a migrated account).
	for _, id := range []string{"@alice:server", "@alice:old-server"} {
		require.NoError(t, m.PutUser(ctx, UserRecord{
			ID:       id,
			TwinID:   "PractitionerRole/pr-1",
			TwinType: twin.TypePractitionerRole,
		}, 0))
	}
	require.NoError(t, m.PutUser(ctx, UserRecord{
		ID:       "@carol:server",
		TwinID:   "PractitionerRole/pr-2",
		TwinType: twin.TypePractitionerRole,
	}, 0))

	assert.Len(t, m.UsersForTwin("PractitionerRole/pr-1"), 2)

	removed := m.RemoveMappingsForTwin(ctx, "PractitionerRole/pr-1")
	assert.Equal(t, 2, removed, "removal matches every mapping, not just the first")
	assert.Empty(t, m.UsersForTwin("PractitionerRole/pr-1"))
	assert.True(t, m.IsKnownUser("@carol:server"), "unrelated mappings survive")
}

func TestRoomsForResource(t *testing.T) {
	m := newTestMap(t)
	ctx := context.Background()

	require.NoError(t, m.PutRoom(ctx, roleRoom("!a:server"), 0))
	require.NoError(t, m.PutRoom(ctx, roleRoom("!b:server"), 0))

	rooms := m.RoomsForResource("PractitionerRole/pr-emergency-lead")
	assert.Len(t, rooms, 2)

	removed := m.RemoveMappingsForResource(ctx, "PractitionerRole/pr-emergency-lead")
	assert.Equal(t, 2, removed)
	assert.Empty(t, m.RoomsForResource("PractitionerRole/pr-emergency-lead"))
}

func TestMappingExpiry(t *testing.T) {
	m := newTestMap(t)
	ctx := context.Background()

	require.NoError(t, m.PutRoom(ctx, roleRoom("!short:server"), 20*time.Millisecond))
	assert.True(t, m.IsPractitionerRoleRoom("!short:server"))

	time.Sleep(50 * time.Millisecond)
	assert.False(t, m.IsPractitionerRoleRoom("!short:server"), "expired mapping no longer classifies")
}

type recordingKV struct {
	mu      sync.Mutex
	puts    map[string][]byte
	deletes []string
}

func (kv *recordingKV) Put(_ context.Context, key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.puts == nil {
		kv.puts = make(map[string][]byte)
	}
	kv.puts[key] = value
	return nil
}

func (kv *recordingKV) Delete(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.deletes = append(kv.deletes, key)
	return nil
}

func TestKVWriteThrough(t *testing.T) {
	kv := &recordingKV{}
	m := newTestMap(t, WithKV(kv))
	ctx := context.Background()

	require.NoError(t, m.PutRoom(ctx, roleRoom("!r:server"), 0))
	require.NoError(t, m.PutUser(ctx, UserRecord{
		ID: "@alice:server", TwinID: "PractitionerRole/pr-1", TwinType: twin.TypePractitionerRole,
	}, 0))

	kv.mu.Lock()
	assert.Contains(t, kv.puts, "room.!r:server")
	assert.Contains(t, kv.puts, "user.@alice:server")
	kv.mu.Unlock()

	m.RemoveUser(ctx, "@alice:server")
	kv.mu.Lock()
	assert.Contains(t, kv.deletes, "user.@alice:server")
	kv.mu.Unlock()
}

func TestConcurrentMutation(t *testing.T) {
	m := newTestMap(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = m.PutRoom(ctx, roleRoom("!contended:server"), 0)
				m.IsPractitionerRoleRoom("!contended:server")
				m.RemoveRoom(ctx, "!contended:server")
			}
		}()
	}
	wg.Wait()
}
