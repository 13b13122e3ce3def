package twin

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/resource"
)

func roleRef() resource.Reference {
	return resource.Reference{Type: "PractitionerRole", ID: "pr-1"}
}

func TestTwinRoomMembership(t *testing.T) {
	tw := NewTwin("PractitionerRole/pr-1", TypePractitionerRole, roleRef())

	assert.True(t, tw.AddRoom("!abc:server"))
	assert.False(t, tw.AddRoom("!abc:server"), "adding a known room is a no-op")
	assert.False(t, tw.AddRoom(""), "empty room ids are rejected")

	assert.True(t, tw.InRoom("!abc:server"))
	assert.Equal(t, []string{"!abc:server"}, tw.Rooms())

	assert.True(t, tw.RemoveRoom("!abc:server"))
	assert.False(t, tw.RemoveRoom("!abc:server"))
	assert.Empty(t, tw.Rooms())
}

func TestTwinRoomsReturnsCopy(t *testing.T) {
	tw := NewTwin("PractitionerRole/pr-1", TypePractitionerRole, roleRef())
	tw.AddRoom("!a:server")

	rooms := tw.Rooms()
	rooms[0] = "mutated"
	assert.True(t, tw.InRoom("!a:server"))
}

func TestTwinLifecycle(t *testing.T) {
	tw := NewTwin("PractitionerRole/pr-1", TypePractitionerRole, roleRef())
	assert.Equal(t, StateActive, tw.State())

	assert.True(t, tw.Suspend())
	assert.Equal(t, StateSuspended, tw.State())
	assert.False(t, tw.Suspend(), "suspend is only valid from active")

	assert.True(t, tw.Resume())
	assert.Equal(t, StateActive, tw.State())

	assert.True(t, tw.Retire())
	assert.Equal(t, StateRetired, tw.State())
	assert.False(t, tw.Retire(), "retired is terminal")
	assert.False(t, tw.Suspend(), "no transitions out of retired")
	assert.False(t, tw.Resume())
}

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry()

	tw, created, err := r.GetOrCreate("PractitionerRole/pr-1", TypePractitionerRole, roleRef())
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, tw)

	again, created, err := r.GetOrCreate("PractitionerRole/pr-1", TypePractitionerRole, roleRef())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, tw, again)

	_, _, err = r.GetOrCreate("Oddity/x", Type("Oddity"), resource.Reference{Type: "Oddity", ID: "x"})
	assert.Error(t, err, "unknown twin type must be rejected")
}

func TestRegistryConcurrentGetOrCreate(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := r.GetOrCreate("CareTeam/ct-1", TypeCareTeam, resource.Reference{Type: "CareTeam", ID: "ct-1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, r.Size(), "concurrent creates of one id must collapse")
}

func TestRegistryRetire(t *testing.T) {
	r := NewRegistry()
	_, _, err := r.GetOrCreate("Group/g-1", TypeGroup, resource.Reference{Type: "Group", ID: "g-1"})
	require.NoError(t, err)

	tw, retired := r.Retire("Group/g-1")
	assert.True(t, retired)
	assert.Equal(t, StateRetired, tw.State())

	// Retired twins stay resident; they are not resurrected by GetOrCreate.
	same, created, err := r.GetOrCreate("Group/g-1", TypeGroup, resource.Reference{Type: "Group", ID: "g-1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, StateRetired, same.State())
}

func TestTypeResolution(t *testing.T) {
	typ, err := TypeFromID("HealthcareService/hs-9")
	require.NoError(t, err)
	assert.Equal(t, TypeHealthcareService, typ)

	_, err = TypeFromID("not-a-reference")
	assert.Error(t, err)

	_, err = TypeFromID("Observation/obs-1")
	assert.Error(t, err, "non-twin resource types do not resolve")
}

func TestOutcomeSetAdd(t *testing.T) {
	set := NewOutcomeSet(NewBehaviourID(TypePractitionerRole, ArchetypeStimuliBased, "membership"), "stim-1", "PractitionerRole/pr-1")
	assert.True(t, set.IsEmpty())

	set.Add(NewOutcome(nil))
	set.Add(NewOutcome(nil))
	assert.Len(t, set.Outcomes, 2)
	assert.False(t, set.IsEmpty())
}
