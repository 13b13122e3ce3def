package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/identity"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/resource"
)

type slowDirectory struct {
	delay  time.Duration
	detail RoomDetail
	err    error
}

func (d *slowDirectory) GetRoomDetail(ctx context.Context, roomID string) (RoomDetail, error) {
	select {
	case <-time.After(d.delay):
	case <-ctx.Done():
		return RoomDetail{}, ctx.Err()
	}
	if d.err != nil {
		return RoomDetail{}, d.err
	}
	detail := d.detail
	detail.ID = roomID
	return detail, nil
}

type stubBroker struct {
	res resource.Resource
	err error
}

func (b *stubBroker) GetResource(_ context.Context, _ string) (resource.Resource, error) {
	if b.err != nil {
		return resource.Resource{}, b.err
	}
	return b.res, nil
}

func TestGuardedDirectoryTimeout(t *testing.T) {
	g := NewGuardedRoomDirectory(&slowDirectory{delay: 200 * time.Millisecond}, 20*time.Millisecond)

	_, err := g.GetRoomDetail(context.Background(), "!slow:server")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrLookupTimeout)
	assert.True(t, errors.IsTransient(err))
}

func TestGuardedDirectoryPassThrough(t *testing.T) {
	g := NewGuardedRoomDirectory(&slowDirectory{detail: RoomDetail{Name: "Ward 3"}}, time.Second)

	detail, err := g.GetRoomDetail(context.Background(), "!fast:server")
	require.NoError(t, err)
	assert.Equal(t, "!fast:server", detail.ID)
	assert.Equal(t, "Ward 3", detail.Name)
}

func TestGuardedBrokerNotFoundPassesThrough(t *testing.T) {
	g := NewGuardedResourceBroker(&stubBroker{err: errors.ErrResourceNotFound}, time.Second)

	_, err := g.GetResource(context.Background(), "@bob:server")
	assert.ErrorIs(t, err, errors.ErrResourceNotFound,
		"not-found is an answer, not a failure, and must not be reclassified")
}

func TestClassifierMarkers(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name      string
		detail    RoomDetail
		wantClass identity.RoomClass
		wantRef   resource.Reference
	}{
		{
			name:      "role room",
			detail:    RoomDetail{ID: "!r:server", Topic: "pegacorn:role:pr-emergency-lead"},
			wantClass: identity.RoomClassPractitionerRole,
			wantRef:   resource.Reference{Type: "PractitionerRole", ID: "pr-emergency-lead"},
		},
		{
			name:      "service room",
			detail:    RoomDetail{ID: "!s:server", Topic: "pegacorn:service:hs-radiology"},
			wantClass: identity.RoomClassHealthcareService,
			wantRef:   resource.Reference{Type: "HealthcareService", ID: "hs-radiology"},
		},
		{
			name:      "named room",
			detail:    RoomDetail{ID: "!n:server", Name: "Ward Chatter"},
			wantClass: identity.RoomClassNamed,
		},
		{
			name:      "unknown room",
			detail:    RoomDetail{ID: "!u:server"},
			wantClass: identity.RoomClassUnknown,
		},
		{
			name:      "marker with empty id falls back to name",
			detail:    RoomDetail{ID: "!e:server", Topic: "pegacorn:role:", Name: "Orphan"},
			wantClass: identity.RoomClassNamed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, ref := c.Classify(tt.detail)
			assert.Equal(t, tt.wantClass, class)
			assert.Equal(t, tt.wantRef, ref)
		})
	}
}

func TestClassifierRecord(t *testing.T) {
	c := NewClassifier()

	rec := c.Record(RoomDetail{ID: "!r:server", Name: "ER Lead", Topic: "pegacorn:role:pr-1"})
	assert.Equal(t, identity.RoomRecord{
		ID:       "!r:server",
		Name:     "ER Lead",
		Class:    identity.RoomClassPractitionerRole,
		Resource: resource.Reference{Type: "PractitionerRole", ID: "pr-1"},
	}, rec)
}

func TestClassifierCustomMarkers(t *testing.T) {
	c := NewClassifier(WithRoleMarker("acme:role:"), WithServiceMarker("acme:svc:"))

	class, ref := c.Classify(RoomDetail{Topic: "acme:svc:hs-1"})
	assert.Equal(t, identity.RoomClassHealthcareService, class)
	assert.Equal(t, "hs-1", ref.ID)

	class, _ = c.Classify(RoomDetail{Topic: "pegacorn:role:pr-1"})
	assert.Equal(t, identity.RoomClassUnknown, class, "default markers no longer apply")
}
