package normalizer

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/directory"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/envelope"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/identity"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/parcel"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/resource"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/twin"
)

type countingDirectory struct {
	calls  atomic.Int64
	detail directory.RoomDetail
	err    error
}

func (d *countingDirectory) GetRoomDetail(_ context.Context, roomID string) (directory.RoomDetail, error) {
	d.calls.Add(1)
	if d.err != nil {
		return directory.RoomDetail{}, d.err
	}
	detail := d.detail
	detail.ID = roomID
	return detail, nil
}

type stubBroker struct {
	calls atomic.Int64
	res   resource.Resource
	err   error
}

func (b *stubBroker) GetResource(_ context.Context, _ string) (resource.Resource, error) {
	b.calls.Add(1)
	if b.err != nil {
		return resource.Resource{}, b.err
	}
	return b.res, nil
}

func newIdentityMap(t *testing.T) *identity.Map {
	t.Helper()
	m, err := identity.NewMap(context.Background(), time.Minute, 10*time.Millisecond, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func roomUoW(t *testing.T, kind parcel.EventKind, content map[string]any) *envelope.UnitOfWork {
	t.Helper()
	raw, err := json.Marshal(content)
	require.NoError(t, err)
	return envelope.New(envelope.Payload{Token: parcel.Classify(kind, ""), Content: raw})
}

func TestRoomNormalizerUnknownRoomLooksUpOnce(t *testing.T) {
	ids := newIdentityMap(t)
	dir := &countingDirectory{detail: directory.RoomDetail{Name: "ER Lead", Topic: "pegacorn:role:pr-1"}}
	n := NewRoomNormalizer(ids, dir, directory.NewClassifier())

	uow := roomUoW(t, parcel.EventRoomCreate, map[string]any{"room_id": "!abc:server"})
	out := n.Normalize(context.Background(), uow)

	assert.Equal(t, envelope.OutcomeSuccess, out.Outcome())
	assert.Equal(t, int64(1), dir.calls.Load(), "exactly one directory lookup for an unknown room")
	assert.True(t, ids.IsPractitionerRoleRoom("!abc:server"), "classification lands in the cache")

	// A second event for the now-known room skips the directory entirely.
	again := roomUoW(t, parcel.EventRoomMessage, map[string]any{"room_id": "!abc:server"})
	out = n.Normalize(context.Background(), again)
	assert.Equal(t, envelope.OutcomeSuccess, out.Outcome())
	assert.Equal(t, int64(1), dir.calls.Load())
}

func TestRoomNormalizerNormalizationMonotonicity(t *testing.T) {
	ids := newIdentityMap(t)
	dir := &countingDirectory{detail: directory.RoomDetail{Name: "Ward"}}
	n := NewRoomNormalizer(ids, dir, directory.NewClassifier())

	uow := roomUoW(t, parcel.EventRoomName, map[string]any{"room_id": "!w:server"})
	require.Equal(t, parcel.NormalizationUnnormalized, uow.Ingress().Token.Normalization)

	out := n.Normalize(context.Background(), uow)
	require.Equal(t, envelope.OutcomeSuccess, out.Outcome())
	for _, egress := range out.Egress() {
		assert.True(t, egress.Token.IsNormalized())
		assert.Equal(t, uow.Ingress().Token.Key(), egress.Token.Key(),
			"only the normalization status changes")
	}
}

func TestRoomNormalizerCorrelationFailure(t *testing.T) {
	ids := newIdentityMap(t)
	dir := &countingDirectory{}
	n := NewRoomNormalizer(ids, dir, directory.NewClassifier())

	tests := []struct {
		name    string
		content json.RawMessage
	}{
		{"missing room id", json.RawMessage(`{"type":"m.room.create"}`)},
		{"empty room id", json.RawMessage(`{"room_id":""}`)},
		{"unparseable payload", json.RawMessage(`{{{`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uow := envelope.New(envelope.Payload{
				Token:   parcel.Classify(parcel.EventRoomCreate, ""),
				Content: tt.content,
			})
			out := n.Normalize(context.Background(), uow)
			assert.Equal(t, envelope.OutcomeFailed, out.Outcome())
			assert.NotEmpty(t, out.FailureDescription())
			assert.Equal(t, int64(0), dir.calls.Load())
		})
	}
}

func TestRoomNormalizerDirectoryFailure(t *testing.T) {
	ids := newIdentityMap(t)
	dir := &countingDirectory{err: assert.AnError}
	n := NewRoomNormalizer(ids, dir, directory.NewClassifier())

	uow := roomUoW(t, parcel.EventRoomCreate, map[string]any{"room_id": "!down:server"})
	out := n.Normalize(context.Background(), uow)

	assert.Equal(t, envelope.OutcomeFailed, out.Outcome())
	assert.Contains(t, out.FailureDescription(), "room directory lookup failed")
	assert.False(t, ids.IsKnownRoom("!down:server"))
}

func TestRoomNormalizerDirectoryTimeout(t *testing.T) {
	ids := newIdentityMap(t)
	dir := &countingDirectory{err: errors.WrapTransient(errors.ErrLookupTimeout,
		"directory.GuardedRoomDirectory", "GetRoomDetail", "collaborator call")}
	n := NewRoomNormalizer(ids, dir, directory.NewClassifier())

	uow := roomUoW(t, parcel.EventRoomCreate, map[string]any{"room_id": "!slow:server"})
	out := n.Normalize(context.Background(), uow)

	assert.Equal(t, envelope.OutcomeFailed, out.Outcome())
	assert.Contains(t, out.FailureDescription(), "timed out")
}

func TestPresenceNormalizerUnknownNonClinicalSender(t *testing.T) {
	ids := newIdentityMap(t)
	broker := &stubBroker{err: errors.ErrResourceNotFound}
	n := NewPresenceNormalizer(ids, broker)

	uow := roomUoW(t, parcel.EventPresence, map[string]any{"sender": "@bob:server"})
	out := n.Normalize(context.Background(), uow)

	assert.Equal(t, envelope.OutcomeNoProcessingRequired, out.Outcome())
	assert.Empty(t, out.FailureDescription())
	assert.False(t, ids.IsKnownUser("@bob:server"), "a not-found answer mutates nothing")
}

func TestPresenceNormalizerKnownSenderPassesThrough(t *testing.T) {
	ids := newIdentityMap(t)
	broker := &stubBroker{}
	require.NoError(t, ids.PutUser(context.Background(), identity.UserRecord{
		ID: "@alice:server", TwinID: "PractitionerRole/pr-1", TwinType: twin.TypePractitionerRole,
	}, 0))
	n := NewPresenceNormalizer(ids, broker)

	uow := roomUoW(t, parcel.EventPresence, map[string]any{"sender": "@alice:server"})
	out := n.Normalize(context.Background(), uow)

	assert.Equal(t, envelope.OutcomeSuccess, out.Outcome())
	assert.Equal(t, int64(0), broker.calls.Load(), "known senders skip the broker")
}

func TestPresenceNormalizerResolvesAndMapsSender(t *testing.T) {
	ids := newIdentityMap(t)
	broker := &stubBroker{res: resource.Resource{
		Reference: resource.Reference{Type: "Practitioner", ID: "p-9"},
	}}
	n := NewPresenceNormalizer(ids, broker)

	uow := roomUoW(t, parcel.EventPresence, map[string]any{"sender": "@carol:server"})
	out := n.Normalize(context.Background(), uow)

	assert.Equal(t, envelope.OutcomeSuccess, out.Outcome())
	rec, ok := ids.User("@carol:server")
	require.True(t, ok)
	assert.Equal(t, "Practitioner/p-9", rec.TwinID)
	assert.Equal(t, twin.TypePractitioner, rec.TwinType)
}

func TestPresenceNormalizerNonTwinResource(t *testing.T) {
	ids := newIdentityMap(t)
	broker := &stubBroker{res: resource.Resource{
		Reference: resource.Reference{Type: "Device", ID: "d-1"},
	}}
	n := NewPresenceNormalizer(ids, broker)

	uow := roomUoW(t, parcel.EventPresence, map[string]any{"sender": "@bot:server"})
	out := n.Normalize(context.Background(), uow)

	assert.Equal(t, envelope.OutcomeNoProcessingRequired, out.Outcome())
	assert.False(t, ids.IsKnownUser("@bot:server"))
}

func TestAcceptsDeclarations(t *testing.T) {
	ids := newIdentityMap(t)
	room := NewRoomNormalizer(ids, &countingDirectory{}, directory.NewClassifier())
	presence := NewPresenceNormalizer(ids, &stubBroker{})

	for _, tok := range room.Accepts() {
		assert.Equal(t, parcel.SubcategoryRoomEvents, tok.Subcategory)
		assert.True(t, tok.IsValid())
	}

	seen := map[string]bool{}
	for _, tok := range presence.Accepts() {
		assert.True(t, tok.IsValid())
		seen[tok.Subcategory] = true
	}
	assert.True(t, seen[parcel.SubcategoryPresence])
	assert.True(t, seen[parcel.SubcategoryUserEvents])
}
