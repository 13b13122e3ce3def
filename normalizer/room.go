package normalizer

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/directory"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/envelope"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/identity"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/metric"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/parcel"
)

// RoomNormalizer enriches room-scoped events. Already classified rooms
// pass through untouched; unknown rooms trigger a single directory
// lookup whose result is classified and written to the identity map.
type RoomNormalizer struct {
	ids        *identity.Map
	dir        directory.RoomDirectory
	classifier *directory.Classifier
	logger     *slog.Logger
	metrics    *metric.Metrics
}

// RoomOption configures a RoomNormalizer.
type RoomOption func(*RoomNormalizer)

// WithRoomLogger sets the normalizer's logger.
func WithRoomLogger(logger *slog.Logger) RoomOption {
	return func(n *RoomNormalizer) {
		n.logger = logger
	}
}

// WithRoomMetrics enables normalization outcome counters.
func WithRoomMetrics(m *metric.Metrics) RoomOption {
	return func(n *RoomNormalizer) {
		n.metrics = m
	}
}

// NewRoomNormalizer creates the room event normalizer.
func NewRoomNormalizer(ids *identity.Map, dir directory.RoomDirectory, classifier *directory.Classifier, opts ...RoomOption) *RoomNormalizer {
	n := &RoomNormalizer{
		ids:        ids,
		dir:        dir,
		classifier: classifier,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("component", "normalizer.room")
	return n
}

// Name implements Normalizer.
func (n *RoomNormalizer) Name() string {
	return "room"
}

// Accepts declares every room-scoped event kind, message events expanded
// over no discriminator (the discriminator narrows routing, not
// normalization).
func (n *RoomNormalizer) Accepts() []parcel.Token {
	kinds := []parcel.EventKind{
		parcel.EventRoomCreate,
		parcel.EventRoomMember,
		parcel.EventRoomName,
		parcel.EventRoomTopic,
		parcel.EventRoomMessage,
		parcel.EventRoomRedaction,
		parcel.EventRoomPowerLevel,
	}
	tokens := make([]parcel.Token, 0, len(kinds))
	for _, k := range kinds {
		tokens = append(tokens, parcel.Classify(k, ""))
	}
	return tokens
}

// Normalize drives a room-scoped unit of work to a terminal outcome.
func (n *RoomNormalizer) Normalize(ctx context.Context, uow *envelope.UnitOfWork) *envelope.UnitOfWork {
	roomID, err := correlationKey(uow.Ingress().Content, "room_id", "normalizer.RoomNormalizer")
	if err != nil {
		n.logger.Warn("correlation extraction failed", "uow_id", uow.ID(), "error", err)
		uow.FailWith(err)
		return n.done(uow)
	}

	if n.ids.IsKnownRoom(roomID) {
		return n.done(passThrough(uow))
	}

	detail, err := n.dir.GetRoomDetail(ctx, roomID)
	if err != nil {
		if stderrors.Is(err, errors.ErrLookupTimeout) {
			n.logger.Warn("directory lookup timed out", "room_id", roomID, "uow_id", uow.ID())
			uow.FailWith(err)
			return n.done(uow)
		}
		n.logger.Warn("directory lookup failed", "room_id", roomID, "uow_id", uow.ID(), "error", err)
		uow.FailWith(errors.WrapTransient(errors.ErrDirectoryLookup,
			"normalizer.RoomNormalizer", "Normalize", "room detail fetch for "+roomID))
		return n.done(uow)
	}

	rec := n.classifier.Record(detail)
	if err := n.ids.PutRoom(ctx, rec, 0); err != nil {
		uow.FailWith(err)
		return n.done(uow)
	}
	n.logger.Debug("room classified", "room_id", roomID, "class", rec.Class)
	return n.done(passThrough(uow))
}

func (n *RoomNormalizer) done(uow *envelope.UnitOfWork) *envelope.UnitOfWork {
	if n.metrics != nil {
		n.metrics.EventsNormalized.WithLabelValues(n.Name(), string(uow.Outcome())).Inc()
	}
	return uow
}
