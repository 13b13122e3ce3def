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
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/twin"
)

// PresenceNormalizer handles presence and per-user signals. Known
// clinical actors pass through; unknown senders are resolved against
// the resource broker once, and senders with no clinical resource need
// no processing at all.
type PresenceNormalizer struct {
	ids     *identity.Map
	broker  directory.ResourceBroker
	logger  *slog.Logger
	metrics *metric.Metrics
}

// PresenceOption configures a PresenceNormalizer.
type PresenceOption func(*PresenceNormalizer)

// WithPresenceLogger sets the normalizer's logger.
func WithPresenceLogger(logger *slog.Logger) PresenceOption {
	return func(n *PresenceNormalizer) {
		n.logger = logger
	}
}

// WithPresenceMetrics enables normalization outcome counters.
func WithPresenceMetrics(m *metric.Metrics) PresenceOption {
	return func(n *PresenceNormalizer) {
		n.metrics = m
	}
}

// NewPresenceNormalizer creates the presence/user event normalizer.
func NewPresenceNormalizer(ids *identity.Map, broker directory.ResourceBroker, opts ...PresenceOption) *PresenceNormalizer {
	n := &PresenceNormalizer{
		ids:    ids,
		broker: broker,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("component", "normalizer.presence")
	return n
}

// Name implements Normalizer.
func (n *PresenceNormalizer) Name() string {
	return "presence"
}

// Accepts declares the presence and per-user event kinds.
func (n *PresenceNormalizer) Accepts() []parcel.Token {
	return []parcel.Token{
		parcel.Classify(parcel.EventPresence, ""),
		parcel.Classify(parcel.EventTyping, ""),
		parcel.Classify(parcel.EventReceipt, ""),
	}
}

// Normalize drives a presence-family unit of work to a terminal outcome.
func (n *PresenceNormalizer) Normalize(ctx context.Context, uow *envelope.UnitOfWork) *envelope.UnitOfWork {
	sender, err := correlationKey(uow.Ingress().Content, "sender", "normalizer.PresenceNormalizer")
	if err != nil {
		n.logger.Warn("correlation extraction failed", "uow_id", uow.ID(), "error", err)
		uow.FailWith(err)
		return n.done(uow)
	}

	if n.ids.IsKnownUser(sender) {
		return n.done(passThrough(uow))
	}

	res, err := n.broker.GetResource(ctx, sender)
	if err != nil {
		if stderrors.Is(err, errors.ErrResourceNotFound) {
			uow.NoProcessingRequired()
			return n.done(uow)
		}
		n.logger.Warn("resource broker lookup failed", "sender", sender, "uow_id", uow.ID(), "error", err)
		uow.FailWith(err)
		return n.done(uow)
	}

	twinType, err := twin.TypeFromReference(res.Reference)
	if err != nil {
		// The sender resolves to something this bridge does not twin.
		uow.NoProcessingRequired()
		return n.done(uow)
	}

	rec := identity.UserRecord{
		ID:       sender,
		TwinID:   res.Reference.String(),
		TwinType: twinType,
	}
	if err := n.ids.PutUser(ctx, rec, 0); err != nil {
		uow.FailWith(err)
		return n.done(uow)
	}
	n.logger.Debug("sender mapped to twin", "sender", sender, "twin_id", rec.TwinID)
	return n.done(passThrough(uow))
}

func (n *PresenceNormalizer) done(uow *envelope.UnitOfWork) *envelope.UnitOfWork {
	if n.metrics != nil {
		n.metrics.EventsNormalized.WithLabelValues(n.Name(), string(uow.Outcome())).Inc()
	}
	return uow
}
