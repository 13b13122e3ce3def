// Package ingest is the pipeline entry point: it wraps raw protocol
// event bytes into classified units of work and declares, at load time,
// the set of data parcel tokens the pipeline subscribes to.
package ingest

import (
	"encoding/json"
	"log/slog"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/envelope"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/metric"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/parcel"
)

// rawEvent is the minimal shape needed to classify an incoming event.
type rawEvent struct {
	Type    string `json:"type"`
	Content struct {
		MsgType string `json:"msgtype"`
	} `json:"content"`
}

// Ingestor accepts raw event bytes and produces classified units of work.
type Ingestor struct {
	logger  *slog.Logger
	metrics *metric.Metrics
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the ingestor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingestor) {
		i.logger = logger
	}
}

// WithMetrics enables ingestion counters.
func WithMetrics(m *metric.Metrics) Option {
	return func(i *Ingestor) {
		i.metrics = m
	}
}

// New creates an ingestor.
func New(opts ...Option) *Ingestor {
	i := &Ingestor{logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With("component", "ingest")
	return i
}

// Ingest wraps raw event bytes into a unit of work whose ingress token
// classifies the event. Events that cannot be parsed, or that carry no
// type, still produce a unit of work: one already failed, so the
// failure is observable downstream instead of silently dropped.
func (i *Ingestor) Ingest(raw []byte) *envelope.UnitOfWork {
	var ev rawEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		uow := envelope.New(envelope.Payload{
			Token:   parcel.Classify(parcel.EventKind(""), ""),
			Content: json.RawMessage(raw),
		})
		uow.Fail("event payload is not valid JSON: " + err.Error())
		i.logger.Warn("unparseable event rejected", "uow_id", uow.ID(), "error", err)
		return uow
	}

	if ev.Type == "" {
		uow := envelope.New(envelope.Payload{
			Token:   parcel.Classify(parcel.EventKind(""), ""),
			Content: json.RawMessage(raw),
		})
		uow.Fail("event carries no type field")
		return uow
	}

	discriminator := ""
	if parcel.EventKind(ev.Type) == parcel.EventRoomMessage {
		discriminator = ev.Content.MsgType
	}

	token := parcel.Classify(parcel.EventKind(ev.Type), discriminator)
	if i.metrics != nil {
		i.metrics.EventsIngested.WithLabelValues(token.Subcategory).Inc()
	}
	return envelope.New(envelope.Payload{Token: token, Content: json.RawMessage(raw)})
}

// Subscriptions declares the data parcel tokens of interest. This is a
// static, load-time declaration published to the subscription registry
// at startup.
func Subscriptions() []parcel.Token {
	kinds := []parcel.EventKind{
		parcel.EventRoomCreate,
		parcel.EventRoomMember,
		parcel.EventRoomName,
		parcel.EventRoomTopic,
		parcel.EventRoomMessage,
		parcel.EventRoomRedaction,
		parcel.EventRoomPowerLevel,
		parcel.EventPresence,
		parcel.EventTyping,
		parcel.EventReceipt,
	}
	tokens := make([]parcel.Token, 0, len(kinds))
	for _, k := range kinds {
		tokens = append(tokens, parcel.Classify(k, ""))
	}
	return tokens
}

// Subjects maps the subscription declaration onto transport subjects.
func Subjects() []string {
	tokens := Subscriptions()
	subjects := make([]string, 0, len(tokens))
	for _, t := range tokens {
		subjects = append(subjects, t.Subject())
	}
	return subjects
}
