package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/envelope"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/parcel"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/resource"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/twin"
)

// process is the worker pool processor: one raw event in, one terminal
// unit of work delivered out. Stimuli for resolvable twins are routed
// along the way.
func (s *Service) process(ctx context.Context, raw []byte) error {
	start := time.Now()
	defer func() {
		s.registry.Metrics.ProcessingDuration.WithLabelValues(s.cfg.Service.Name, "process").
			Observe(time.Since(start).Seconds())
	}()

	uow := s.ingestor.Ingest(raw)
	if !uow.IsTerminal() {
		if n, ok := s.normalizers[uow.Ingress().Token.Subcategory]; ok {
			uow = n.Normalize(ctx, uow)
		} else {
			uow.NoProcessingRequired()
		}
	}

	if uow.Outcome() == envelope.OutcomeSuccess {
		s.routeStimuli(ctx, uow)
	}

	if err := s.deliverer.Deliver(ctx, uow); err != nil {
		s.logger.Error("terminal unit of work delivery failed", "uow_id", uow.ID(), "error", err)
		return err
	}
	return nil
}

// routeStimuli derives one stimulus per egress payload that resolves to
// a twin. Payloads without a twin mapping produce no stimulus; the unit
// of work is already terminal either way.
func (s *Service) routeStimuli(ctx context.Context, uow *envelope.UnitOfWork) {
	for _, payload := range uow.Egress() {
		twinID, snapshot, ok := s.resolveTwin(payload)
		if !ok {
			continue
		}

		stim := twin.NewStimulus(twinID, uow.ID(), payload.Content, twin.WithSnapshot(snapshot))
		if err := s.router.Route(ctx, stim); err != nil {
			s.logger.Error("stimulus routing failed",
				"twin_id", twinID, "uow_id", uow.ID(), "error", err)
		}
	}
}

// resolveTwin maps a normalized payload onto its target twin through
// the identity caches. Room events resolve through the room's bound
// clinical resource; presence and user events resolve through the
// sender's twin mapping.
func (s *Service) resolveTwin(payload envelope.Payload) (string, resource.Resource, bool) {
	switch payload.Token.Subcategory {
	case parcel.SubcategoryRoomEvents:
		roomID, ok := stringField(payload.Content, "room_id")
		if !ok {
			return "", resource.Resource{}, false
		}
		rec, ok := s.ids.Room(roomID)
		if !ok || rec.Resource.IsZero() {
			return "", resource.Resource{}, false
		}
		return rec.Resource.String(), resource.Resource{
			Reference:   rec.Resource,
			DisplayName: rec.Name,
		}, true

	case parcel.SubcategoryPresence, parcel.SubcategoryUserEvents:
		sender, ok := stringField(payload.Content, "sender")
		if !ok {
			return "", resource.Resource{}, false
		}
		rec, ok := s.ids.User(sender)
		if !ok {
			return "", resource.Resource{}, false
		}
		ref, err := resource.ParseReference(rec.TwinID)
		if err != nil {
			return "", resource.Resource{}, false
		}
		return rec.TwinID, resource.Resource{Reference: ref}, true

	default:
		return "", resource.Resource{}, false
	}
}

func stringField(raw json.RawMessage, field string) (string, bool) {
	var event map[string]json.RawMessage
	if err := json.Unmarshal(raw, &event); err != nil {
		return "", false
	}
	var value string
	if err := json.Unmarshal(event[field], &value); err != nil || value == "" {
		return "", false
	}
	return value, true
}
