// Package normalizer holds the pipeline stages that turn raw protocol
// events into canonical, tagged units of work. One normalizer exists
// per coarse event family; each consults the identity mapping caches to
// decide applicability and confines its side effects to those caches.
package normalizer

import (
	"context"
	"encoding/json"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/envelope"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/parcel"
)

// Normalizer transforms a unit of work in place and returns it with a
// terminal outcome. Implementations never mutate twin or outcome state;
// their only side effect is the identity mapping cache.
type Normalizer interface {
	// Name identifies the normalizer in logs and metrics.
	Name() string

	// Accepts declares the data parcel tokens this normalizer handles.
	Accepts() []parcel.Token

	// Normalize drives the unit of work to a terminal outcome.
	Normalize(ctx context.Context, uow *envelope.UnitOfWork) *envelope.UnitOfWork
}

// correlationKey extracts a single string field from a raw event payload.
// A missing or empty field, or an unparseable payload, is a correlation
// extraction failure.
func correlationKey(raw json.RawMessage, field, component string) (string, error) {
	var event map[string]json.RawMessage
	if err := json.Unmarshal(raw, &event); err != nil {
		return "", errors.WrapInvalid(errors.ErrCorrelationExtraction, component, "correlationKey",
			"event payload parse")
	}

	var value string
	rawField, ok := event[field]
	if !ok {
		return "", errors.WrapInvalid(errors.ErrCorrelationExtraction, component, "correlationKey",
			"missing "+field)
	}
	if err := json.Unmarshal(rawField, &value); err != nil || value == "" {
		return "", errors.WrapInvalid(errors.ErrCorrelationExtraction, component, "correlationKey",
			"empty or non-string "+field)
	}
	return value, nil
}

// passThrough copies the ingress payload to egress with the token marked
// normalized, leaving every other token field intact.
func passThrough(uow *envelope.UnitOfWork) *envelope.UnitOfWork {
	in := uow.Ingress()
	if err := uow.Succeed(envelope.Payload{
		Token:   in.Token.WithNormalized(),
		Content: in.Content,
	}); err != nil {
		uow.FailWith(err)
	}
	return uow
}
