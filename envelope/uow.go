package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/parcel"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/pkg/timestamp"
)

// ProcessingOutcome is the terminal state of a unit of work.
type ProcessingOutcome string

// Processing outcomes. NoProcessingRequired is explicitly distinct from
// success: it means nothing needed enrichment, not that anything failed.
const (
	OutcomePending              ProcessingOutcome = "pending"
	OutcomeSuccess              ProcessingOutcome = "success"
	OutcomeFailed               ProcessingOutcome = "failed"
	OutcomeNoProcessingRequired ProcessingOutcome = "no-processing-required"
)

// Payload couples opaque content with its Data Parcel Token.
type Payload struct {
	Token   parcel.Token    `json:"token"`
	Content json.RawMessage `json:"content"`
}

// UnitOfWork is the envelope carrying a payload and its processing outcome
// through the pipeline. It is created at ingress, mutated exactly once per
// normalization stage, and consumed once routed. The outcome invariants are
// enforced by the mutators: the outcome is FAILED iff a failure description
// is set, and the outcome never reads as successful while the egress set is
// empty.
type UnitOfWork struct {
	id          string
	ingress     Payload
	egress      []Payload
	outcome     ProcessingOutcome
	failureDesc string
	createdAt   time.Time
}

// New creates a unit of work around an ingress payload. The outcome starts
// pending.
func New(ingress Payload) *UnitOfWork {
	return &UnitOfWork{
		id:        uuid.New().String(),
		ingress:   ingress,
		outcome:   OutcomePending,
		createdAt: time.Now(),
	}
}

// ID returns the unit of work identifier.
func (u *UnitOfWork) ID() string {
	return u.id
}

// CreatedAt returns the ingress timestamp.
func (u *UnitOfWork) CreatedAt() time.Time {
	return u.createdAt
}

// Ingress returns the ingress payload.
func (u *UnitOfWork) Ingress() Payload {
	return u.ingress
}

// Egress returns a copy of the egress payload set.
func (u *UnitOfWork) Egress() []Payload {
	out := make([]Payload, len(u.egress))
	copy(out, u.egress)
	return out
}

// Outcome returns the processing outcome. A success with no egress payloads
// reads as pending: a stage that produced nothing cannot claim success.
func (u *UnitOfWork) Outcome() ProcessingOutcome {
	if u.outcome == OutcomeSuccess && len(u.egress) == 0 {
		return OutcomePending
	}
	return u.outcome
}

// FailureDescription returns the failure description, empty unless FAILED.
func (u *UnitOfWork) FailureDescription() string {
	return u.failureDesc
}

// IsTerminal reports whether the unit of work has reached a terminal
// outcome and should be handed to the transport collaborator.
func (u *UnitOfWork) IsTerminal() bool {
	switch u.Outcome() {
	case OutcomeSuccess, OutcomeFailed, OutcomeNoProcessingRequired:
		return true
	default:
		return false
	}
}

// Succeed appends an egress payload and marks the unit of work successful.
// The appended payload's token must be normalized; a stage that claims
// success without normalizing its output is a programming error surfaced
// as an invalid-data error.
func (u *UnitOfWork) Succeed(egress Payload) error {
	if !egress.Token.IsNormalized() {
		return errors.WrapInvalid(errors.ErrInvalidData, "UnitOfWork", "Succeed",
			fmt.Sprintf("egress token %s is not normalized", egress.Token.Key()))
	}
	u.egress = append(u.egress, egress)
	u.outcome = OutcomeSuccess
	u.failureDesc = ""
	return nil
}

// Fail marks the unit of work failed with a human-readable description.
// An empty description is replaced so the FAILED-iff-described invariant
// holds.
func (u *UnitOfWork) Fail(description string) {
	if description == "" {
		description = "unspecified processing failure"
	}
	u.outcome = OutcomeFailed
	u.failureDesc = description
}

// FailWith marks the unit of work failed with the error's message.
func (u *UnitOfWork) FailWith(err error) {
	if err == nil {
		u.Fail("")
		return
	}
	u.Fail(err.Error())
}

// NoProcessingRequired marks the unit of work as needing no enrichment.
// This clears any failure description.
func (u *UnitOfWork) NoProcessingRequired() {
	u.outcome = OutcomeNoProcessingRequired
	u.failureDesc = ""
}

// wireFormat is the JSON wire representation of a UnitOfWork.
type wireFormat struct {
	ID          string            `json:"id"`
	Ingress     Payload           `json:"ingress"`
	Egress      []Payload         `json:"egress,omitempty"`
	Outcome     ProcessingOutcome `json:"outcome"`
	FailureDesc string            `json:"failure_description,omitempty"`
	CreatedAt   int64             `json:"created_at"`
}

// MarshalJSON implements json.Marshaler.
func (u *UnitOfWork) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireFormat{
		ID:          u.id,
		Ingress:     u.ingress,
		Egress:      u.egress,
		Outcome:     u.Outcome(),
		FailureDesc: u.failureDesc,
		CreatedAt:   timestamp.ToUnixMs(u.createdAt),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *UnitOfWork) UnmarshalJSON(data []byte) error {
	var wire wireFormat
	if err := json.Unmarshal(data, &wire); err != nil {
		return errors.WrapInvalid(err, "UnitOfWork", "UnmarshalJSON", "wire format unmarshal")
	}

	u.id = wire.ID
	u.ingress = wire.Ingress
	u.egress = wire.Egress
	u.outcome = wire.Outcome
	u.failureDesc = wire.FailureDesc
	u.createdAt = timestamp.FromUnixMs(wire.CreatedAt)
	return nil
}
