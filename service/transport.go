package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/envelope"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/natsclient"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/pkg/retry"
)

// Deliverer receives every unit of work that reaches a terminal
// outcome. The NATS deliverer publishes it on the egress subject;
// tests substitute an in-memory one.
type Deliverer interface {
	Deliver(ctx context.Context, uow *envelope.UnitOfWork) error
}

// natsDeliverer publishes terminal units of work as JSON.
type natsDeliverer struct {
	client  *natsclient.Client
	subject string
	logger  *slog.Logger
}

func newNATSDeliverer(client *natsclient.Client, subject string, logger *slog.Logger) *natsDeliverer {
	return &natsDeliverer{
		client:  client,
		subject: subject,
		logger:  logger.With("component", "service.deliverer"),
	}
}

func (d *natsDeliverer) Deliver(ctx context.Context, uow *envelope.UnitOfWork) error {
	data, err := json.Marshal(uow)
	if err != nil {
		return errors.Wrap(err, "service.natsDeliverer", "Deliver", "unit of work marshal")
	}

	err = retry.Do(ctx, retry.Default(), func() error {
		return d.client.Publish(d.subject, data)
	})
	if err != nil {
		return err
	}
	d.logger.Debug("unit of work delivered", "uow_id", uow.ID(), "outcome", uow.Outcome())
	return nil
}
