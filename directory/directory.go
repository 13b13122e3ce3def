// Package directory defines the collaborator contracts the pipeline
// depends on: the external room directory and the clinical-resource
// broker. Both are synchronous-with-timeout; the timeout-guarded
// wrappers here convert deadline expiry into a transient lookup-timeout
// error instead of letting callers hang.
package directory

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/resource"
)

// RoomDetail is the directory's view of a chat room.
type RoomDetail struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Creator string `json:"creator,omitempty"`
}

// RoomDirectory resolves a room id to its current detail.
type RoomDirectory interface {
	GetRoomDetail(ctx context.Context, roomID string) (RoomDetail, error)
}

// ResourceBroker resolves a chat actor id to its clinical resource.
// A missing actor is reported as errors.ErrResourceNotFound, which is
// an expected answer rather than a failure.
type ResourceBroker interface {
	GetResource(ctx context.Context, actorID string) (resource.Resource, error)
}

// GuardedRoomDirectory wraps a RoomDirectory with a per-call timeout.
type GuardedRoomDirectory struct {
	inner   RoomDirectory
	timeout time.Duration
}

// NewGuardedRoomDirectory wraps dir so every lookup carries a deadline.
func NewGuardedRoomDirectory(dir RoomDirectory, timeout time.Duration) *GuardedRoomDirectory {
	return &GuardedRoomDirectory{inner: dir, timeout: timeout}
}

// GetRoomDetail delegates to the wrapped directory under a deadline.
// Deadline expiry surfaces as errors.ErrLookupTimeout.
func (g *GuardedRoomDirectory) GetRoomDetail(ctx context.Context, roomID string) (RoomDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	detail, err := g.inner.GetRoomDetail(ctx, roomID)
	if err != nil {
		return RoomDetail{}, guardErr(err, "directory.GuardedRoomDirectory", "GetRoomDetail")
	}
	return detail, nil
}

// GuardedResourceBroker wraps a ResourceBroker with a per-call timeout.
type GuardedResourceBroker struct {
	inner   ResourceBroker
	timeout time.Duration
}

// NewGuardedResourceBroker wraps broker so every lookup carries a deadline.
func NewGuardedResourceBroker(broker ResourceBroker, timeout time.Duration) *GuardedResourceBroker {
	return &GuardedResourceBroker{inner: broker, timeout: timeout}
}

// GetResource delegates to the wrapped broker under a deadline.
// ErrResourceNotFound passes through untouched; deadline expiry surfaces
// as errors.ErrLookupTimeout.
func (g *GuardedResourceBroker) GetResource(ctx context.Context, actorID string) (resource.Resource, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.inner.GetResource(ctx, actorID)
	if err != nil {
		if stderrors.Is(err, errors.ErrResourceNotFound) {
			return resource.Resource{}, err
		}
		return resource.Resource{}, guardErr(err, "directory.GuardedResourceBroker", "GetResource")
	}
	return res, nil
}

func guardErr(err error, component, operation string) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.WrapTransient(errors.ErrLookupTimeout, component, operation, "collaborator call")
	}
	return errors.WrapTransient(err, component, operation, "collaborator call")
}
