package natsclient

import (
	"context"
	"encoding/json"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/directory"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/resource"
)

// Subjects for the collaborator request-reply contracts.
const (
	SubjectRoomDirectory  = "iris.directory.room"
	SubjectResourceBroker = "iris.directory.resource"
)

// RoomDirectoryClient resolves room detail over NATS request-reply.
type RoomDirectoryClient struct {
	client  *Client
	subject string
}

// NewRoomDirectoryClient creates a directory client. An empty subject
// selects the default.
func NewRoomDirectoryClient(client *Client, subject string) *RoomDirectoryClient {
	if subject == "" {
		subject = SubjectRoomDirectory
	}
	return &RoomDirectoryClient{client: client, subject: subject}
}

type roomDetailRequest struct {
	RoomID string `json:"room_id"`
}

type roomDetailReply struct {
	Detail *directory.RoomDetail `json:"detail,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// GetRoomDetail implements directory.RoomDirectory.
func (d *RoomDirectoryClient) GetRoomDetail(ctx context.Context, roomID string) (directory.RoomDetail, error) {
	req, err := json.Marshal(roomDetailRequest{RoomID: roomID})
	if err != nil {
		return directory.RoomDetail{}, errors.Wrap(err, "natsclient.RoomDirectoryClient", "GetRoomDetail", "request marshal")
	}

	data, err := d.client.Request(ctx, d.subject, req)
	if err != nil {
		return directory.RoomDetail{}, err
	}

	var reply roomDetailReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return directory.RoomDetail{}, errors.WrapInvalid(err, "natsclient.RoomDirectoryClient", "GetRoomDetail", "reply parse")
	}
	if reply.Error != "" || reply.Detail == nil {
		return directory.RoomDetail{}, errors.WrapTransient(errors.ErrDirectoryLookup,
			"natsclient.RoomDirectoryClient", "GetRoomDetail", "room "+roomID)
	}
	return *reply.Detail, nil
}

// ResourceBrokerClient resolves clinical resources over NATS
// request-reply.
type ResourceBrokerClient struct {
	client  *Client
	subject string
}

// NewResourceBrokerClient creates a broker client. An empty subject
// selects the default.
func NewResourceBrokerClient(client *Client, subject string) *ResourceBrokerClient {
	if subject == "" {
		subject = SubjectResourceBroker
	}
	return &ResourceBrokerClient{client: client, subject: subject}
}

type resourceRequest struct {
	ActorID string `json:"actor_id"`
}

type resourceReply struct {
	Resource *resource.Resource `json:"resource,omitempty"`
	NotFound bool               `json:"not_found,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// GetResource implements directory.ResourceBroker. A reply flagged
// not-found maps to errors.ErrResourceNotFound, which callers treat as
// an answer rather than a failure.
func (b *ResourceBrokerClient) GetResource(ctx context.Context, actorID string) (resource.Resource, error) {
	req, err := json.Marshal(resourceRequest{ActorID: actorID})
	if err != nil {
		return resource.Resource{}, errors.Wrap(err, "natsclient.ResourceBrokerClient", "GetResource", "request marshal")
	}

	data, err := b.client.Request(ctx, b.subject, req)
	if err != nil {
		return resource.Resource{}, err
	}

	var reply resourceReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return resource.Resource{}, errors.WrapInvalid(err, "natsclient.ResourceBrokerClient", "GetResource", "reply parse")
	}
	if reply.NotFound {
		return resource.Resource{}, errors.ErrResourceNotFound
	}
	if reply.Error != "" || reply.Resource == nil {
		return resource.Resource{}, errors.WrapTransient(errors.ErrDirectoryLookup,
			"natsclient.ResourceBrokerClient", "GetResource", "actor "+actorID)
	}
	return *reply.Resource, nil
}
