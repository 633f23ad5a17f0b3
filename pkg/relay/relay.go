// Package relay abstracts the remote data transport.
//
// Requests are verbed (create, find, update, delete) and tagged with a Job
// so responses can be correlated: the relay answers through a push-style
// "data" event as well as through the request's return path, and delete
// responses omit the target identifier, so the Job carries it.
package relay

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/events"
)

// EventData is emitted on a relay's event emitter for every pushed envelope.
const EventData = "relay.data"

// Verb tags the operation a request performs.
type Verb string

const (
	VerbCreate Verb = "create"
	VerbFind   Verb = "find"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// Record is one remote row, an open field-to-value mapping.
type Record = map[string]any

// Job identifies one relay operation. ObjectID is set for deletes because
// delete responses do not echo the target id.
type Job struct {
	ID       string `json:"id"`
	Verb     Verb   `json:"verb"`
	ObjectID string `json:"objectId,omitempty"`
}

// NewJob creates a job with a fresh identifier.
func NewJob(verb Verb) Job {
	return Job{ID: uuid.NewString(), Verb: verb}
}

// NewDeleteJob creates a delete job carrying the target identifier.
func NewDeleteJob(objectID string) Job {
	return Job{ID: uuid.NewString(), Verb: VerbDelete, ObjectID: objectID}
}

// Request is one relay operation.
type Request struct {
	Job        Job            `json:"job"`
	Collection string         `json:"collection"`
	Condition  map[string]any `json:"cond,omitempty"`
	Data       Record         `json:"data,omitempty"`
}

// Envelope is a pushed "data" notification.
type Envelope struct {
	Job        Job      `json:"job"`
	Collection string   `json:"collection"`
	Records    []Record `json:"records"`
}

// Error is a transport failure surfaced to the caller. No retry happens at
// this layer; retry policy belongs to the transport itself.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("relay: %s (status %d)", e.Message, e.StatusCode)
	}
	return "relay: " + e.Message
}

// Relay is the remote data transport.
//
// The returned records are the inline response path; the same response also
// arrives as an Envelope on Events. Callers that must settle exactly once
// guard against the race themselves (see pkg/binder).
type Relay interface {
	Create(ctx context.Context, req Request) ([]Record, error)
	Find(ctx context.Context, req Request) ([]Record, error)
	Update(ctx context.Context, req Request) ([]Record, error)
	Delete(ctx context.Context, req Request) error

	// Events carries EventData envelopes pushed by the transport.
	Events() *events.Emitter
}
