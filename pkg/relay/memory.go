package relay

import (
	"context"
	"sync"

	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/events"
)

// MemoryRelay is an in-process Relay for tests. Responses are scripted per
// collection; Push delivers envelopes as if the transport had pushed them.
type MemoryRelay struct {
	mu        sync.Mutex
	responses map[string][]Record
	err       error
	requests  []Request
	emitter   *events.Emitter

	// BeforeRespond, when set, runs after recording a request and before
	// emitting its push envelope. BeforeReturn runs between emitting the
	// envelope and returning. Tests use them to widen the windows of the
	// request/push race.
	BeforeRespond func()
	BeforeReturn  func()
}

// NewMemoryRelay creates an empty scripted relay.
func NewMemoryRelay() *MemoryRelay {
	return &MemoryRelay{
		responses: make(map[string][]Record),
		emitter:   events.NewEmitter(),
	}
}

// Respond scripts the records returned (and pushed) for a collection.
func (r *MemoryRelay) Respond(collection string, records []Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[collection] = records
}

// Fail makes every subsequent request return err.
func (r *MemoryRelay) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Requests returns a copy of all requests seen so far.
func (r *MemoryRelay) Requests() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Request, len(r.requests))
	copy(out, r.requests)
	return out
}

// Push delivers an envelope on the data event, as the real transport does
// for server-initiated notifications.
func (r *MemoryRelay) Push(env Envelope) {
	r.emitter.Emit(EventData, env)
}

// Events returns the emitter carrying pushed envelopes.
func (r *MemoryRelay) Events() *events.Emitter {
	return r.emitter
}

func (r *MemoryRelay) do(ctx context.Context, req Request) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.requests = append(r.requests, req)
	err := r.err
	records := r.responses[req.Collection]
	beforeRespond := r.BeforeRespond
	before := r.BeforeReturn
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}

	if beforeRespond != nil {
		beforeRespond()
	}

	r.emitter.Emit(EventData, Envelope{
		Job:        req.Job,
		Collection: req.Collection,
		Records:    records,
	})

	if before != nil {
		before()
	}
	return records, nil
}

// Create records the request and returns the scripted response.
func (r *MemoryRelay) Create(ctx context.Context, req Request) ([]Record, error) {
	req.Job.Verb = VerbCreate
	return r.do(ctx, req)
}

// Find records the request and returns the scripted response.
func (r *MemoryRelay) Find(ctx context.Context, req Request) ([]Record, error) {
	req.Job.Verb = VerbFind
	return r.do(ctx, req)
}

// Update records the request and returns the scripted response.
func (r *MemoryRelay) Update(ctx context.Context, req Request) ([]Record, error) {
	req.Job.Verb = VerbUpdate
	return r.do(ctx, req)
}

// Delete records the request.
func (r *MemoryRelay) Delete(ctx context.Context, req Request) error {
	req.Job.Verb = VerbDelete
	_, err := r.do(ctx, req)
	return err
}
