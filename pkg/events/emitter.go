// Package events implements a small named-event emitter.
//
// The sync layer communicates readiness and relay pushes through events:
// lifecycle emits status/readiness signals, the relay emits "data" envelopes,
// and the binder attaches and detaches its listener per bind call. Listeners
// are identified by subscription so a caller can remove exactly the listener
// it registered.
package events

import "sync"

// Handler receives the event payload.
type Handler func(payload any)

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	event string
	id    uint64
}

type entry struct {
	id   uint64
	fn   Handler
	once bool
}

// Emitter dispatches named events to registered handlers.
// Safe for concurrent use. Handlers run synchronously on the emitting
// goroutine, in registration order.
type Emitter struct {
	mu     sync.Mutex
	nextID uint64
	lstns  map[string][]entry
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{lstns: make(map[string][]entry)}
}

// On registers a handler for the named event.
func (e *Emitter) On(event string, fn Handler) *Subscription {
	return e.add(event, fn, false)
}

// Once registers a handler that is removed after its first invocation.
func (e *Emitter) Once(event string, fn Handler) *Subscription {
	return e.add(event, fn, true)
}

func (e *Emitter) add(event string, fn Handler, once bool) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	e.lstns[event] = append(e.lstns[event], entry{id: e.nextID, fn: fn, once: once})
	return &Subscription{event: event, id: e.nextID}
}

// Off removes a previously registered handler. Removing a subscription that
// has already been removed is a no-op.
func (e *Emitter) Off(sub *Subscription) {
	if sub == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	lstns := e.lstns[sub.event]
	for n := 0; n < len(lstns); n++ {
		if lstns[n].id == sub.id {
			lstns = append(lstns[:n], lstns[n+1:]...)
			break
		}
	}
	if len(lstns) == 0 {
		delete(e.lstns, sub.event)
	} else {
		e.lstns[sub.event] = lstns
	}
}

// Emit calls every handler registered for the named event with the payload.
// The handler list is snapshotted before dispatch, so handlers may register
// or remove listeners without affecting the current dispatch.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.Lock()
	lstns := e.lstns[event]
	snapshot := make([]entry, len(lstns))
	copy(snapshot, lstns)

	// Drop one-shot handlers before releasing the lock so a concurrent Emit
	// cannot fire them twice.
	kept := lstns[:0]
	for _, l := range lstns {
		if !l.once {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(e.lstns, event)
	} else {
		e.lstns[event] = kept
	}
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(payload)
	}
}

// ListenerCount reports how many handlers are registered for the event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.lstns[event])
}
