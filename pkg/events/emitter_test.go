package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitCallsHandlersInOrder(t *testing.T) {
	e := NewEmitter()

	var got []int
	e.On("data", func(any) { got = append(got, 1) })
	e.On("data", func(any) { got = append(got, 2) })

	e.Emit("data", nil)
	assert.Equal(t, []int{1, 2}, got)
}

func TestOffRemovesOnlyThatSubscription(t *testing.T) {
	e := NewEmitter()

	var a, b int
	subA := e.On("data", func(any) { a++ })
	e.On("data", func(any) { b++ })

	e.Off(subA)
	e.Emit("data", nil)

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 1, e.ListenerCount("data"))

	// Double Off is a no-op.
	e.Off(subA)
	e.Off(nil)
}

func TestOnceFiresExactlyOnce(t *testing.T) {
	e := NewEmitter()

	calls := 0
	e.Once("ready", func(any) { calls++ })

	e.Emit("ready", nil)
	e.Emit("ready", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, e.ListenerCount("ready"))
}

func TestPayloadDelivered(t *testing.T) {
	e := NewEmitter()

	var got any
	e.On("data", func(p any) { got = p })
	e.Emit("data", "payload-42")

	assert.Equal(t, "payload-42", got)
}

func TestHandlerMayDetachDuringDispatch(t *testing.T) {
	e := NewEmitter()

	var sub *Subscription
	calls := 0
	sub = e.On("data", func(any) {
		calls++
		e.Off(sub)
	})

	e.Emit("data", nil)
	e.Emit("data", nil)

	assert.Equal(t, 1, calls)
}

func TestConcurrentEmitAndSubscribe(t *testing.T) {
	e := NewEmitter()

	var mu sync.Mutex
	total := 0
	e.On("data", func(any) {
		mu.Lock()
		total++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				e.Emit("data", nil)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1600, total)
}
