package infrastructure

import (
	"sync"

	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
)

// sinkEventBufferSize is the buffer size of a sink's event channel.
const sinkEventBufferSize = 32

// sinkEvents is the event channel shared by audio sink implementations.
// Emitting after close is a no-op, and close never races a pending send.
type sinkEvents struct {
	mu     sync.Mutex
	ch     chan ports.SinkEvent
	done   chan struct{}
	once   sync.Once
	closed bool
}

func newSinkEvents() *sinkEvents {
	return &sinkEvents{
		ch:   make(chan ports.SinkEvent, sinkEventBufferSize),
		done: make(chan struct{}),
	}
}

// emit delivers event in order, blocking while the buffer is full.
func (e *sinkEvents) emit(event ports.SinkEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	select {
	case e.ch <- event:
	case <-e.done:
	}
}

// events returns the receive side of the channel.
func (e *sinkEvents) events() <-chan ports.SinkEvent {
	return e.ch
}

// close stops delivery and closes the channel. Safe to call more than once.
func (e *sinkEvents) close() {
	e.once.Do(func() {
		close(e.done)

		e.mu.Lock()
		defer e.mu.Unlock()
		e.closed = true
		close(e.ch)
	})
}
