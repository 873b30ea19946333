package facescan

import (
	"sync"

	"github.com/kozaktomas/vms-kiosk/internal/constants"
)

// EventType names a flow transition.
type EventType string

const (
	EventOpened     EventType = "opened"
	EventPreviewing EventType = "previewing"
	EventCaptured   EventType = "captured"
	EventRetake     EventType = "retake"
	EventSubmitting EventType = "submitting"
	EventSubmitted  EventType = "submitted"
	EventCancelled  EventType = "cancelled"
	EventError      EventType = "error"
	EventClosed     EventType = "closed"
)

// Event is broadcast on every transition.
type Event struct {
	Type    EventType `json:"type"`
	State   State     `json:"state"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
}

// Broadcaster fans events out to listeners. Slow listeners miss events rather than
// block the flow.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners []chan Event
	closed    bool
}

// AddListener registers a listener. After Close it returns a closed channel.
func (b *Broadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes and closes a listener.
func (b *Broadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Send delivers event to all listeners.
func (b *Broadcaster) Send(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Close closes every listener. Later listeners receive nothing.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, listener := range b.listeners {
		close(listener)
	}
	b.listeners = nil
}
