// Package pubsub is a small in-process broker used to relay streaming agent
// output from the background goroutine that consumes the platform's SSE stream
// to the HTTP handler serving the UI. Channels are per-session and torn down
// with the subscriber.
package pubsub

import (
	"sync"
)

type Event struct {
	Type  string `json:"type"` // "chunk", "done" or "error"
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type Broker struct {
	mu   sync.Mutex
	subs map[string][]chan Event
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string][]chan Event)}
}

// Subscribe registers a listener for a session's events. The returned cancel
// function must be called exactly once; it closes the channel.
func (b *Broker) Subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, 64)

	b.mu.Lock()
	b.subs[sessionID] = append(b.subs[sessionID], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subs[sessionID]
		for i, sub := range subs {
			if sub == ch {
				b.subs[sessionID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
		if len(b.subs[sessionID]) == 0 {
			delete(b.subs, sessionID)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of the session. Slow
// subscribers whose buffers are full miss the event rather than block the
// publisher.
func (b *Broker) Publish(sessionID string, event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[sessionID] {
		select {
		case ch <- event:
		default:
		}
	}
}
