package events

import (
	"sync"

	"lessonchain/core/types"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// PayloadEvent is implemented by events that carry a typed attribute payload.
type PayloadEvent interface {
	EventType() string
	Event() *types.Event
}

// Payload extracts the attribute payload of evt when it has one.
func Payload(evt Event) (*types.Event, bool) {
	typed, ok := evt.(PayloadEvent)
	if !ok {
		return nil, false
	}
	payload := typed.Event()
	return payload, payload != nil
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MultiEmitter fans every event out to its subscribers in subscription order.
type MultiEmitter struct {
	mu   sync.RWMutex
	subs []Emitter
}

// NewMultiEmitter returns a fan-out emitter over subs. Nil entries are skipped.
func NewMultiEmitter(subs ...Emitter) *MultiEmitter {
	m := &MultiEmitter{}
	for _, sub := range subs {
		m.Subscribe(sub)
	}
	return m
}

// Subscribe adds sub to the fan-out list.
func (m *MultiEmitter) Subscribe(sub Emitter) {
	if sub == nil {
		return
	}
	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()
}

// Emit implements the Emitter interface.
func (m *MultiEmitter) Emit(evt Event) {
	if m == nil || evt == nil {
		return
	}
	m.mu.RLock()
	subs := m.subs
	m.mu.RUnlock()
	for _, sub := range subs {
		sub.Emit(evt)
	}
}
