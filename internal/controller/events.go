package controller

import (
	"sync"

	"vmixctl/internal/engine"
)

// EventType classifies controller change events.
type EventType string

const (
	EventSnapshot         EventType = "snapshot"
	EventCommandSubmitted EventType = "command_submitted"
	EventCommandResolved  EventType = "command_resolved"
	EventReset            EventType = "reset"
	EventConnectivity     EventType = "connectivity"
)

// Event is a single entry on the change stream UI layers subscribe to.
type Event struct {
	Type         EventType              `json:"type"`
	Command      *engine.PendingCommand `json:"command,omitempty"`
	Connectivity string                 `json:"connectivity,omitempty"`
}

const subscriberBuffer = 64

// hub fans events out to subscribers. Slow subscribers drop events rather
// than stall the reconciliation loop.
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Event)}
}

func (h *hub) subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if existing, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

func (h *hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
