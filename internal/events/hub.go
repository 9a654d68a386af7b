package events

import "sync"

// historySize is how many events a reconnecting client can catch up on.
const historySize = 128

type Hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
	seq     uint64
	history []Event // ring, oldest first once full
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan Event]struct{})}
}

func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// Publish stamps e with the next sequence number, records it and sends it
// to every subscriber without blocking. Slow subscribers miss events and
// can catch up with Since.
func (h *Hub) Publish(e Event) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	e.Seq = h.seq
	if len(h.history) == historySize {
		copy(h.history, h.history[1:])
		h.history = h.history[:historySize-1]
	}
	h.history = append(h.history, e)

	for ch := range h.clients {
		select {
		case ch <- e:
		default:
		}
	}
	return e
}

// Emit wraps data in an Event envelope and publishes it.
func (h *Hub) Emit(typ string, data any) {
	if h == nil {
		return
	}
	h.Publish(New("", typ, data))
}

// Since returns recorded events with Seq > seq, oldest first.
func (h *Hub) Since(seq uint64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Event
	for _, e := range h.history {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// Subscribers is the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
