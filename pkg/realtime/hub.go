// Package realtime fans out event notices to live listeners such as
// websocket sessions.
//
// Delivery is best effort: every listener has its own buffered channel and a
// notice that does not fit is dropped for that listener only. There is no
// persistence or replay.
package realtime

import (
	"sync"
	"time"

	"github.com/rubiojr/eventa/pkg/core"
)

// Notice types.
const (
	NoticeApproved = "event.approved"
	NoticeHello    = "hello"
)

const defaultBufSize = 32

// Notice is one message on the live feed.
type Notice struct {
	Type  string             `json:"type"`
	At    string             `json:"at"`
	Event *core.SearchResult `json:"event,omitempty"`
}

// NewApprovedNotice wraps a freshly approved event.
func NewApprovedNotice(e *core.Event, at time.Time) Notice {
	r := core.ResultFromEvent(e)
	return Notice{Type: NoticeApproved, At: core.FormatTimestamp(at), Event: &r}
}

// Hub is an in-memory fan-out dispatcher. It is safe for concurrent use.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]chan Notice
	nextID    uint64
	bufSize   int
}

// NewHub returns a hub with the given per-listener buffer. A size of zero
// or less uses 32.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = defaultBufSize
	}
	return &Hub{
		listeners: make(map[uint64]chan Notice),
		bufSize:   bufSize,
	}
}

// Register adds a listener. Callers must Unregister the returned id.
func (h *Hub) Register() (uint64, <-chan Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Notice, h.bufSize)
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes a listener and closes its channel. Unknown ids are
// ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// Broadcast delivers n to every listener with room in its buffer and
// returns how many received it.
func (h *Hub) Broadcast(n Notice) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, ch := range h.listeners {
		select {
		case ch <- n:
			delivered++
		default:
			// Slow listener.
		}
	}
	return delivered
}

// Size returns the number of listeners.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
