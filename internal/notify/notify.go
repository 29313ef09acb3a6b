// Package notify carries "data changed" signals from the core to any
// interested observer, such as a connected UI. Delivery is fire-and-forget,
// at most once per call.
package notify

import (
	"sync"

	"github.com/existflow/tasknest/internal/logger"
)

// Reason tags what kind of change happened
type Reason string

const (
	TaskCreated          Reason = "task_created"
	TaskUpdated          Reason = "task_updated"
	TaskDeleted          Reason = "task_deleted"
	TimelineEntryAdded   Reason = "timeline_entry_added"
	TimelineEntryUpdated Reason = "timeline_entry_updated"
	TimelineEntryDeleted Reason = "timeline_entry_deleted"
)

// Notifier receives change signals from the core
type Notifier interface {
	DataChanged(reason Reason, taskID string)
}

// Event is a delivered change signal
type Event struct {
	Reason Reason `json:"reason"`
	TaskID string `json:"task_id,omitempty"`
}

// Hub fans change signals out to subscribers. Slow subscribers drop events
// rather than blocking the mutation path.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a listener. The returned cancel func must be called to
// release it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// DataChanged broadcasts a change signal to all subscribers
func (h *Hub) DataChanged(reason Reason, taskID string) {
	logger.Debug("data changed", logger.F("reason", reason), logger.F("task", taskID))

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- Event{Reason: reason, TaskID: taskID}:
		default:
		}
	}
}
