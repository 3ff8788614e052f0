package engine

import (
	"slices"
	"sort"
	"time"

	"github.com/roach88/pipesim/internal/fsm"
)

// ScheduledEvent is a deferred state-transition request.
//
// FireAt is fixed when the event is scheduled and is never recomputed, even
// if the engine speed changes afterwards.
type ScheduledEvent struct {
	ID          string        `json:"id"`
	Seq         int64         `json:"seq"`
	FireAt      time.Duration `json:"fire_at"`
	ScheduledAt time.Duration `json:"scheduled_at"`
	ComponentID string        `json:"component_id"`
	Action      fsm.Action    `json:"action"`
	Payload     fsm.Payload   `json:"payload,omitempty"`
}

// eventQueue keeps pending events sorted ascending by (FireAt, Seq).
//
// Not safe for concurrent use; the engine's single logical thread owns it.
type eventQueue struct {
	events []*ScheduledEvent
}

func newEventQueue() *eventQueue {
	return &eventQueue{events: make([]*ScheduledEvent, 0, 64)}
}

// push inserts ev after every event with FireAt <= ev.FireAt. Since Seq is
// monotonic, this keeps equal-time events in insertion order.
func (q *eventQueue) push(ev *ScheduledEvent) {
	i := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].FireAt > ev.FireAt
	})
	q.events = slices.Insert(q.events, i, ev)
}

// peek returns the earliest event without removing it.
func (q *eventQueue) peek() (*ScheduledEvent, bool) {
	if len(q.events) == 0 {
		return nil, false
	}
	return q.events[0], true
}

// popDue removes and returns the earliest event if it is due at now.
func (q *eventQueue) popDue(now time.Duration) (*ScheduledEvent, bool) {
	ev, ok := q.peek()
	if !ok || ev.FireAt > now {
		return nil, false
	}

	// Nil out the slot so the backing array does not retain the event.
	q.events[0] = nil
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return ev, true
}

// remove deletes the event with the given id.
func (q *eventQueue) remove(id string) (*ScheduledEvent, bool) {
	for i, ev := range q.events {
		if ev.ID == id {
			q.events = slices.Delete(q.events, i, i+1)
			return ev, true
		}
	}
	return nil, false
}

// removeWhere deletes every event matching pred and returns them in queue order.
func (q *eventQueue) removeWhere(pred func(*ScheduledEvent) bool) []*ScheduledEvent {
	var removed []*ScheduledEvent
	kept := q.events[:0]
	for _, ev := range q.events {
		if pred(ev) {
			removed = append(removed, ev)
			continue
		}
		kept = append(kept, ev)
	}
	clear(q.events[len(kept):])
	q.events = kept
	return removed
}

func (q *eventQueue) clear() {
	clear(q.events)
	q.events = q.events[:0]
}

func (q *eventQueue) len() int {
	return len(q.events)
}

// snapshot returns copies of the pending events in firing order.
func (q *eventQueue) snapshot() []ScheduledEvent {
	out := make([]ScheduledEvent, len(q.events))
	for i, ev := range q.events {
		out[i] = *ev
	}
	return out
}
