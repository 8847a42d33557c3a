// Implements the EventQueue, which holds every scheduled event until it is
// delivered. Events are ordered by time, then by scheduling order.

package sim

import (
	"container/heap"
	"fmt"
	"strings"
	"time"
)

// TimedEvent is an event scheduled for delivery at Time.
// Seq is the scheduling order and breaks ties between equal times (FIFO).
type TimedEvent struct {
	Time  time.Duration
	Seq   uint64
	Event Event
}

// eventHeap implements heap.Interface ordered by (Time, Seq).
type eventHeap []TimedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].Seq < h[j].Seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(TimedEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// EventQueue is a priority queue with deterministic ordering:
// time first, then the order in which events were scheduled.
type EventQueue struct {
	events  eventHeap
	nextSeq uint64
}

// NewEventQueue creates an empty queue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{events: make(eventHeap, 0)}
	heap.Init(&q.events)
	return q
}

// Schedule adds ev at time at and returns the queued entry.
func (q *EventQueue) Schedule(at time.Duration, ev Event) TimedEvent {
	te := TimedEvent{Time: at, Seq: q.nextSeq, Event: ev}
	q.nextSeq++
	heap.Push(&q.events, te)
	return te
}

// PopNext removes and returns the earliest event.
// ok is false when the queue is empty.
func (q *EventQueue) PopNext() (te TimedEvent, ok bool) {
	if q.Len() == 0 {
		return TimedEvent{}, false
	}
	return heap.Pop(&q.events).(TimedEvent), true
}

// Peek returns the earliest event without removing it.
func (q *EventQueue) Peek() (TimedEvent, bool) {
	if q.Len() == 0 {
		return TimedEvent{}, false
	}
	return q.events[0], true
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	return q.events.Len()
}

func (q *EventQueue) String() string {
	pending := make(eventHeap, len(q.events))
	copy(pending, q.events)
	var sb strings.Builder
	for pending.Len() > 0 {
		te := heap.Pop(&pending).(TimedEvent)
		sb.WriteString(fmt.Sprintf("  %v: %s\n", te.Time, DescribeEvent(te.Event)))
	}
	return sb.String()
}
