// ABOUTME: Bounded FIFO of outbound actions attempted while disconnected.
// ABOUTME: Oldest entries drop at capacity; entries past the max age are discarded at replay time.

package realtime

import "time"

type queuedAction struct {
	frame      Frame
	enqueuedAt time.Time
}

// offlineQueue buffers outbound frames until reconnect. Not goroutine-safe;
// the Manager guards it with its own mutex.
type offlineQueue struct {
	actions  []queuedAction
	capacity int

	droppedOldest  int
	droppedExpired int
}

func newOfflineQueue(capacity int) *offlineQueue {
	return &offlineQueue{capacity: capacity}
}

// enqueue appends an action, dropping the single oldest entry when full.
// Returns true when a drop was needed.
func (q *offlineQueue) enqueue(f Frame, now time.Time) bool {
	dropped := false
	if len(q.actions) >= q.capacity {
		q.actions = q.actions[1:]
		q.droppedOldest++
		dropped = true
	}
	q.actions = append(q.actions, queuedAction{frame: f, enqueuedAt: now})
	return dropped
}

// drain discards entries older than maxAge, returns the remainder in
// original enqueue order, and empties the queue.
func (q *offlineQueue) drain(now time.Time, maxAge time.Duration) []Frame {
	fresh := make([]Frame, 0, len(q.actions))
	for _, a := range q.actions {
		if now.Sub(a.enqueuedAt) > maxAge {
			q.droppedExpired++
			continue
		}
		fresh = append(fresh, a.frame)
	}
	q.actions = q.actions[:0]
	return fresh
}

func (q *offlineQueue) len() int { return len(q.actions) }
