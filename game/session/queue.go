package session

import "github.com/wricardo/mcp-training/damegame/game/engine"

// DefaultQueueLimit bounds an update queue when no limit is configured.
const DefaultQueueLimit = 256

// UpdateQueue is an ordered buffer of board snapshots waiting to be polled.
// When full, the oldest snapshot is evicted and counted as dropped.
// UpdateQueue is not safe for concurrent use; sessions guard it with their
// own mutex.
type UpdateQueue struct {
	items   []engine.Board
	limit   int
	dropped int
}

// NewUpdateQueue creates a queue holding at most limit snapshots. A limit of
// zero or less leaves the queue unbounded; Manager maps a zero
// Options.QueueLimit to DefaultQueueLimit before it gets here.
func NewUpdateQueue(limit int) *UpdateQueue {
	return &UpdateQueue{limit: limit}
}

// Push appends a snapshot, evicting the oldest one if the queue is full.
func (q *UpdateQueue) Push(b engine.Board) {
	if q.limit > 0 && len(q.items) >= q.limit {
		q.items[0] = nil
		q.items = q.items[1:]
		q.dropped++
	}
	q.items = append(q.items, b)
}

// Pop removes and returns the oldest snapshot.
func (q *UpdateQueue) Pop() (engine.Board, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	b := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return b, true
}

// Len returns the number of undelivered snapshots.
func (q *UpdateQueue) Len() int {
	return len(q.items)
}

// Dropped returns how many snapshots were evicted unread.
func (q *UpdateQueue) Dropped() int {
	return q.dropped
}
