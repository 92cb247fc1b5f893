package host

import (
	"container/heap"

	"github.com/danmuck/tamactl/internal/actor"
)

// queued is a message waiting for its due block.
type queued struct {
	due     uint64
	seq     uint64
	source  actor.ID
	dest    actor.ID
	payload []byte
	gas     uint64
}

// delayQueue orders messages by (due, seq).
type delayQueue []queued

func (q delayQueue) Len() int { return len(q) }

func (q delayQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}

func (q delayQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *delayQueue) Push(x any) { *q = append(*q, x.(queued)) }

func (q *delayQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// popDue removes the head if it is due at or before block.
func (q *delayQueue) popDue(block uint64) (queued, bool) {
	if q.Len() == 0 || (*q)[0].due > block {
		return queued{}, false
	}
	return heap.Pop(q).(queued), true
}
