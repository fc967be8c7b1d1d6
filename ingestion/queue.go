package ingestion

import (
	"slices"
	"sync"

	"github.com/poiesic/logsift/core"
)

// priorityQueues holds one FIFO lane of job IDs per priority level.
//
// pop serves the highest non-empty lane, except that a non-empty lane passed
// over starvationThreshold times in a row is served first. A threshold of 0
// gives strict priority order.
type priorityQueues struct {
	mu                  sync.Mutex
	lanes               [core.NumPriorities][]string
	skipped             [core.NumPriorities]int
	starvationThreshold int
}

func newPriorityQueues(starvationThreshold int) *priorityQueues {
	return &priorityQueues{starvationThreshold: starvationThreshold}
}

func (q *priorityQueues) push(priority core.Priority, id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lanes[priority] = append(q.lanes[priority], id)
}

func (q *priorityQueues) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	chosen := -1
	if q.starvationThreshold > 0 {
		for p := range q.lanes {
			if len(q.lanes[p]) > 0 && q.skipped[p] >= q.starvationThreshold {
				chosen = p
				break
			}
		}
	}
	if chosen < 0 {
		for p := range q.lanes {
			if len(q.lanes[p]) > 0 {
				chosen = p
				break
			}
		}
	}
	if chosen < 0 {
		return "", false
	}

	lane := q.lanes[chosen]
	id := lane[0]
	lane[0] = ""
	q.lanes[chosen] = lane[1:]

	for p := range q.lanes {
		switch {
		case p == chosen, len(q.lanes[p]) == 0:
			q.skipped[p] = 0
		default:
			q.skipped[p]++
		}
	}
	return id, true
}

// remove drops id from its lane. It reports whether the id was queued.
func (q *priorityQueues) remove(priority core.Priority, id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	lane := q.lanes[priority]
	i := slices.Index(lane, id)
	if i < 0 {
		return false
	}
	q.lanes[priority] = slices.Delete(lane, i, i+1)
	return true
}

func (q *priorityQueues) depths() [core.NumPriorities]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out [core.NumPriorities]int
	for p, lane := range q.lanes {
		out[p] = len(lane)
	}
	return out
}
