package engine

import (
	"sync"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Stimulus is an external action queued for the Run loop.
type Stimulus struct {
	Action ir.ActionRef
	Input  ir.IRObject

	done chan Result
}

// Result is delivered once a queued stimulus' cascade has finished.
type Result struct {
	Outcome *Outcome
	Err     error
}

// stimulusQueue is a thread-safe FIFO of stimuli.
//
// The queue is unbounded so producers (tickers, HTTP handlers) never block
// on a slow cascade. A buffered signal channel lets the Run loop wait with
// a select on its context.
type stimulusQueue struct {
	mu     sync.Mutex
	items  []Stimulus
	closed bool
	signal chan struct{}
}

func newStimulusQueue() *stimulusQueue {
	return &stimulusQueue{
		items:  make([]Stimulus, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// enqueue adds s to the back of the queue. Returns false once closed.
func (q *stimulusQueue) enqueue(s Stimulus) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, s)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// tryDequeue removes the front stimulus without blocking.
func (q *stimulusQueue) tryDequeue() (Stimulus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Stimulus{}, false
	}
	s := q.items[0]
	// Clear the slot so the backing array does not pin inputs.
	q.items[0] = Stimulus{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return s, true
}

func (q *stimulusQueue) wait() <-chan struct{} {
	return q.signal
}

func (q *stimulusQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *stimulusQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *stimulusQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
