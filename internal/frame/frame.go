// Package frame queues one-shot callbacks for the next display refresh.
//
// A Queue is driven by its owner: RequestFrame registers a callback,
// CancelFrame withdraws it, and Run fires everything that was pending when
// Run started. Callbacks requested from inside Run wait for the next Run,
// which is what lets a callback reschedule itself once per refresh.
package frame

// ID identifies a pending request. Zero is never issued.
type ID uint64

type Callback func(ts float64)

type request struct {
	id        ID
	fn        Callback
	cancelled bool
}

type Queue struct {
	next    ID
	pending []*request
	// running is the batch Run is firing, so it can still be cancelled.
	running []*request
}

func (q *Queue) RequestFrame(fn Callback) ID {
	q.next++
	q.pending = append(q.pending, &request{id: q.next, fn: fn})
	return q.next
}

// CancelFrame withdraws id. It reports false when id already fired or was
// already cancelled. A request cancelled by an earlier callback of the same
// Run does not fire.
func (q *Queue) CancelFrame(id ID) bool {
	for _, r := range q.running {
		if r.id == id && !r.cancelled {
			r.cancelled = true
			return true
		}
	}
	for i, r := range q.pending {
		if r.id != id {
			continue
		}
		r.cancelled = true
		q.pending = append(q.pending[:i:i], q.pending[i+1:]...)
		return true
	}
	return false
}

// Run fires the pending callbacks in request order and returns how many ran.
func (q *Queue) Run(ts float64) int {
	batch := q.pending
	q.pending = nil
	q.running = batch
	defer func() { q.running = nil }()
	n := 0
	for _, r := range batch {
		if r.cancelled {
			continue
		}
		r.cancelled = true
		r.fn(ts)
		n++
	}
	return n
}

// Pending returns the number of callbacks waiting for the next Run.
func (q *Queue) Pending() int {
	return len(q.pending)
}
