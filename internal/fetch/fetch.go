// Package fetch provides race suppression for overlapping asynchronous
// loads. Each request takes a sequence-numbered ticket at dispatch time;
// its result is committed only if no newer request has been started since.
// Stale results, success or failure, are discarded without side effects.
package fetch

import "sync"

// Kind distinguishes loading flags so a long initial load and an append can
// be tracked independently.
type Kind int

const (
	// KindInitial is a load that replaces the view's collection.
	KindInitial Kind = iota
	// KindMore is an incremental load that appends to the collection.
	KindMore
)

// Coordinator gates state commits on request freshness. The zero value is
// ready to use.
type Coordinator struct {
	mu      sync.Mutex
	seq     uint64
	loading map[Kind]bool
}

// Ticket identifies one dispatched request.
type Ticket struct {
	seq uint64
}

// Begin registers a new request as the authoritative one, superseding any
// request still in flight, and marks the given kind as loading.
func (c *Coordinator) Begin(kind Kind) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	if c.loading == nil {
		c.loading = make(map[Kind]bool)
	}
	c.loading[kind] = true
	return Ticket{seq: c.seq}
}

// Commit applies fn only when t still identifies the newest request, and
// clears the kind's loading flag in that case. It reports whether fn ran.
// A stale ticket clears nothing: the newer request owns the flags now.
func (c *Coordinator) Commit(t Ticket, kind Kind, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.seq != c.seq {
		return false
	}
	c.loading[kind] = false
	if fn != nil {
		fn()
	}
	return true
}

// Current reports whether t still identifies the newest request.
func (c *Coordinator) Current(t Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return t.seq == c.seq
}

// Loading reports whether a request of the given kind is in flight.
func (c *Coordinator) Loading(kind Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading[kind]
}
