package session

import (
	"context"
	"sync"
)

// Latest remembers the most recently requested content id so that the result
// of a slow lookup for an earlier id can be dropped instead of applied.
type Latest struct {
	gen uint64
	id  string
	mu  sync.Mutex
}

// Ticket identifies one lookup request.
type Ticket struct {
	gen uint64
	id  string
}

// ID returns the requested id.
func (t Ticket) ID() string { return t.id }

// Begin registers a request for id, superseding any earlier request.
func (l *Latest) Begin(id string) Ticket {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.id = id
	return Ticket{gen: l.gen, id: id}
}

// Current reports whether t is still the latest request.
func (l *Latest) Current(t Ticket) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current(t)
}

// Apply runs fn only if t is still the latest request. No request can begin
// while fn runs.
func (l *Latest) Apply(t Ticket, fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.current(t) {
		return false
	}
	fn()
	return true
}

func (l *Latest) current(t Ticket) bool {
	return t.gen == l.gen && t.id == l.id
}

// Fetch runs lookup for the id of t and hands the result to apply unless a
// later request superseded t in the meantime. It reports whether apply ran.
// Begin must be called in request order; Fetch may then run on any goroutine.
func Fetch[T any](ctx context.Context, l *Latest, t Ticket, lookup func(context.Context, string) (T, error), apply func(T, error)) bool {
	v, err := lookup(ctx, t.id)
	return l.Apply(t, func() { apply(v, err) })
}
