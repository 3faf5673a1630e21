// Package journey tracks one customer's document requests across a
// simulation run, memoizing each distinct document so that concurrent or
// repeated requests for it resolve to a single underlying resolution
// instead of re-running it — the same idempotency concern the teacher's
// checkpoint idempotency key guards against, applied here to in-flight
// document resolution rather than durable commits.
package journey

import (
	"context"
	"sync"

	"github.com/dshills/officeflow/async"
	"github.com/dshills/officeflow/events"
)

// ResolveFunc resolves a single named document for the journey's customer,
// including recursively resolving any of its dependencies. It is supplied
// by the orchestrator, which is the only package that knows how documents
// map to offices.
type ResolveFunc func(ctx context.Context, documentName string) (events.Result, error)

// Journey holds the per-customer memoization table described in spec.md's
// shared-prerequisite scenario: two dependents of the same document must
// observe exactly one resolution of it.
type Journey struct {
	customerID string
	resolve    ResolveFunc

	mu      sync.Mutex
	futures map[string]*async.Future[events.Result]
}

// New creates a Journey for customerID. resolve is invoked at most once per
// distinct document name over the Journey's lifetime.
func New(customerID string, resolve ResolveFunc) *Journey {
	return &Journey{
		customerID: customerID,
		resolve:    resolve,
		futures:    make(map[string]*async.Future[events.Result]),
	}
}

// CustomerID returns the customer this journey belongs to.
func (j *Journey) CustomerID() string { return j.customerID }

// RequestDocument resolves documentName for this journey's customer. The
// first caller for a given name runs resolve and settles the shared future;
// every other caller — whether concurrent or sequential — waits on that
// same future and observes its outcome, never triggering a second
// resolution.
func (j *Journey) RequestDocument(ctx context.Context, documentName string) (events.Result, error) {
	future, owner := j.putIfAbsent(documentName)
	if owner {
		result, err := j.resolve(ctx, documentName)
		future.Settle(result, err)
	}
	return future.Wait(ctx)
}

func (j *Journey) putIfAbsent(documentName string) (future *async.Future[events.Result], owner bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if f, ok := j.futures[documentName]; ok {
		return f, false
	}
	f := async.New[events.Result]()
	j.futures[documentName] = f
	return f, true
}

// HasDocument reports whether documentName has already finished resolving
// (successfully or not) for this journey.
func (j *Journey) HasDocument(documentName string) bool {
	j.mu.Lock()
	f, ok := j.futures[documentName]
	j.mu.Unlock()
	return ok && f.Settled()
}

// Documents returns the names of every document this journey has requested
// so far, in no particular order.
func (j *Journey) Documents() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	names := make([]string, 0, len(j.futures))
	for name := range j.futures {
		names = append(names, name)
	}
	return names
}
