package office

import (
	"context"
	"time"

	"github.com/dshills/officeflow/events"
)

// WorkFunc is the deferred producer an IssuanceTask carries: it is invoked
// by the worker that ends up servicing the task, after the simulated
// service delay has elapsed. It may itself recursively call Submit on this
// office or another one — see the reentrancy note on Submit.
type WorkFunc func(ctx context.Context) (events.Result, error)

// RetryFunc lets a Task observe its own Work failure and decide whether to
// continue as a different Task rather than settle with that error. It is
// invoked by execute on the same goroutine, under the same ctx, that ran
// Work — so if it calls Submit on this office (directly, or transitively
// through fetching something else first), Submit sees that goroutine is
// already one of this office's own workers and runs inline instead of
// re-queuing. This is what lets a retry's dependency fetch and its eventual
// resubmission stay pinned to the worker that discovered the failure,
// instead of handing the retry off to whatever goroutine is waiting on the
// original future.
//
// If ok is true, next replaces task and execute recurses into it,
// preserving the same counter and emitting a fresh CounterStart/CounterFinish
// pair for the resubmission. If ok is false, terminalErr (if non-nil)
// replaces err as the settled error; otherwise err itself is used.
type RetryFunc func(ctx context.Context, err error) (next Task, ok bool, terminalErr error)

// Task is the unit of work a worker executes. It carries no mutable state:
// everything needed to run it lives in the closures captured by Work and
// Retry.
type Task struct {
	CustomerID   string
	DocumentName string
	Work         WorkFunc
	Retry        RetryFunc
}

// State enumerates an office's lifecycle per the break state machine in
// spec.md §4.3.
type State int

const (
	Open State = iota
	BreakPending
	OnBreak
	Shutdown
)

func (s State) String() string {
	switch s {
	case Open:
		return "OPEN"
	case BreakPending:
		return "BREAK_PENDING"
	case OnBreak:
		return "ON_BREAK"
	case Shutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// DurationOracle samples a duration uniformly from [min, max]. Production
// code draws from a real random source; tests substitute a deterministic
// one (see MidpointOracle).
type DurationOracle interface {
	Sample(min, max time.Duration) time.Duration
}

// MidpointOracle always returns the midpoint of the window, giving
// deterministic, reproducible service timings for the fixed-seed scenario
// tests described in spec.md §8.
type MidpointOracle struct{}

// Sample returns (min+max)/2.
func (MidpointOracle) Sample(min, max time.Duration) time.Duration {
	return min + (max-min)/2
}
