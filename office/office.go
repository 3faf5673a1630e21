// Package office implements the per-office queueing and worker-pool engine
// described in spec.md §4.3: bounded-concurrency FIFO admission, a
// cooperative break state machine, and a reentrancy escape that lets a
// worker re-enter its own office without deadlocking.
package office

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/officeflow/async"
	"github.com/dshills/officeflow/config"
	"github.com/dshills/officeflow/events"
)

// officeMarkerKey is the context key a worker attaches around its service
// call so that a nested Submit to the same office can detect it is already
// running on one of that office's own workers. A private type avoids
// collisions with keys from other packages.
type officeMarkerKey struct{}

// workerMarker identifies which office and counter a worker is currently
// occupying. Carrying the counter index lets inline (reentrant) execution
// reuse it for CounterStart/CounterFinish events, since it really is the
// same counter doing the work.
type workerMarker struct {
	office  *Office
	counter int
}

// queueEntry is the admitted form of a Task: its FIFO sequence number, the
// context its submitter is waiting under, and the completion it owns until
// a worker settles it.
type queueEntry struct {
	task     Task
	sequence uint64
	ctx      context.Context
	future   *async.Future[events.Result]
}

// Office is a single service counter: a FIFO queue, Counters parallel
// workers, and a break cycle, all behind one mutex/condition domain per
// spec.md §5 ("Shared-resource policy").
type Office struct {
	spec   config.OfficeSpec
	sink   events.Sink
	oracle DurationOracle

	mu             sync.Mutex
	cond           *sync.Cond
	queue          []*queueEntry
	seq            uint64
	state          State
	activeServices int

	wg sync.WaitGroup
}

// New creates an Office and immediately starts its Counters workers.
func New(spec config.OfficeSpec, sink events.Sink, oracle DurationOracle) *Office {
	if sink == nil {
		sink = events.NewNullSink()
	}
	if oracle == nil {
		oracle = MidpointOracle{}
	}

	o := &Office{
		spec:   spec,
		sink:   sink,
		oracle: oracle,
		state:  Open,
	}
	o.cond = sync.NewCond(&o.mu)

	o.wg.Add(spec.Counters)
	for i := 0; i < spec.Counters; i++ {
		go o.workerLoop(i)
	}
	return o
}

// Name returns the office's configured name.
func (o *Office) Name() string { return o.spec.Name }

// State reports the office's current runtime state.
func (o *Office) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// QueueSize reports how many tasks are currently admitted but not yet
// started.
func (o *Office) QueueSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// QueueSnapshot returns the current queue contents as "customer REQUESTING
// doc" strings, in FIFO order, without holding the lock for longer than the
// copy itself.
func (o *Office) QueueSnapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Office) snapshotLocked() []string {
	out := make([]string, len(o.queue))
	for i, e := range o.queue {
		out[i] = fmt.Sprintf("%s REQUESTING %s", e.task.CustomerID, e.task.DocumentName)
	}
	return out
}

// Submit enqueues task and returns a future that settles with its result.
//
// If the calling goroutine is already running inside one of this office's
// own workers (detected via the workerMarker context key set by
// workerLoop/execute), Submit bypasses the queue entirely and runs the task
// inline on the calling goroutine instead — see spec.md §4.3's reentrancy
// escape. Otherwise Submit blocks until the office is accepting admissions
// or has shut down.
func (o *Office) Submit(ctx context.Context, task Task) (*async.Future[events.Result], error) {
	if m, ok := ctx.Value(officeMarkerKey{}).(workerMarker); ok && m.office == o {
		f := async.New[events.Result]()
		result, err := o.execute(ctx, m.counter, task)
		f.Settle(result, err)
		return f, nil
	}

	o.mu.Lock()
	for o.state != Shutdown && o.state != Open {
		o.cond.Wait()
	}
	if o.state == Shutdown {
		o.mu.Unlock()
		return nil, ErrShuttingDown
	}

	o.seq++
	entry := &queueEntry{
		task:     task,
		sequence: o.seq,
		ctx:      ctx,
		future:   async.New[events.Result](),
	}
	o.queue = append(o.queue, entry)
	snapshot := o.snapshotLocked()
	o.cond.Broadcast()
	o.mu.Unlock()

	o.sink.RequestAccepted(o.spec.Name, task.CustomerID, task.DocumentName)
	o.sink.Queue(o.spec.Name, task.CustomerID, task.DocumentName, snapshot)

	return entry.future, nil
}

// workerLoop is the admission loop run by one of the office's Counters
// worker agents, per spec.md §4.3.
func (o *Office) workerLoop(counter int) {
	defer o.wg.Done()

	for {
		o.mu.Lock()
		for o.state != Shutdown && !(len(o.queue) > 0 && o.state == Open) {
			o.cond.Wait()
		}
		if o.state == Shutdown {
			o.mu.Unlock()
			return
		}

		entry := o.queue[0]
		o.queue = o.queue[1:]
		o.activeServices++
		o.mu.Unlock()

		workCtx := context.WithValue(entry.ctx, officeMarkerKey{}, workerMarker{office: o, counter: counter})
		result, err := o.execute(workCtx, counter, entry.task)
		entry.future.Settle(result, err)

		o.mu.Lock()
		o.activeServices--
		o.maybeEnterBreakLocked()
		o.cond.Broadcast()
		o.mu.Unlock()
	}
}

// execute runs the simulated service delay followed by the task's work
// body, timing the combined span into the result. It is shared by the
// normal worker path and the reentrant inline path, since both must behave
// identically apart from queueing.
//
// If Work fails and the task carries a Retry hook, that hook runs on this
// same goroutine and under this same ctx before anything is settled; if it
// produces a continuation task, execute recurses into it directly rather
// than returning to whichever caller is waiting on the original future.
// This keeps a retried resubmission pinned to the worker that discovered
// the failure (see the RetryFunc doc comment), and gives the resubmission
// its own CounterStart/CounterFinish pair.
func (o *Office) execute(ctx context.Context, counter int, task Task) (events.Result, error) {
	o.sink.CounterStart(o.spec.Name, counter, task.CustomerID, task.DocumentName)

	start := time.Now()
	delay := o.oracle.Sample(o.spec.MinService, o.spec.MaxService)
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return events.Result{}, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}

	result, err := task.Work(ctx)
	if err != nil && task.Retry != nil {
		if next, ok, terminal := task.Retry(ctx, err); ok {
			return o.execute(ctx, counter, next)
		} else if terminal != nil {
			err = terminal
		}
	}

	result.ServiceDuration = time.Since(start)
	if err == nil {
		o.sink.CounterFinish(o.spec.Name, counter, task.CustomerID, task.DocumentName)
	}
	return result, err
}

// TakeBreak requests a break: admissions stop, in-flight services are
// allowed to finish, the office sleeps for its configured BreakDuration,
// then resumes. It blocks until the break cycle it either started or
// joined has returned to Open. A TakeBreak call that arrives while a break
// is already pending or active coalesces into that cycle rather than
// starting a second one (spec.md §8 property 7).
func (o *Office) TakeBreak() error {
	o.mu.Lock()
	if o.state == Shutdown {
		o.mu.Unlock()
		return ErrShuttingDown
	}
	if o.state == Open {
		o.state = BreakPending
		o.sink.Office(o.spec.Name, "break requested")
		o.cond.Broadcast()
		o.maybeEnterBreakLocked()
	}
	for o.state != Open && o.state != Shutdown {
		o.cond.Wait()
	}
	o.mu.Unlock()
	return nil
}

// maybeEnterBreakLocked performs the BREAK_PENDING -> ON_BREAK transition
// exactly once per cycle, taken by whoever observes activeServices==0 under
// the lock, and spawns the timer that ends the break. Must be called with
// o.mu held.
func (o *Office) maybeEnterBreakLocked() {
	if o.state != BreakPending || o.activeServices != 0 {
		return
	}
	o.state = OnBreak
	o.sink.Office(o.spec.Name, "on break")

	dur := o.spec.BreakDuration
	go func() {
		if dur > 0 {
			time.Sleep(dur)
		}
		o.mu.Lock()
		if o.state == OnBreak {
			o.state = Open
			o.sink.Office(o.spec.Name, "break ended")
		}
		o.cond.Broadcast()
		o.mu.Unlock()
	}()
}

// Shutdown initiates teardown: queued-but-not-started entries settle with
// ErrShuttingDown, workers exit once their current task (if any) finishes,
// and further Submit calls fail fast. Shutdown is idempotent and the second
// call never blocks, since by then every worker has already exited.
func (o *Office) Shutdown() {
	o.mu.Lock()
	if o.state == Shutdown {
		o.mu.Unlock()
		o.wg.Wait()
		return
	}

	o.state = Shutdown
	for _, e := range o.queue {
		e.future.Settle(events.Result{}, ErrShuttingDown)
	}
	o.queue = nil
	o.cond.Broadcast()
	o.mu.Unlock()

	o.wg.Wait()
}
