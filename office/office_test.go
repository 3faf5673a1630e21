package office

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dshills/officeflow/config"
	"github.com/dshills/officeflow/events"
)

func testSpec(name string, counters int) config.OfficeSpec {
	return config.OfficeSpec{
		Name:          name,
		Counters:      counters,
		MinService:    time.Millisecond,
		MaxService:    2 * time.Millisecond,
		BreakDuration: 5 * time.Millisecond,
	}
}

func echoTask(customer, doc string) Task {
	return Task{
		CustomerID:   customer,
		DocumentName: doc,
		Work: func(ctx context.Context) (events.Result, error) {
			return events.Result{CustomerID: customer, DocumentName: doc}, nil
		},
	}
}

func TestOffice_SubmitAndComplete(t *testing.T) {
	sink := events.NewBufferedSink()
	o := New(testSpec("A", 1), sink, MidpointOracle{})
	defer o.Shutdown()

	f, err := o.Submit(context.Background(), echoTask("u1", "X"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	result, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result.DocumentName != "X" {
		t.Fatalf("result = %+v, want DocumentName X", result)
	}

	var sawFinish bool
	for _, e := range sink.Entries() {
		if e.Msg == "counterFinish" {
			sawFinish = true
		}
	}
	if !sawFinish {
		t.Fatal("expected a counterFinish event")
	}
}

func TestOffice_FIFOAdmission(t *testing.T) {
	sink := events.NewBufferedSink()
	o := New(testSpec("A", 1), sink, MidpointOracle{})
	defer o.Shutdown()

	var mu sync.Mutex
	var order []string
	wait := make(chan struct{})

	task := func(customer string) Task {
		return Task{
			CustomerID:   customer,
			DocumentName: "X",
			Work: func(ctx context.Context) (events.Result, error) {
				mu.Lock()
				order = append(order, customer)
				mu.Unlock()
				return events.Result{}, nil
			},
		}
	}

	// Hold the single counter busy while we queue up u2 and u3 in order.
	blocker := Task{
		CustomerID:   "blocker",
		DocumentName: "X",
		Work: func(ctx context.Context) (events.Result, error) {
			<-wait
			return events.Result{}, nil
		},
	}
	if _, err := o.Submit(context.Background(), blocker); err != nil {
		t.Fatalf("Submit blocker: %v", err)
	}
	time.Sleep(5 * time.Millisecond) // let the blocker occupy the counter

	f2, _ := o.Submit(context.Background(), task("u2"))
	f3, _ := o.Submit(context.Background(), task("u3"))
	close(wait)

	if _, err := f2.Wait(context.Background()); err != nil {
		t.Fatalf("f2 wait: %v", err)
	}
	if _, err := f3.Wait(context.Background()); err != nil {
		t.Fatalf("f3 wait: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "u2" || order[1] != "u3" {
		t.Fatalf("service order = %v, want [u2 u3]", order)
	}
}

func TestOffice_ReentrantSubmitRunsInline(t *testing.T) {
	sink := events.NewBufferedSink()
	o := New(testSpec("A", 1), sink, MidpointOracle{})
	defer o.Shutdown()

	outer := Task{
		CustomerID:   "u1",
		DocumentName: "Y",
		Work: func(ctx context.Context) (events.Result, error) {
			inner, err := o.Submit(ctx, echoTask("u1", "X"))
			if err != nil {
				return events.Result{}, err
			}
			// If the reentrant Submit had gone through the queue behind this
			// very worker, this Wait would deadlock since nothing else could
			// ever drain the single counter.
			return inner.Wait(ctx)
		},
	}

	f, err := o.Submit(context.Background(), outer)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	done := make(chan struct{})
	var result events.Result
	var waitErr error
	go func() {
		result, waitErr = f.Wait(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reentrant Submit deadlocked")
	}

	if waitErr != nil {
		t.Fatalf("Wait: %v", waitErr)
	}
	if result.DocumentName != "X" {
		t.Fatalf("result = %+v, want inner result for X", result)
	}
}

func TestOffice_RetryRunsInlineWithoutRequeue(t *testing.T) {
	sink := events.NewBufferedSink()
	o := New(testSpec("A", 1), sink, MidpointOracle{})
	defer o.Shutdown()

	errNeedsRetry := errors.New("needs retry")
	var attempts int

	task := Task{
		CustomerID:   "u1",
		DocumentName: "Y",
		Work: func(ctx context.Context) (events.Result, error) {
			attempts++
			if attempts == 1 {
				return events.Result{}, errNeedsRetry
			}
			return events.Result{CustomerID: "u1", DocumentName: "Y"}, nil
		},
		Retry: func(ctx context.Context, err error) (Task, bool, error) {
			if !errors.Is(err, errNeedsRetry) {
				return Task{}, false, nil
			}
			return Task{
				CustomerID:   "u1",
				DocumentName: "Y",
				Work: func(ctx context.Context) (events.Result, error) {
					attempts++
					return events.Result{CustomerID: "u1", DocumentName: "Y"}, nil
				},
			}, true, nil
		},
	}

	f, err := o.Submit(context.Background(), task)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	result, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result.DocumentName != "Y" {
		t.Fatalf("result = %+v, want DocumentName Y", result)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2 (initial + retried)", attempts)
	}

	starts, finishes, queues := 0, 0, 0
	for _, e := range sink.Entries() {
		switch e.Msg {
		case "counterStart":
			starts++
		case "counterFinish":
			finishes++
		case "queue":
			queues++
		}
	}
	if starts != 2 {
		t.Fatalf("counterStart count = %d, want 2 (one per attempt)", starts)
	}
	if finishes != 1 {
		t.Fatalf("counterFinish count = %d, want 1 (only the successful attempt)", finishes)
	}
	if queues != 1 {
		t.Fatalf("queue count = %d, want 1 (the original submission only, no requeue on retry)", queues)
	}
}

func TestOffice_TakeBreakReturnsToOpenAndResumes(t *testing.T) {
	sink := events.NewBufferedSink()
	o := New(testSpec("A", 1), sink, MidpointOracle{})
	defer o.Shutdown()

	done := make(chan struct{})
	go func() {
		_ = o.TakeBreak()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TakeBreak never returned")
	}

	if got := o.State(); got != Open {
		t.Fatalf("state after break = %v, want OPEN", got)
	}

	f, err := o.Submit(context.Background(), echoTask("u1", "X"))
	if err != nil {
		t.Fatalf("Submit after break: %v", err)
	}
	if _, err := f.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestOffice_ConcurrentTakeBreakCoalesces(t *testing.T) {
	sink := events.NewBufferedSink()
	o := New(testSpec("A", 1), sink, MidpointOracle{})
	defer o.Shutdown()

	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		go func() {
			defer wg.Done()
			_ = o.TakeBreak()
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("coalesced TakeBreak calls never returned")
	}

	onBreakCount := 0
	for _, e := range sink.Entries() {
		if e.Msg == "office" && e.Reason == "on break" {
			onBreakCount++
		}
	}
	if onBreakCount != 1 {
		t.Fatalf("on-break transitions = %d, want exactly 1 (coalesced)", onBreakCount)
	}
}

func TestOffice_ShutdownCancelsQueuedAndIsIdempotent(t *testing.T) {
	sink := events.NewBufferedSink()
	o := New(testSpec("A", 1), sink, MidpointOracle{})

	wait := make(chan struct{})
	blocker := Task{
		CustomerID:   "blocker",
		DocumentName: "X",
		Work: func(ctx context.Context) (events.Result, error) {
			<-wait
			return events.Result{}, nil
		},
	}
	if _, err := o.Submit(context.Background(), blocker); err != nil {
		t.Fatalf("Submit blocker: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	queued, err := o.Submit(context.Background(), echoTask("u2", "X"))
	if err != nil {
		t.Fatalf("Submit queued: %v", err)
	}

	shutdownDone := make(chan struct{})
	go func() {
		o.Shutdown()
		close(shutdownDone)
	}()
	time.Sleep(5 * time.Millisecond)
	close(wait)

	select {
	case <-shutdownDone:
	case <-time.After(time.Second):
		t.Fatal("Shutdown never returned")
	}

	_, err = queued.Wait(context.Background())
	if !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("queued entry err = %v, want ErrShuttingDown", err)
	}

	// Idempotent: second call must not block.
	done := make(chan struct{})
	go func() {
		o.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Shutdown call blocked")
	}

	if _, err := o.Submit(context.Background(), echoTask("u3", "X")); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("Submit after shutdown err = %v, want ErrShuttingDown", err)
	}
}

func TestOffice_QueueSnapshotFormat(t *testing.T) {
	sink := events.NewBufferedSink()
	o := New(testSpec("A", 1), sink, MidpointOracle{})
	defer o.Shutdown()

	wait := make(chan struct{})
	blocker := Task{
		CustomerID:   "blocker",
		DocumentName: "X",
		Work: func(ctx context.Context) (events.Result, error) {
			<-wait
			return events.Result{}, nil
		},
	}
	if _, err := o.Submit(context.Background(), blocker); err != nil {
		t.Fatalf("Submit blocker: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := o.Submit(context.Background(), echoTask("u2", "X")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	snap := o.QueueSnapshot()
	close(wait)

	if len(snap) != 1 || snap[0] != "u2 REQUESTING X" {
		t.Fatalf("snapshot = %v, want [\"u2 REQUESTING X\"]", snap)
	}
}
