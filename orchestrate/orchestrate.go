// Package orchestrate drives a Journey's document requests to completion
// against a set of offices, implementing the resolve-and-retry loop that
// makes missing prerequisites observable as FIFO cancellations rather than
// pre-flight checks.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/officeflow/config"
	"github.com/dshills/officeflow/events"
	"github.com/dshills/officeflow/journey"
	"github.com/dshills/officeflow/office"
)

// missingDependenciesError is the internal, not-user-visible signal an
// IssuanceTask's Work body raises when the journey does not yet hold every
// one of the document's declared dependencies. It never escapes resolve.
type missingDependenciesError struct {
	missing []string
}

func (e *missingDependenciesError) Error() string {
	return fmt.Sprintf("orchestrate: missing dependencies %v", e.missing)
}

// Orchestrator ties configuration, the event sink, and a running set of
// offices together on behalf of every Journey it creates.
type Orchestrator struct {
	cfg     *config.Config
	sink    events.Sink
	offices map[string]*office.Office
}

// New creates an Orchestrator. offices must contain one *office.Office per
// OfficeSpec name in cfg; the simulation driver owns constructing and
// shutting them down.
func New(cfg *config.Config, sink events.Sink, offices map[string]*office.Office) *Orchestrator {
	return &Orchestrator{cfg: cfg, sink: sink, offices: offices}
}

// NewJourney creates a Journey for customerID whose document requests this
// Orchestrator drives.
func (o *Orchestrator) NewJourney(customerID string) *journey.Journey {
	var j *journey.Journey
	j = journey.New(customerID, func(ctx context.Context, docName string) (events.Result, error) {
		return o.resolve(ctx, j, docName)
	})
	return j
}

// resolve implements spec.md §4.5's algorithm for a single target document:
// submit an IssuanceTask to the issuing office and wait for it to settle.
// A MissingDependencies outcome is never returned here — it is handled by
// the task's own Retry hook (see issuanceRetry), which resolves the missing
// dependencies and resubmits on the same goroutine that discovered the
// gap, so that a same-office dependency fetch and resubmission genuinely
// run inline on the office's own worker per spec.md §4.3/§8 scenario S2,
// rather than bouncing back to this (the waiter's) goroutine.
func (o *Orchestrator) resolve(ctx context.Context, j *journey.Journey, docName string) (events.Result, error) {
	doc, ok := o.cfg.Document(docName)
	if !ok {
		return events.Result{}, fmt.Errorf("orchestrate: unknown document %q: %w", docName, config.ErrUnknownDocument)
	}
	off, ok := o.offices[doc.IssuingOffice]
	if !ok {
		return events.Result{}, fmt.Errorf("orchestrate: office %q not running: %w", doc.IssuingOffice, config.ErrUnknownOffice)
	}

	o.sink.OfficeArrival(doc.IssuingOffice, j.CustomerID(), docName)

	future, err := off.Submit(ctx, o.issuanceTask(off, j, doc))
	if err != nil {
		return events.Result{}, err
	}

	result, err := future.Wait(ctx)
	if err != nil {
		return events.Result{}, err
	}
	o.sink.Issued(result)
	return result, nil
}

// issuanceTask builds the Task a worker at off executes to produce doc for
// j: Work performs the missing-dependency check described in spec.md §4.5
// step 3, and Retry is the continuation run, on the same goroutine and
// context, when Work reports missing dependencies.
func (o *Orchestrator) issuanceTask(off *office.Office, j *journey.Journey, doc config.DocumentSpec) office.Task {
	return office.Task{
		CustomerID:   j.CustomerID(),
		DocumentName: doc.Name,
		Work:         o.issuanceWork(j, doc),
		Retry:        o.issuanceRetry(off, j, doc),
	}
}

// issuanceWork returns the IssuanceTask body described in spec.md §4.5 step
// 3: it runs on whichever worker ends up servicing the task, which is what
// lets the missing-dependency check observe state as of the front of the
// queue rather than at submission time.
func (o *Orchestrator) issuanceWork(j *journey.Journey, doc config.DocumentSpec) office.WorkFunc {
	return func(ctx context.Context) (events.Result, error) {
		var missing []string
		for _, dep := range doc.Dependencies {
			if !j.HasDocument(dep) {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			return events.Result{}, &missingDependenciesError{missing: missing}
		}
		return events.Result{
			CustomerID:    j.CustomerID(),
			DocumentName:  doc.Name,
			IssuingOffice: doc.IssuingOffice,
			Dependencies:  doc.Dependencies,
		}, nil
	}
}

// issuanceRetry reacts to a MissingDependencies outcome from issuanceWork.
// It runs synchronously on the worker goroutine that is already servicing
// doc: it emits Cancel, fetches each missing dependency in turn through the
// same Journey (through ctx, so a same-office dependency resolves inline
// rather than re-queuing — spec.md §8 S2; a cross-office one queues
// normally at its own office — §8 S3), and then hands back a fresh
// IssuanceTask for doc itself so execute can resubmit it in place.
func (o *Orchestrator) issuanceRetry(off *office.Office, j *journey.Journey, doc config.DocumentSpec) office.RetryFunc {
	return func(ctx context.Context, err error) (office.Task, bool, error) {
		var missing *missingDependenciesError
		if !errors.As(err, &missing) {
			return office.Task{}, false, nil
		}

		o.sink.Cancel(doc.IssuingOffice, j.CustomerID(), doc.Name, "needs "+strings.Join(missing.missing, ", "))

		for _, dep := range missing.missing {
			depSpec, ok := o.cfg.Document(dep)
			if !ok {
				return office.Task{}, false, fmt.Errorf("orchestrate: unknown dependency %q: %w", dep, config.ErrUnknownDocument)
			}
			o.sink.Transport(doc.IssuingOffice, depSpec.IssuingOffice, dep)
			if _, ferr := j.RequestDocument(ctx, dep); ferr != nil {
				return office.Task{}, false, fmt.Errorf("orchestrate: dependency %q for %q: %w", dep, doc.Name, ferr)
			}
		}

		// Every missing dependency is now held; resubmit the same task.
		return o.issuanceTask(off, j, doc), true, nil
	}
}
