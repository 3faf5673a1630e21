// Package sim wires configuration, the event sink, offices, and the
// document orchestrator together into a complete, runnable simulation
// (spec.md §4.6).
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/dshills/officeflow/config"
	"github.com/dshills/officeflow/events"
	"github.com/dshills/officeflow/office"
	"github.com/dshills/officeflow/orchestrate"
)

// Run builds one Office per OfficeSpec in cfg, spawns an independent
// execution context per customer, drives a break scheduler for every
// office, and blocks until every customer's journey has settled — at which
// point it cancels the break schedulers and shuts every office down.
//
// Run returns nil once teardown completes; individual customer failures are
// narrated through the sink rather than returned, since one customer's
// failed journey must not affect another's (spec.md §7).
func Run(ctx context.Context, cfg *config.Config, customers []config.CustomerProfile, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	offices := make(map[string]*office.Office, len(cfg.Offices()))
	for _, name := range cfg.Offices() {
		spec, _ := cfg.Office(name)
		offices[name] = office.New(spec, o.Sink, o.ServiceOracle)
	}

	orch := orchestrate.New(cfg, o.Sink, offices)

	o.Sink.System("simulation starting")

	breakCtx, cancelBreaks := context.WithCancel(ctx)
	var breakWG sync.WaitGroup
	for _, name := range cfg.Offices() {
		breakWG.Add(1)
		go runBreakScheduler(breakCtx, &breakWG, offices[name], o.BreakOracle, o.BreakMin, o.BreakMax)
	}

	var customerWG sync.WaitGroup
	customerWG.Add(len(customers))
	for _, profile := range customers {
		profile := profile
		go func() {
			defer customerWG.Done()
			runCustomer(ctx, orch, o.Sink, profile)
		}()
	}
	customerWG.Wait()

	cancelBreaks()
	breakWG.Wait()

	for _, name := range cfg.Offices() {
		offices[name].Shutdown()
	}

	o.Sink.System("simulation finished")
	return nil
}

// runCustomer implements spec.md §4.6 step 3: wait for arrival, create a
// Journey, fan out a request for every listed document, and await all of
// them before narrating completion or failure.
func runCustomer(ctx context.Context, orch *orchestrate.Orchestrator, sink events.Sink, profile config.CustomerProfile) {
	if profile.ArrivalDelay > 0 {
		select {
		case <-time.After(profile.ArrivalDelay):
		case <-ctx.Done():
			return
		}
	}

	j := orch.NewJourney(profile.ID)

	errs := make([]error, len(profile.RequestedDocuments))
	var wg sync.WaitGroup
	wg.Add(len(profile.RequestedDocuments))
	for i, doc := range profile.RequestedDocuments {
		i, doc := i, doc
		go func() {
			defer wg.Done()
			_, err := j.RequestDocument(ctx, doc)
			errs[i] = err
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			sink.Customer(profile.ID, "failed to obtain "+profile.RequestedDocuments[i]+": "+err.Error())
			return
		}
	}
	sink.Customer(profile.ID, "journey complete")
}

// runBreakScheduler implements spec.md §4.6 step 4 for a single office: wait
// a randomly sampled interval, invoke TakeBreak, and reschedule once it
// returns. It exits once ctx is cancelled or the office reports it has shut
// down.
func runBreakScheduler(ctx context.Context, wg *sync.WaitGroup, o *office.Office, oracle office.DurationOracle, min, max time.Duration) {
	defer wg.Done()

	for {
		delay := oracle.Sample(min, max)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
		if ctx.Err() != nil {
			return
		}
		if err := o.TakeBreak(); err != nil {
			return
		}
	}
}
