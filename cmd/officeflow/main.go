// Command officeflow runs a fixed demonstration simulation: a handful of
// offices and documents with dependencies between them, a set of customers
// arriving at staggered delays, and a canonical trace written to stdout.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/officeflow/config"
	"github.com/dshills/officeflow/events"
	"github.com/dshills/officeflow/sim"
)

func main() {
	breakMin := flag.Duration("break-min", 6*time.Second, "minimum interval between break cycles")
	breakMax := flag.Duration("break-max", 10*time.Second, "maximum interval between break cycles")
	flag.Parse()

	cfg, customers, err := demoConfig()
	if err != nil {
		log.Fatalf("officeflow: building config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := events.NewLogSink(os.Stdout)
	if err := sim.Run(ctx, cfg, customers,
		sim.WithSink(sink),
		sim.WithBreakWindow(*breakMin, *breakMax),
	); err != nil {
		log.Fatalf("officeflow: simulation failed: %v", err)
	}
}

// demoConfig builds a small but non-trivial office network: a passport
// office whose document depends on a birth certificate issued by a
// separate records office, exercising the cross-office transport path.
func demoConfig() (*config.Config, []config.CustomerProfile, error) {
	offices := []config.OfficeSpec{
		{Name: "records", Counters: 2, MinService: 200 * time.Millisecond, MaxService: 600 * time.Millisecond, BreakDuration: 3 * time.Second},
		{Name: "passports", Counters: 1, MinService: 500 * time.Millisecond, MaxService: 1200 * time.Millisecond, BreakDuration: 3 * time.Second},
	}

	documents := []config.DocumentSpec{
		{Name: "birth_certificate", IssuingOffice: "records"},
		{Name: "passport", IssuingOffice: "passports", Dependencies: []string{"birth_certificate"}},
	}

	cfg, err := config.Build(offices, documents)
	if err != nil {
		return nil, nil, err
	}

	customers := []config.CustomerProfile{
		{ID: "alice", RequestedDocuments: []string{"passport"}},
		{ID: "bob", RequestedDocuments: []string{"birth_certificate"}, ArrivalDelay: 100 * time.Millisecond},
		{ID: "carol", RequestedDocuments: []string{"passport"}, ArrivalDelay: 250 * time.Millisecond},
	}

	return cfg, customers, nil
}
