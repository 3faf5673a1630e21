package sim

import (
	"time"

	"github.com/dshills/officeflow/events"
	"github.com/dshills/officeflow/office"
)

// Options configures a Run beyond what the Config and customer list
// specify. The zero value is never used directly; Run starts from
// defaultOptions and applies each Option in order.
type Options struct {
	// ServiceOracle samples every office's per-task service delay. Defaults
	// to office.RandomOracle{}.
	ServiceOracle office.DurationOracle

	// BreakOracle samples the idle interval between break cycles, per
	// office. Defaults to office.RandomOracle{}.
	BreakOracle office.DurationOracle

	// BreakMin and BreakMax bound the break-cadence window. Defaults mirror
	// spec.md's example of a 6-10 second window.
	BreakMin time.Duration
	BreakMax time.Duration

	// Sink receives every observable event the run produces. Defaults to
	// events.NewNullSink().
	Sink events.Sink
}

// Option mutates an Options in place, following the teacher's functional
// option idiom.
type Option func(*Options)

// WithServiceOracle overrides the oracle offices use to sample service
// delays.
func WithServiceOracle(o office.DurationOracle) Option {
	return func(opts *Options) { opts.ServiceOracle = o }
}

// WithBreakOracle overrides the oracle used to sample the interval between
// break cycles.
func WithBreakOracle(o office.DurationOracle) Option {
	return func(opts *Options) { opts.BreakOracle = o }
}

// WithBreakWindow sets the [min, max] window a break scheduler waits within
// before invoking TakeBreak again.
func WithBreakWindow(min, max time.Duration) Option {
	return func(opts *Options) { opts.BreakMin, opts.BreakMax = min, max }
}

// WithSink overrides the event sink. Defaults to a NullSink, so a caller
// that wants any observable trace must supply one.
func WithSink(s events.Sink) Option {
	return func(opts *Options) { opts.Sink = s }
}

func defaultOptions() Options {
	return Options{
		ServiceOracle: office.RandomOracle{},
		BreakOracle:   office.RandomOracle{},
		BreakMin:      6 * time.Second,
		BreakMax:      10 * time.Second,
		Sink:          events.NewNullSink(),
	}
}
