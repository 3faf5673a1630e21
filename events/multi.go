package events

// MultiSink fans every call out to a fixed set of sinks. The teacher's
// emit.Emitter doc comment describes "multi-emit" as a pattern without
// shipping a concrete type for it; this module needs one, since the domain
// stack in SPEC_FULL.md §12 runs a LogSink, a PrometheusSink, and an
// OTelSink side by side.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a MultiSink that forwards to each of sinks, in order.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) System(msg string) {
	for _, s := range m.sinks {
		s.System(msg)
	}
}

func (m *MultiSink) Office(officeName, msg string) {
	for _, s := range m.sinks {
		s.Office(officeName, msg)
	}
}

func (m *MultiSink) Customer(customerID, msg string) {
	for _, s := range m.sinks {
		s.Customer(customerID, msg)
	}
}

func (m *MultiSink) OfficeArrival(office, customer, doc string) {
	for _, s := range m.sinks {
		s.OfficeArrival(office, customer, doc)
	}
}

func (m *MultiSink) RequestAccepted(office, customer, doc string) {
	for _, s := range m.sinks {
		s.RequestAccepted(office, customer, doc)
	}
}

func (m *MultiSink) Queue(office, customer, doc string, snapshot []string) {
	for _, s := range m.sinks {
		s.Queue(office, customer, doc, snapshot)
	}
}

func (m *MultiSink) CounterStart(office string, counterIndex int, customer, doc string) {
	for _, s := range m.sinks {
		s.CounterStart(office, counterIndex, customer, doc)
	}
}

func (m *MultiSink) Transport(fromOffice, toOffice, doc string) {
	for _, s := range m.sinks {
		s.Transport(fromOffice, toOffice, doc)
	}
}

func (m *MultiSink) Cancel(office, customer, doc, reason string) {
	for _, s := range m.sinks {
		s.Cancel(office, customer, doc, reason)
	}
}

func (m *MultiSink) CounterFinish(office string, counterIndex int, customer, doc string) {
	for _, s := range m.sinks {
		s.CounterFinish(office, counterIndex, customer, doc)
	}
}

func (m *MultiSink) Issued(result Result) {
	for _, s := range m.sinks {
		s.Issued(result)
	}
}
