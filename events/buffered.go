package events

import "sync"

// Entry is one recorded call against a BufferedSink, tagged with the Sink
// method name so tests can filter a captured trace without re-parsing log
// lines.
type Entry struct {
	Msg          string
	Office       string
	Office2      string // second office, for Transport's toOffice
	Customer     string
	Doc          string
	CounterIndex int
	Reason       string
	Snapshot     []string
	Result       Result
}

// BufferedSink captures every event in memory, in arrival order. It is the
// primary harness used by this module's own tests to assert on the
// observable trace described in spec.md §8, and is safe for concurrent use.
type BufferedSink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewBufferedSink creates an empty BufferedSink.
func NewBufferedSink() *BufferedSink {
	return &BufferedSink{}
}

func (b *BufferedSink) append(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
}

// Entries returns a copy of everything recorded so far, in order.
func (b *BufferedSink) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Filter returns the recorded entries whose Msg equals msg, in order.
func (b *BufferedSink) Filter(msg string) []Entry {
	var out []Entry
	for _, e := range b.Entries() {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}

func (b *BufferedSink) System(msg string) {
	b.append(Entry{Msg: "system", Reason: msg})
}

func (b *BufferedSink) Office(officeName, msg string) {
	b.append(Entry{Msg: "office", Office: officeName, Reason: msg})
}

func (b *BufferedSink) Customer(customerID, msg string) {
	b.append(Entry{Msg: "customer", Customer: customerID, Reason: msg})
}

func (b *BufferedSink) OfficeArrival(office, customer, doc string) {
	b.append(Entry{Msg: "officeArrival", Office: office, Customer: customer, Doc: doc})
}

func (b *BufferedSink) RequestAccepted(office, customer, doc string) {
	b.append(Entry{Msg: "requestAccepted", Office: office, Customer: customer, Doc: doc})
}

func (b *BufferedSink) Queue(office, customer, doc string, snapshot []string) {
	cp := make([]string, len(snapshot))
	copy(cp, snapshot)
	b.append(Entry{Msg: "queue", Office: office, Customer: customer, Doc: doc, Snapshot: cp})
}

func (b *BufferedSink) CounterStart(office string, counterIndex int, customer, doc string) {
	b.append(Entry{Msg: "counterStart", Office: office, CounterIndex: counterIndex, Customer: customer, Doc: doc})
}

func (b *BufferedSink) Transport(fromOffice, toOffice, doc string) {
	b.append(Entry{Msg: "transport", Office: fromOffice, Office2: toOffice, Doc: doc})
}

func (b *BufferedSink) Cancel(office, customer, doc, reason string) {
	b.append(Entry{Msg: "cancel", Office: office, Customer: customer, Doc: doc, Reason: reason})
}

func (b *BufferedSink) CounterFinish(office string, counterIndex int, customer, doc string) {
	b.append(Entry{Msg: "counterFinish", Office: office, CounterIndex: counterIndex, Customer: customer, Doc: doc})
}

func (b *BufferedSink) Issued(result Result) {
	b.append(Entry{Msg: "issued", Office: result.IssuingOffice, Customer: result.CustomerID, Doc: result.DocumentName, Result: result})
}
