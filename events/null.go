package events

// NullSink discards every event. Useful when observability overhead is
// unwanted, or as a base to embed when only a few Sink methods need
// overriding.
type NullSink struct{}

// NewNullSink creates a NullSink. Safe for concurrent use; zero overhead.
func NewNullSink() *NullSink { return &NullSink{} }

func (NullSink) System(string)                                      {}
func (NullSink) Office(string, string)                              {}
func (NullSink) Customer(string, string)                             {}
func (NullSink) OfficeArrival(string, string, string)                {}
func (NullSink) RequestAccepted(string, string, string)              {}
func (NullSink) Queue(string, string, string, []string)              {}
func (NullSink) CounterStart(string, int, string, string)            {}
func (NullSink) Transport(string, string, string)                    {}
func (NullSink) Cancel(string, string, string, string)               {}
func (NullSink) CounterFinish(string, int, string, string)           {}
func (NullSink) Issued(Result)                                       {}
