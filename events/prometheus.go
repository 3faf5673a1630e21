package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusSink implements Sink by recording Prometheus metrics namespaced
// "officeflow", following the teacher's PrometheusMetrics: gauges for
// current state, a histogram for completed-service latency, and counters
// for the terminal events worth alerting on.
type PrometheusSink struct {
	queueDepth    *prometheus.GaugeVec
	activeCounter *prometheus.GaugeVec
	serviceMillis *prometheus.HistogramVec
	cancels       *prometheus.CounterVec
	issued        *prometheus.CounterVec
}

// NewPrometheusSink creates and registers every officeflow metric against
// registry. Pass nil to use prometheus.DefaultRegisterer.
func NewPrometheusSink(registry prometheus.Registerer) *PrometheusSink {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusSink{
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "officeflow",
			Name:      "queue_depth",
			Help:      "Queue length observed at the most recent admission, per office",
		}, []string{"office"}),

		activeCounter: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "officeflow",
			Name:      "active_counters",
			Help:      "Number of counters currently servicing a task, per office",
		}, []string{"office"}),

		serviceMillis: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "officeflow",
			Name:      "service_duration_ms",
			Help:      "Combined delay-plus-work duration of a completed service, in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"office", "document"}),

		cancels: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "officeflow",
			Name:      "cancellations_total",
			Help:      "Submissions rejected for missing prerequisites",
		}, []string{"office"}),

		issued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "officeflow",
			Name:      "issued_total",
			Help:      "Documents successfully issued",
		}, []string{"office", "document"}),
	}
}

func (p *PrometheusSink) System(msg string) {}

func (p *PrometheusSink) Office(officeName, msg string) {}

func (p *PrometheusSink) Customer(customerID, msg string) {}

func (p *PrometheusSink) OfficeArrival(office, customer, doc string) {}

func (p *PrometheusSink) RequestAccepted(office, customer, doc string) {}

func (p *PrometheusSink) Queue(office, customer, doc string, snapshot []string) {
	p.queueDepth.WithLabelValues(office).Set(float64(len(snapshot)))
}

func (p *PrometheusSink) CounterStart(office string, counterIndex int, customer, doc string) {
	p.activeCounter.WithLabelValues(office).Inc()
}

func (p *PrometheusSink) Transport(fromOffice, toOffice, doc string) {}

func (p *PrometheusSink) Cancel(office, customer, doc, reason string) {
	p.cancels.WithLabelValues(office).Inc()
	// A cancelled attempt began with CounterStart but gets no CounterFinish.
	p.activeCounter.WithLabelValues(office).Dec()
}

func (p *PrometheusSink) CounterFinish(office string, counterIndex int, customer, doc string) {
	p.activeCounter.WithLabelValues(office).Dec()
}

func (p *PrometheusSink) Issued(result Result) {
	p.serviceMillis.WithLabelValues(result.IssuingOffice, result.DocumentName).
		Observe(float64(result.ServiceDuration.Milliseconds()))
	p.issued.WithLabelValues(result.IssuingOffice, result.DocumentName).Inc()
}
