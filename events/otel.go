package events

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelSink implements Sink by turning each event into a short-lived
// OpenTelemetry span, tagged with the office/customer/document identifiers
// involved. It is grounded on the teacher's OTelEmitter: one span per event
// rather than one long-lived span per operation, since these events mark
// points in time, not ongoing work a caller holds open.
type OTelSink struct {
	tracer trace.Tracer
}

// NewOTelSink creates an OTelSink from a tracer obtained via
// otel.Tracer("officeflow").
func NewOTelSink(tracer trace.Tracer) *OTelSink {
	return &OTelSink{tracer: tracer}
}

func (o *OTelSink) span(name string, attrs ...attribute.KeyValue) {
	_, span := o.tracer.Start(context.Background(), name)
	defer span.End()
	span.SetAttributes(attrs...)
}

func (o *OTelSink) System(msg string) {
	o.span("system", attribute.String("msg", msg))
}

func (o *OTelSink) Office(officeName, msg string) {
	o.span("office", attribute.String("office", officeName), attribute.String("msg", msg))
}

func (o *OTelSink) Customer(customerID, msg string) {
	o.span("customer", attribute.String("customer", customerID), attribute.String("msg", msg))
}

func (o *OTelSink) OfficeArrival(office, customer, doc string) {
	o.span("office_arrival",
		attribute.String("office", office),
		attribute.String("customer", customer),
		attribute.String("document", doc),
	)
}

func (o *OTelSink) RequestAccepted(office, customer, doc string) {
	o.span("request_accepted",
		attribute.String("office", office),
		attribute.String("customer", customer),
		attribute.String("document", doc),
	)
}

func (o *OTelSink) Queue(office, customer, doc string, snapshot []string) {
	o.span("queue",
		attribute.String("office", office),
		attribute.String("customer", customer),
		attribute.String("document", doc),
		attribute.Int("queue_depth", len(snapshot)),
	)
}

func (o *OTelSink) CounterStart(office string, counterIndex int, customer, doc string) {
	o.span("counter_start",
		attribute.String("office", office),
		attribute.Int("counter", counterIndex),
		attribute.String("customer", customer),
		attribute.String("document", doc),
	)
}

func (o *OTelSink) Transport(fromOffice, toOffice, doc string) {
	o.span("transport",
		attribute.String("from_office", fromOffice),
		attribute.String("to_office", toOffice),
		attribute.String("document", doc),
	)
}

func (o *OTelSink) Cancel(office, customer, doc, reason string) {
	ctx, span := o.tracer.Start(context.Background(), "cancel")
	defer span.End()
	_ = ctx
	span.SetAttributes(
		attribute.String("office", office),
		attribute.String("customer", customer),
		attribute.String("document", doc),
		attribute.String("reason", reason),
	)
	span.SetStatus(codes.Error, reason)
}

func (o *OTelSink) CounterFinish(office string, counterIndex int, customer, doc string) {
	o.span("counter_finish",
		attribute.String("office", office),
		attribute.Int("counter", counterIndex),
		attribute.String("customer", customer),
		attribute.String("document", doc),
	)
}

func (o *OTelSink) Issued(result Result) {
	o.span("issued",
		attribute.String("office", result.IssuingOffice),
		attribute.String("customer", result.CustomerID),
		attribute.String("document", result.DocumentName),
		attribute.Int64("service_duration_ms", result.ServiceDuration.Milliseconds()),
	)
}
