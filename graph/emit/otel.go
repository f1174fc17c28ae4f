package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/supersteprun/graph/graph"
)

// OTelObserver implements graph.Observer by creating one OpenTelemetry span
// per event. Spans are points in time (started and ended immediately)
// rather than durations, except events with a positive Duration (node_end
// and step_complete), whose Duration backdates the span's start relative to
// its end so span length reflects the measured execution time.
type OTelObserver struct {
	tracer trace.Tracer
}

// NewOTelObserver wraps tracer (e.g. otel.Tracer("graph")).
func NewOTelObserver(tracer trace.Tracer) *OTelObserver {
	return &OTelObserver{tracer: tracer}
}

var _ graph.Observer = (*OTelObserver)(nil)

// Notify implements graph.Observer.
func (o *OTelObserver) Notify(ctx context.Context, event graph.Event) {
	opts := []trace.SpanStartOption{
		trace.WithAttributes(
			attribute.String("thread_id", event.ThreadID),
			attribute.Int("step", event.Step),
		),
	}
	if event.Duration > 0 {
		opts = append(opts, trace.WithTimestamp(time.Now().Add(-event.Duration)))
	}

	_, span := o.tracer.Start(ctx, string(event.Kind), opts...)
	defer span.End()

	if event.Node != "" {
		span.SetAttributes(attribute.String("node", event.Node))
	}
	if len(event.ActiveNodes) > 0 {
		span.SetAttributes(attribute.StringSlice("active_nodes", event.ActiveNodes))
	}
	for k, v := range event.Info {
		span.SetAttributes(attribute.String("info."+k, fmt.Sprintf("%v", v)))
	}
	if event.Err != nil {
		span.SetStatus(codes.Error, event.Err.Error())
		span.RecordError(event.Err)
	}
}
