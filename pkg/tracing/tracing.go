// Package tracing holds the process-wide OpenTelemetry tracer used by the
// scanner, merge engine and repositories. Spans are no-ops until SetTracer is called.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ramsey-B/clover/pkg/errs"
)

// Span attribute keys shared by merge and scan spans
const (
	AttrProviderAID = attribute.Key("clover.provider_a_id")
	AttrProviderBID = attribute.Key("clover.provider_b_id")
	AttrMergeMode   = attribute.Key("clover.merge_mode")
	AttrGroups      = attribute.Key("clover.duplicate_groups")
	AttrMergedCount = attribute.Key("clover.merged_count")
	AttrFailedCount = attribute.Key("clover.failed_count")
)

var tracer trace.Tracer

// SetTracer sets the tracer to be used for tracing.
func SetTracer(t trace.Tracer) {
	tracer = t
}

// StartSpan starts a span named after the calling method, e.g. "merging.Engine.MergeProviders".
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// ProviderPair labels a span with the survivor and merged provider ids
func ProviderPair(idA, idB string) []attribute.KeyValue {
	return []attribute.KeyValue{AttrProviderAID.String(idA), AttrProviderBID.String(idB)}
}

// RecordError attaches err to span. Caller mistakes (bad input, unknown ids,
// stale versions) are recorded as events but leave the span status unset;
// only server-side failures mark the span as errored.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	if errs.StatusCode(err) >= 500 {
		span.SetStatus(codes.Error, errs.Message(err))
	}
}

func activeSpan(ctx context.Context) trace.Span {
	if tracer == nil {
		return nil
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	return span
}

// GetTraceParent returns the W3C traceparent of the active span, sent as a Kafka header.
func GetTraceParent(ctx context.Context) string {
	if activeSpan(ctx) == nil {
		return ""
	}
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	return carrier.Get("traceparent")
}

// GetTraceID returns the trace id rendered in error responses.
func GetTraceID(ctx context.Context) string {
	span := activeSpan(ctx)
	if span == nil {
		return ""
	}
	return span.SpanContext().TraceID().String()
}
