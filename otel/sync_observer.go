// Package otel provides OpenTelemetry integration for groove sync runs.
package otel

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/groovesync/reconcile"
)

// SyncObserver records reconciliation signals into OpenTelemetry.
type SyncObserver struct {
	tracer trace.Tracer

	outcomes metric.Int64Counter
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewSyncObserver creates a sync observer bound to the provided meter/tracer.
func NewSyncObserver(meter metric.Meter, tracer trace.Tracer) (*SyncObserver, error) {
	outcomes, err := meter.Int64Counter(
		"groovesync.reconcile.outcomes",
		metric.WithDescription("Number of grooves reconciled, by result"),
	)
	if err != nil {
		return nil, err
	}
	requests, err := meter.Int64Counter(
		"groovesync.registry.requests",
		metric.WithDescription("Number of requests sent to the groove registry"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"groovesync.registry.latency",
		metric.WithDescription("Groove registry request latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncObserver{
		tracer:   tracer,
		outcomes: outcomes,
		requests: requests,
		latency:  latency,
	}, nil
}

// ObserveRequest records one registry request.
func (o *SyncObserver) ObserveRequest(observation reconcile.RequestObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", observation.Method),
	}
	if observation.StatusCode != 0 {
		attrs = append(attrs, attribute.String("status_code", strconv.Itoa(observation.StatusCode)))
	}
	if observation.ErrorCode != "" {
		attrs = append(attrs, attribute.String("error_code", observation.ErrorCode))
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.requests.Add(ctx, 1, options)
	o.latency.Record(ctx, seconds(observation.DurationMS), options)
}

// ObserveReconcile records the outcome for one groove.
func (o *SyncObserver) ObserveReconcile(observation reconcile.ReconcileObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("result", string(observation.Result)),
	}
	if observation.ErrorCode != "" {
		attrs = append(attrs, attribute.String("error_code", observation.ErrorCode))
	}
	o.outcomes.Add(context.Background(), 1, metric.WithAttributes(attrs...))

	if o.tracer == nil {
		return
	}
	end := time.Now()
	start := end.Add(-time.Duration(observation.DurationMS) * time.Millisecond)
	_, span := o.tracer.Start(context.Background(), "groove.reconcile",
		trace.WithTimestamp(start),
		trace.WithAttributes(append(attrs,
			attribute.String("groovesync.tool_name", observation.ToolName),
			attribute.String("groovesync.file", observation.File),
			attribute.Int("groovesync.requests", observation.Requests),
		)...),
	)
	if observation.Result == reconcile.ResultFailed {
		span.SetStatus(codes.Error, observation.ErrorCode)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(end))
}

func seconds(ms int64) float64 {
	return float64(time.Duration(ms)*time.Millisecond) / float64(time.Second)
}

var _ reconcile.Observer = (*SyncObserver)(nil)
