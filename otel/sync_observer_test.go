package otel_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	grooveotel "github.com/petal-labs/groovesync/otel"
	"github.com/petal-labs/groovesync/reconcile"
)

// newTestMeter creates a MeterProvider with a ManualReader for testing.
func newTestMeter() (*metric.ManualReader, *metric.MeterProvider) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	return reader, mp
}

// collectMetrics reads all metrics from the reader.
func collectMetrics(t *testing.T, reader *metric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return &rm
}

// findMetric searches for a metric by name in the collected data.
func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func sumByAttr(t *testing.T, m *metricdata.Metrics, key string) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s type = %T, want Sum[int64]", m.Name, m.Data)
	}
	out := map[string]int64{}
	for _, dp := range sum.DataPoints {
		value, _ := dp.Attributes.Value(attribute.Key(key))
		out[value.AsString()] += dp.Value
	}
	return out
}

func TestSyncObserverRecordsMetrics(t *testing.T) {
	reader, mp := newTestMeter()
	observer, err := grooveotel.NewSyncObserver(mp.Meter("test-sync-observer"), noop.NewTracerProvider().Tracer("test"))
	if err != nil {
		t.Fatalf("NewSyncObserver() error = %v", err)
	}

	observer.ObserveRequest(reconcile.RequestObservation{ToolName: "fade", Method: "PUT", StatusCode: 404, DurationMS: 12})
	observer.ObserveRequest(reconcile.RequestObservation{ToolName: "fade", Method: "POST", StatusCode: 200, DurationMS: 30})
	observer.ObserveRequest(reconcile.RequestObservation{ToolName: "echo", Method: "PUT", DurationMS: 5, ErrorCode: reconcile.ErrorCodeTransportFailure})
	observer.ObserveReconcile(reconcile.ReconcileObservation{ToolName: "fade", Result: reconcile.ResultCreated, Requests: 2})
	observer.ObserveReconcile(reconcile.ReconcileObservation{ToolName: "echo", Result: reconcile.ResultFailed, Requests: 1, ErrorCode: reconcile.ErrorCodeTransportFailure})

	rm := collectMetrics(t, reader)

	requests := findMetric(rm, "groovesync.registry.requests")
	if requests == nil {
		t.Fatal("groovesync.registry.requests metric not found")
	}
	byMethod := sumByAttr(t, requests, "method")
	if byMethod["PUT"] != 2 || byMethod["POST"] != 1 {
		t.Errorf("requests by method = %v, want PUT=2 POST=1", byMethod)
	}

	outcomes := findMetric(rm, "groovesync.reconcile.outcomes")
	if outcomes == nil {
		t.Fatal("groovesync.reconcile.outcomes metric not found")
	}
	byResult := sumByAttr(t, outcomes, "result")
	if byResult["created"] != 1 || byResult["failed"] != 1 {
		t.Errorf("outcomes by result = %v", byResult)
	}

	latency := findMetric(rm, "groovesync.registry.latency")
	if latency == nil {
		t.Fatal("groovesync.registry.latency metric not found")
	}
	if _, ok := latency.Data.(metricdata.Histogram[float64]); !ok {
		t.Fatalf("latency type = %T, want Histogram[float64]", latency.Data)
	}
}

func TestSyncObserverRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, mp := newTestMeter()

	observer, err := grooveotel.NewSyncObserver(mp.Meter("test"), tp.Tracer("test"))
	if err != nil {
		t.Fatalf("NewSyncObserver() error = %v", err)
	}

	observer.ObserveReconcile(reconcile.ReconcileObservation{ToolName: "fade", File: ".grooves/fade.yaml", Result: reconcile.ResultUpdated, Requests: 1, DurationMS: 20})
	observer.ObserveReconcile(reconcile.ReconcileObservation{ToolName: "echo", Result: reconcile.ResultFailed, ErrorCode: reconcile.ErrorCodeRemoteRejected})

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "groove.reconcile" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("first span status = %v, want Ok", spans[0].Status().Code)
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != reconcile.ErrorCodeRemoteRejected {
		t.Errorf("second span status = %+v", spans[1].Status())
	}

	found := false
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "groovesync.tool_name" && kv.Value.AsString() == "fade" {
			found = true
		}
	}
	if !found {
		t.Errorf("span attributes %v missing tool name", spans[0].Attributes())
	}
}

func TestNilSyncObserverIsSafe(t *testing.T) {
	var observer *grooveotel.SyncObserver
	observer.ObserveRequest(reconcile.RequestObservation{})
	observer.ObserveReconcile(reconcile.ReconcileObservation{})
}
