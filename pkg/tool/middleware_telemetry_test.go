package tool

import (
	"testing"
	"time"

	"github.com/odvcencio/wayfarer/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestTelemetryMiddlewareRecordsSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	mw := Telemetry(metrics)
	exec := mw(func(ctx *ExecutionContext) Envelope {
		return Ok(true)
	})

	exec(&ExecutionContext{ToolName: "navigation_tool", StartTime: time.Now()})

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if !hasCounterSample(metricFamilies, "wayfarer_tool_calls_total", "tool", "navigation_tool") {
		t.Fatal("expected a tool call sample for navigation_tool")
	}
}

func TestTelemetryMiddlewareRecordsFailureAsExecutionError(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	mw := Telemetry(metrics)
	exec := mw(func(ctx *ExecutionContext) Envelope {
		return Fail("navigation timed out")
	})

	exec(&ExecutionContext{ToolName: "navigation_tool", StartTime: time.Now()})

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if !hasCounterSample(metricFamilies, "wayfarer_execution_errors_total", "code", "tool_failure") {
		t.Fatal("expected an execution_error sample with code=tool_failure")
	}
}

func hasCounterSample(families []*dto.MetricFamily, name, labelName, labelValue string) bool {
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == labelName && label.GetValue() == labelValue {
					return true
				}
			}
		}
	}
	return false
}
