package tool

import (
	"time"

	"github.com/odvcencio/wayfarer/pkg/telemetry"
)

// Telemetry records every tool invocation's latency and outcome against the
// process-wide metrics set. Failures are additionally classified into an
// execution_error code so dashboards can separate tool-level failures from
// strategy-level ones (spec §4.11/§7).
func Telemetry(metrics *telemetry.Metrics) Middleware {
	return func(next Executor) Executor {
		return func(ctx *ExecutionContext) Envelope {
			if metrics == nil || ctx == nil {
				return next(ctx)
			}
			start := ctx.StartTime
			if start.IsZero() {
				start = time.Now()
			}
			env := next(ctx)
			metrics.ObserveToolCall(ctx.ToolName, env.OK, time.Since(start))
			if !env.OK {
				metrics.ObserveExecutionError("tool_failure")
			}
			return env
		}
	}
}
